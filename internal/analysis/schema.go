package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"shadow/internal/capture"
)

const defaultConfidence = 0.5

type chaptersResponse struct {
	Chapters *[]chapterPayload `json:"chapters"`
}

type chapterPayload struct {
	Title        string   `json:"title"`
	StartSeconds *float64 `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds"`
	Summary      string   `json:"summary"`
}

type decisionsResponse struct {
	DecisionPoints *[]decisionPayload `json:"decision_points"`
}

type decisionPayload struct {
	TimestampSeconds *float64 `json:"timestamp_seconds"`
	Description      string   `json:"decision_description"`
	Reasoning        string   `json:"reasoning"`
	Alternatives     []string `json:"alternatives_considered"`
	ContextBefore    string   `json:"context_before"`
	Confidence       *float64 `json:"confidence_score"`
}

type summaryResponse struct {
	ExecutiveSummary *string  `json:"executive_summary"`
	KeyTakeaways     []string `json:"key_takeaways"`
	QualityScore     *float64 `json:"quality_score"`
}

// chapters validates the payload and stretches the last chapter to duration.
func (r chaptersResponse) chapters(durationSeconds int) ([]capture.Chapter, error) {
	if r.Chapters == nil {
		return nil, errors.New("missing chapters")
	}
	out := make([]capture.Chapter, 0, len(*r.Chapters))
	for i, ch := range *r.Chapters {
		title := strings.TrimSpace(ch.Title)
		if title == "" {
			return nil, fmt.Errorf("chapter %d: missing title", i)
		}
		if ch.StartSeconds == nil || ch.EndSeconds == nil {
			return nil, fmt.Errorf("chapter %d: missing start_seconds or end_seconds", i)
		}
		if *ch.StartSeconds < 0 {
			return nil, fmt.Errorf("chapter %d: negative start %v", i, *ch.StartSeconds)
		}
		out = append(out, capture.Chapter{
			OrderIndex:   i,
			Title:        title,
			StartSeconds: *ch.StartSeconds,
			EndSeconds:   *ch.EndSeconds,
			Summary:      strings.TrimSpace(ch.Summary),
		})
	}
	if n := len(out); n > 0 && out[n-1].EndSeconds < float64(durationSeconds) {
		out[n-1].EndSeconds = float64(durationSeconds)
	}
	for i, ch := range out {
		if ch.StartSeconds >= ch.EndSeconds {
			return nil, fmt.Errorf("chapter %d: start %v is not before end %v", i, ch.StartSeconds, ch.EndSeconds)
		}
	}
	return out, nil
}

func (r decisionsResponse) decisionPoints() ([]capture.DecisionPoint, error) {
	if r.DecisionPoints == nil {
		return nil, errors.New("missing decision_points")
	}
	out := make([]capture.DecisionPoint, 0, len(*r.DecisionPoints))
	for i, dp := range *r.DecisionPoints {
		description := strings.TrimSpace(dp.Description)
		if description == "" {
			return nil, fmt.Errorf("decision point %d: missing decision_description", i)
		}
		if dp.TimestampSeconds == nil {
			return nil, fmt.Errorf("decision point %d: missing timestamp_seconds", i)
		}
		if *dp.TimestampSeconds < 0 {
			return nil, fmt.Errorf("decision point %d: negative timestamp %v", i, *dp.TimestampSeconds)
		}
		confidence := defaultConfidence
		if dp.Confidence != nil {
			confidence = clamp(*dp.Confidence, 0, 1)
		}
		out = append(out, capture.DecisionPoint{
			OrderIndex:       i,
			TimestampSeconds: *dp.TimestampSeconds,
			Description:      description,
			Reasoning:        strings.TrimSpace(dp.Reasoning),
			Alternatives:     nonEmpty(dp.Alternatives),
			ContextBefore:    strings.TrimSpace(dp.ContextBefore),
			Confidence:       confidence,
		})
	}
	return out, nil
}

func (r summaryResponse) analysis() (capture.Analysis, error) {
	if r.ExecutiveSummary == nil || strings.TrimSpace(*r.ExecutiveSummary) == "" {
		return capture.Analysis{}, errors.New("missing executive_summary")
	}
	if r.QualityScore == nil {
		return capture.Analysis{}, errors.New("missing quality_score")
	}
	return capture.Analysis{
		ExecutiveSummary: strings.TrimSpace(*r.ExecutiveSummary),
		KeyTakeaways:     nonEmpty(r.KeyTakeaways),
		QualityScore:     int(math.Round(clamp(*r.QualityScore, 0, 100))),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
