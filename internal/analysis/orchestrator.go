package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"shadow/internal/capture"
	"shadow/internal/logging"
	"shadow/internal/services"
	"shadow/internal/services/llm"
)

const (
	stageName          = "analysis"
	truncationMarker   = "\n... [transcript truncated]"
	defaultCharLimit   = 30000
	defaultDurationSec = 300
)

// Completer is the LLM surface the orchestrator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result bundles the artifacts of one analysis run.
type Result struct {
	Chapters       []capture.Chapter
	DecisionPoints []capture.DecisionPoint
	Summary        capture.Analysis
}

// Orchestrator runs the chapter, decision point, and summary extractions.
type Orchestrator struct {
	client    Completer
	charLimit int
	logger    *slog.Logger
}

// New constructs an orchestrator. A non-positive charLimit uses 30000 runes.
func New(client Completer, charLimit int, logger *slog.Logger) *Orchestrator {
	if charLimit <= 0 {
		charLimit = defaultCharLimit
	}
	return &Orchestrator{
		client:    client,
		charLimit: charLimit,
		logger:    logging.NewComponentLogger(logger, stageName),
	}
}

// Analyze extracts all artifacts. Any failure is returned as a Provider
// pipeline error and no partial result is produced.
func (o *Orchestrator) Analyze(ctx context.Context, transcript string, durationSeconds int) (Result, error) {
	if o == nil || o.client == nil {
		return Result{}, services.Provider(stageName, "analyze", "analysis provider not configured", nil)
	}
	if durationSeconds <= 0 {
		durationSeconds = defaultDurationSec
	}
	logger := logging.WithContext(ctx, o.logger)
	text := Truncate(transcript, o.charLimit)

	var chapters chaptersResponse
	if err := o.complete(ctx, "chapters", fmt.Sprintf(chapterPrompt, text, durationSeconds), &chapters); err != nil {
		return Result{}, err
	}
	chapterList, err := chapters.chapters(durationSeconds)
	if err != nil {
		return Result{}, invalidResponse("chapters", err)
	}
	logger.Info("chapters extracted", logging.Int("chapter_count", len(chapterList)))

	var decisions decisionsResponse
	if err := o.complete(ctx, "decision_points", fmt.Sprintf(decisionPrompt, text), &decisions); err != nil {
		return Result{}, err
	}
	points, err := decisions.decisionPoints()
	if err != nil {
		return Result{}, invalidResponse("decision_points", err)
	}
	logger.Info("decision points extracted", logging.Int("decision_point_count", len(points)))

	var summary summaryResponse
	if err := o.complete(ctx, "summary", fmt.Sprintf(summaryPrompt, text), &summary); err != nil {
		return Result{}, err
	}
	analysis, err := summary.analysis()
	if err != nil {
		return Result{}, invalidResponse("summary", err)
	}
	logger.Info("summary generated", logging.Int("quality_score", analysis.QualityScore))

	return Result{Chapters: chapterList, DecisionPoints: points, Summary: analysis}, nil
}

func (o *Orchestrator) complete(ctx context.Context, op, userPrompt string, target any) error {
	content, err := o.client.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return services.Provider(stageName, op, "completion failed", err)
	}
	if err := llm.DecodeLLMJSON(content, target); err != nil {
		return invalidResponse(op, err)
	}
	return nil
}

func invalidResponse(op string, err error) error {
	return services.Provider(stageName, op, "invalid response",
		services.ExternalService(stageName, op+" response failed validation", err))
}

// Truncate caps text at limit runes and appends a marker when it cuts.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + truncationMarker
}
