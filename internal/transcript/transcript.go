// Package transcript turns a provider transcription into speaker segments,
// utterances, and chapter hints with times in seconds.
package transcript

import (
	"sort"
	"strings"

	"shadow/internal/services/transcription"
)

// Segment is a run of consecutive words from one speaker.
type Segment struct {
	Start   float64
	End     float64
	Text    string
	Speaker string
}

// Utterance is a provider speaker turn converted to seconds.
type Utterance struct {
	Start      float64
	End        float64
	Text       string
	Speaker    string
	Confidence float64
}

// ChapterHint is a provider auto chapter converted to seconds.
type ChapterHint struct {
	Start    float64
	End      float64
	Headline string
	Summary  string
	Gist     string
}

// Transcript is the structured view of a completed transcription job.
type Transcript struct {
	Text            string
	Segments        []Segment
	Utterances      []Utterance
	Speakers        []string
	ChapterHints    []ChapterHint
	DurationSeconds int
	Confidence      float64
	WordCount       int
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}

// BuildSegments groups words into segments, starting a new one whenever the
// speaker label changes. An empty label counts as its own speaker.
func BuildSegments(words []transcription.Word) []Segment {
	var (
		segments []Segment
		current  Segment
		tokens   []string
		open     bool
	)
	flush := func() {
		if !open {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(tokens, " "))
		if current.Text != "" {
			segments = append(segments, current)
		}
		tokens = tokens[:0]
		open = false
	}

	for _, w := range words {
		if open && w.Speaker != current.Speaker {
			flush()
		}
		if !open {
			current = Segment{Start: msToSeconds(w.Start), Speaker: w.Speaker}
			open = true
		}
		current.End = msToSeconds(w.End)
		if text := strings.TrimSpace(w.Text); text != "" {
			tokens = append(tokens, text)
		}
	}
	flush()
	return segments
}

// ConvertUtterances passes provider utterances through with times in seconds.
func ConvertUtterances(in []transcription.Utterance) []Utterance {
	if len(in) == 0 {
		return nil
	}
	out := make([]Utterance, 0, len(in))
	for _, u := range in {
		out = append(out, Utterance{
			Start:      msToSeconds(u.Start),
			End:        msToSeconds(u.End),
			Text:       u.Text,
			Speaker:    u.Speaker,
			Confidence: u.Confidence,
		})
	}
	return out
}

// Speakers returns the sorted distinct non-empty speaker labels.
func Speakers(utterances []Utterance) []string {
	seen := make(map[string]struct{})
	for _, u := range utterances {
		if u.Speaker != "" {
			seen[u.Speaker] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for speaker := range seen {
		out = append(out, speaker)
	}
	sort.Strings(out)
	return out
}

// ConvertChapterHints converts provider auto chapters to seconds.
func ConvertChapterHints(in []transcription.Chapter) []ChapterHint {
	if len(in) == 0 {
		return nil
	}
	out := make([]ChapterHint, 0, len(in))
	for _, ch := range in {
		out = append(out, ChapterHint{
			Start:    msToSeconds(ch.Start),
			End:      msToSeconds(ch.End),
			Headline: ch.Headline,
			Summary:  ch.Summary,
			Gist:     ch.Gist,
		})
	}
	return out
}

// Build assembles the structured transcript for a completed job.
func Build(status *transcription.JobStatus) Transcript {
	if status == nil {
		return Transcript{}
	}
	utterances := ConvertUtterances(status.Utterances)
	return Transcript{
		Text:            status.Text,
		Segments:        BuildSegments(status.Words),
		Utterances:      utterances,
		Speakers:        Speakers(utterances),
		ChapterHints:    ConvertChapterHints(status.Chapters),
		DurationSeconds: status.DurationSeconds(),
		Confidence:      status.Confidence,
		WordCount:       len(status.Words),
	}
}
