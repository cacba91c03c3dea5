package testsupport

import (
	"context"
	"errors"
	"sync"
	"time"

	"shadow/internal/analysis"
	"shadow/internal/capture"
	"shadow/internal/services"
	"shadow/internal/services/transcription"
)

// FakeTranscriber returns a canned transcription result.
type FakeTranscriber struct {
	mu      sync.Mutex
	Status  *transcription.JobStatus
	Err     error
	Calls   int
	LastRef string
	Remote  bool
	// Block, when set, is waited on before returning so tests can hold a run open.
	Block chan struct{}
}

// NewFakeTranscriber builds a transcriber whose transcript spans duration seconds
// with two speakers.
func NewFakeTranscriber(text string, durationSeconds int) *FakeTranscriber {
	half := int64(durationSeconds) * 500
	return &FakeTranscriber{Status: &transcription.JobStatus{
		ID:            "fake-job",
		Status:        transcription.StatusCompleted,
		Text:          text,
		AudioDuration: float64(durationSeconds),
		Confidence:    0.9,
		Words: []transcription.Word{
			{Text: "first", Start: 0, End: half, Speaker: "A"},
			{Text: "second", Start: half, End: half * 2, Speaker: "B"},
		},
		Utterances: []transcription.Utterance{
			{Text: "first", Start: 0, End: half, Speaker: "A"},
			{Text: "second", Start: half, End: half * 2, Speaker: "B"},
		},
	}}
}

// Transcribe implements the pipeline transcriber.
func (f *FakeTranscriber) Transcribe(ctx context.Context, audioRef string, isRemote bool, _, _ time.Duration) (*transcription.JobStatus, error) {
	f.mu.Lock()
	f.Calls++
	f.LastRef = audioRef
	f.Remote = isRemote
	block := f.Block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Status, nil
}

// CallCount returns the number of Transcribe calls.
func (f *FakeTranscriber) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// FakeAnalyzer returns chapters covering [0, duration] and two decision points.
type FakeAnalyzer struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

// Analyze implements the pipeline analyzer.
func (f *FakeAnalyzer) Analyze(_ context.Context, _ string, durationSeconds int) (analysis.Result, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return analysis.Result{}, f.Err
	}
	d := float64(durationSeconds)
	return analysis.Result{
		Chapters: []capture.Chapter{
			{OrderIndex: 0, Title: "Setup", StartSeconds: 0, EndSeconds: d / 3},
			{OrderIndex: 1, Title: "Work", StartSeconds: d / 3, EndSeconds: 2 * d / 3},
			{OrderIndex: 2, Title: "Wrap up", StartSeconds: 2 * d / 3, EndSeconds: d},
		},
		DecisionPoints: []capture.DecisionPoint{
			{OrderIndex: 0, TimestampSeconds: d / 4, Description: "Choose store", Reasoning: "simplicity", Confidence: 0.7},
			{OrderIndex: 1, TimestampSeconds: d / 2, Description: "Add retry", Reasoning: "flaky provider", Confidence: 0.5},
		},
		Summary: capture.Analysis{
			ExecutiveSummary: "A focused walkthrough.",
			KeyTakeaways:     []string{"one", "two", "three", "four"},
			QualityScore:     81,
		},
	}, nil
}

// CallCount returns the number of Analyze calls.
func (f *FakeAnalyzer) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// ErrProviderDown is a canned provider failure.
var ErrProviderDown = services.Provider("analysis", "chapters", "completion failed", errors.New("http 503"))
