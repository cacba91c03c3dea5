package pipeline

import (
	"log/slog"

	"shadow/internal/analysis"
	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/services/llm"
	"shadow/internal/services/transcription"
	"shadow/internal/stage"
)

// Providers holds the production provider clients built from config.
type Providers struct {
	Transcription *transcription.Client
	Analysis      *llm.Client
}

// NewProviders builds provider clients from the config sections.
func NewProviders(cfg *config.Config) Providers {
	return Providers{
		Transcription: transcription.NewClientFrom(cfg.Transcription),
		Analysis:      llm.NewClientFrom(cfg.Analysis),
	}
}

// Probes returns the health probes reported in workflow status.
func (p Providers) Probes() []stage.Probe {
	return []stage.Probe{
		{Name: "transcription", Checker: p.Transcription},
		{Name: "analysis", Checker: p.Analysis},
	}
}

// NewDefaultExecutor wires an executor to the given providers. Providers
// without credentials are left nil so the pipeline takes its degraded path
// without a network round trip.
func NewDefaultExecutor(cfg *config.Config, store *capture.Store, p Providers, logger *slog.Logger, opts ...Option) *Executor {
	var transcriber Transcriber
	if p.Transcription.Configured() {
		transcriber = p.Transcription
	}
	var analyzer Analyzer
	if p.Analysis.Configured() {
		analyzer = analysis.New(p.Analysis, cfg.Analysis.TranscriptCharLimit, logger)
	}
	return NewExecutor(cfg, store, transcriber, analyzer, logger, opts...)
}
