package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"shadow/internal/analysis"
	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/fileutil"
	"shadow/internal/logging"
	"shadow/internal/services"
	"shadow/internal/services/transcription"
	"shadow/internal/transcript"
)

const (
	pendingSummary   = "Analysis pending - please check API configuration."
	pendingTakeaway  = "Content will be analyzed when AI services are configured"
	pendingQuality   = 50
	finalizeTimeout  = 10 * time.Second
	transcriptFailed = "[Transcription failed: %s]"
)

// Transcriber converts raw media into a completed provider transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string, isRemote bool, interval, timeout time.Duration) (*transcription.JobStatus, error)
}

// Analyzer extracts chapters, decision points, and a summary.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, durationSeconds int) (analysis.Result, error)
}

// Result summarizes one Execute call.
type Result struct {
	CaptureID        string
	Status           capture.Status
	Skipped          bool
	SkipReason       string
	TranscriptFailed bool
	AnalysisFallback bool
	Chapters         int
	DecisionPoints   int
}

// Executor runs the processing pipeline for a single capture.
type Executor struct {
	cfg         *config.Config
	store       *capture.Store
	transcriber Transcriber
	analyzer    Analyzer
	logger      *slog.Logger
	workerID    string
	now         func() time.Time
}

// Option customizes an Executor.
type Option func(*Executor)

// WithWorkerID fixes the worker name used when the context carries none.
func WithWorkerID(id string) Option {
	return func(e *Executor) {
		if id != "" {
			e.workerID = id
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor constructs an executor. A nil transcriber or analyzer is
// treated as an unconfigured provider.
func NewExecutor(cfg *config.Config, store *capture.Store, transcriber Transcriber, analyzer Analyzer, logger *slog.Logger, opts ...Option) *Executor {
	host, _ := os.Hostname()
	e := &Executor{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		analyzer:    analyzer,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		workerID:    fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8]),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute processes one capture. The returned error is nil or a
// *services.PipelineError.
func (e *Executor) Execute(ctx context.Context, captureID string) (Result, error) {
	result := Result{CaptureID: captureID}
	ctx = services.WithCaptureID(ctx, captureID)
	logger := logging.WithContext(ctx, e.logger)

	c, err := e.store.GetByID(ctx, captureID)
	if err != nil {
		return result, e.abort(ctx, logger, captureID, "load", err)
	}
	if c == nil {
		logger.Info("capture not found; skipping", logging.String(logging.FieldEventType, "pipeline_skipped"))
		result.Skipped, result.SkipReason = true, "capture not found"
		return result, nil
	}
	result.Status = c.Status
	if c.Status != capture.StatusProcessing {
		logger.Info("capture not in PROCESSING; skipping",
			logging.String("status", string(c.Status)),
			logging.String(logging.FieldEventType, "pipeline_skipped"),
		)
		result.Skipped, result.SkipReason = true, fmt.Sprintf("status is %s", c.Status)
		return result, nil
	}

	worker := e.worker(ctx)
	owner := leaseOwner(worker)
	leased, err := e.store.AcquireLease(ctx, captureID, owner, e.cfg.Workflow.Lease())
	if err != nil {
		return result, e.abort(ctx, logger, captureID, "lease", err)
	}
	if !leased {
		return e.skipUnleased(ctx, logger, result, worker)
	}
	defer e.release(ctx, logger, captureID, owner)

	// The first read may predate a run that finished before the lease was
	// taken, so the capture is loaded again under the lease.
	if c, err = e.store.GetByID(ctx, captureID); err != nil || c == nil {
		if err == nil {
			err = fmt.Errorf("capture %s: %w", captureID, services.ErrNotFound)
		}
		return result, e.abort(ctx, logger, captureID, "load", err)
	}

	if !c.HasMedia() {
		return e.failStructural(ctx, logger, &result, services.Structural("load", "check media", "capture has no raw media", fileutil.ErrEmptyReference))
	}

	started := e.now()
	if err := e.store.MarkStarted(ctx, captureID, started); err != nil {
		return result, e.abort(ctx, logger, captureID, "start", err)
	}
	logger.Info("processing started", logging.String(logging.FieldEventType, "pipeline_started"))

	text, duration, structured, err := e.transcribe(services.WithStage(ctx, "transcription"), logger, c)
	if err != nil {
		if services.KindOf(err) == services.KindPathSecurity {
			return e.failStructural(ctx, logger, &result, err)
		}
		return result, e.abort(ctx, logger, captureID, "transcription", err)
	}
	result.TranscriptFailed = structured == nil
	if err := e.store.SaveTranscript(ctx, captureID, text, duration); err != nil {
		return result, e.abort(ctx, logger, captureID, "transcription", err)
	}
	if duration <= 0 {
		duration = c.DurationSeconds
	}

	if structured != nil {
		logger.Info("transcript segmented",
			logging.Int("segment_count", len(structured.Segments)),
			logging.Int("utterance_count", len(structured.Utterances)),
			logging.Int("speaker_count", len(structured.Speakers)),
			logging.Int("chapter_hint_count", len(structured.ChapterHints)),
		)
	}

	if duration <= 0 {
		duration = e.cfg.Workflow.DefaultDurationSeconds
	}
	analyzed, fallback := e.analyze(services.WithStage(ctx, "analysis"), logger, text, duration)
	if err := ctx.Err(); err != nil {
		return result, e.abort(ctx, logger, captureID, "analysis", err)
	}
	result.AnalysisFallback = fallback

	if err := e.store.ReplaceAnalysis(ctx, captureID, analyzed.Summary, analyzed.Chapters, analyzed.DecisionPoints); err != nil {
		return result, e.abort(ctx, logger, captureID, "persist", err)
	}
	if err := e.store.Transition(ctx, captureID, capture.StatusProcessing, capture.StatusReadyForReview); err != nil {
		return result, e.abort(ctx, logger, captureID, "finalize", err)
	}

	result.Status = capture.StatusReadyForReview
	result.Chapters = len(analyzed.Chapters)
	result.DecisionPoints = len(analyzed.DecisionPoints)
	logger.Info("processing complete",
		logging.String(logging.FieldEventType, "pipeline_completed"),
		logging.Int("chapter_count", result.Chapters),
		logging.Int("decision_point_count", result.DecisionPoints),
		logging.Int("quality_score", analyzed.Summary.QualityScore),
		logging.Bool("transcript_failed", result.TranscriptFailed),
		logging.Bool("analysis_fallback", result.AnalysisFallback),
		logging.Duration("elapsed", e.now().Sub(started)),
	)
	return result, nil
}

// transcribe resolves the media and runs the provider. Provider failures are
// folded into a placeholder transcript; only path violations and context
// cancellation are returned as errors.
func (e *Executor) transcribe(ctx context.Context, logger *slog.Logger, c *capture.Capture) (string, int, *transcript.Transcript, error) {
	loc, err := fileutil.ResolveMedia(e.cfg.Paths.StorageRoot, c.MediaRef)
	if err != nil {
		if errors.Is(err, fileutil.ErrOutsideRoot) {
			return "", 0, nil, services.PathSecurity("transcription", "resolve media", "media reference escapes storage root", err)
		}
		return e.transcriptionFailed(logger, err), 0, nil, nil
	}
	if e.transcriber == nil {
		return e.transcriptionFailed(logger, errors.New("transcription provider not configured")), 0, nil, nil
	}

	status, err := e.transcriber.Transcribe(ctx, loc.String(), loc.Remote(),
		e.cfg.Transcription.PollInterval(), e.cfg.Transcription.Timeout())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, nil, ctxErr
		}
		return e.transcriptionFailed(logger, err), 0, nil, nil
	}

	structured := transcript.Build(status)
	logger.Info("transcription complete",
		logging.Int("transcript_chars", len(structured.Text)),
		logging.Int("duration_seconds", structured.DurationSeconds),
		logging.Int("word_count", structured.WordCount),
		logging.Bool("remote_media", loc.Remote()),
	)
	return structured.Text, structured.DurationSeconds, &structured, nil
}

func (e *Executor) transcriptionFailed(logger *slog.Logger, err error) string {
	logging.WarnWithContext(logger, "transcription failed; continuing with placeholder transcript", "transcription_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check transcription api_key and media file"),
		logging.String(logging.FieldImpact, "analysis runs without a real transcript"),
	)
	return fmt.Sprintf(transcriptFailed, services.Reason(err))
}

func (e *Executor) analyze(ctx context.Context, logger *slog.Logger, text string, duration int) (analysis.Result, bool) {
	if e.analyzer != nil {
		result, err := e.analyzer.Analyze(ctx, text, duration)
		if err == nil {
			return result, false
		}
		logging.WarnWithContext(logger, "analysis failed; storing placeholder summary", "analysis_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check analysis api_key and model"),
			logging.String(logging.FieldImpact, "capture has no chapters or decision points"),
		)
	} else {
		logging.WarnWithContext(logger, "analysis provider not configured; storing placeholder summary", "analysis_unconfigured",
			logging.String(logging.FieldErrorHint, "set analysis.api_key or GEMINI_API_KEY"),
			logging.String(logging.FieldImpact, "capture has no chapters or decision points"),
		)
	}
	return analysis.Result{
		Summary: capture.Analysis{
			ExecutiveSummary: pendingSummary,
			KeyTakeaways:     []string{pendingTakeaway},
			QualityScore:     pendingQuality,
		},
	}, true
}

func (e *Executor) failStructural(ctx context.Context, logger *slog.Logger, result *Result, cause error) (Result, error) {
	if err := e.store.Transition(ctx, result.CaptureID, capture.StatusProcessing, capture.StatusFailed); err != nil {
		return *result, e.abort(ctx, logger, result.CaptureID, "finalize", err)
	}
	result.Status = capture.StatusFailed
	logging.ErrorWithContext(logger, "capture failed permanently", "pipeline_failed",
		logging.Error(cause),
		logging.String("kind", string(services.KindOf(cause))),
		logging.String(logging.FieldErrorHint, "fix the capture media reference and retry"),
	)
	return *result, cause
}

// abort forces FAILED on a detached context so the status is written even
// when ctx is already cancelled.
func (e *Executor) abort(ctx context.Context, logger *slog.Logger, captureID, stage string, cause error) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := e.store.ForceFailed(fctx, captureID); err != nil {
		logger.Error("failed to mark capture FAILED", logging.Error(err))
	}
	var pe *services.PipelineError
	if errors.As(cause, &pe) && pe.Kind == services.KindInfrastructure {
		return pe
	}
	wrapped := services.Infrastructure(stage, "execute", "unexpected pipeline error", cause)
	logging.ErrorWithContext(logger, "processing aborted", "pipeline_aborted",
		logging.String(logging.FieldStage, stage),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "the run may be retried"),
	)
	return wrapped
}

func (e *Executor) release(ctx context.Context, logger *slog.Logger, captureID, worker string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := e.store.ReleaseLease(rctx, captureID, worker); err != nil {
		logger.Warn("failed to release capture lease", logging.Error(err))
	}
}

// skipUnleased reports why the lease was refused: the capture left
// PROCESSING or another run holds it.
func (e *Executor) skipUnleased(ctx context.Context, logger *slog.Logger, result Result, worker string) (Result, error) {
	result.Skipped, result.SkipReason = true, "leased by another run"
	if c, err := e.store.GetByID(ctx, result.CaptureID); err == nil && c != nil && c.Status != capture.StatusProcessing {
		result.Status = c.Status
		result.SkipReason = fmt.Sprintf("status is %s", c.Status)
	}
	logger.Info("capture lease not acquired; skipping",
		logging.String(logging.FieldWorker, worker),
		logging.String("reason", result.SkipReason),
		logging.String(logging.FieldEventType, "pipeline_skipped"),
	)
	return result, nil
}

// leaseOwner makes every Execute call a distinct lease holder, so two runs
// on one worker or executor still exclude each other.
func leaseOwner(worker string) string {
	return worker + "/" + uuid.NewString()[:8]
}

func (e *Executor) worker(ctx context.Context) string {
	if id, ok := services.WorkerFromContext(ctx); ok && id != "" {
		return id
	}
	return e.workerID
}
