package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/logging"
	"shadow/internal/notifications"
	"shadow/internal/pipeline"
	"shadow/internal/queue"
	"shadow/internal/services"
)

const timeLimitReason = "task time limit exceeded"

// Runner executes the pipeline for one capture.
type Runner interface {
	Execute(ctx context.Context, captureID string) (pipeline.Result, error)
}

// VerdictKind is the outcome of one queued attempt.
type VerdictKind string

const (
	VerdictSucceeded VerdictKind = "succeeded"
	VerdictRetry     VerdictKind = "retry"
	VerdictFailed    VerdictKind = "failed"
	// VerdictInterrupted means the worker was stopped mid-attempt. The job is
	// left running so the next daemon start requeues it.
	VerdictInterrupted VerdictKind = "interrupted"
)

// Verdict tells the Manager how to record an attempt.
type Verdict struct {
	Kind      VerdictKind
	At        time.Time
	Reason    string
	ErrorKind string
	Result    pipeline.Result
}

// Supervisor applies the bounded retry policy around pipeline execution.
type Supervisor struct {
	store      *capture.Store
	runner     Runner
	retryDelay time.Duration
	timeLimit  time.Duration
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time
}

// SupervisorOption customizes a Supervisor.
type SupervisorOption func(*Supervisor)

// WithTimeLimit overrides the per-attempt time limit.
func WithTimeLimit(limit time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if limit > 0 {
			s.timeLimit = limit
		}
	}
}

// WithSupervisorClock overrides the time source used for retry scheduling.
func WithSupervisorClock(now func() time.Time) SupervisorOption {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier publishes ready and terminal-failure outcomes.
func WithNotifier(n notifications.Service) SupervisorOption {
	return func(s *Supervisor) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewSupervisor constructs a Supervisor using the workflow retry settings.
func NewSupervisor(cfg *config.Config, store *capture.Store, runner Runner, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		store:      store,
		runner:     runner,
		retryDelay: cfg.Workflow.RetryDelay(),
		timeLimit:  cfg.Workflow.TaskTimeLimit(),
		logger:     logging.NewComponentLogger(logger, "workflow-supervisor"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attempt runs one claimed job. job.Attempts already counts this attempt.
func (s *Supervisor) Attempt(ctx context.Context, job *queue.Job) Verdict {
	ctx = services.WithCaptureID(ctx, job.CaptureID)
	logger := logging.WithContext(ctx, s.logger).With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("attempt", job.Attempts),
	)

	if job.Attempts > 1 {
		if err := s.resetForRetry(ctx, job.CaptureID); err != nil {
			return s.judge(ctx, logger, job, pipeline.Result{CaptureID: job.CaptureID}, err, false)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeLimit)
	defer cancel()
	result, err := s.runner.Execute(runCtx, job.CaptureID)
	timedOut := err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)
	verdict := s.judge(ctx, logger, job, result, err, timedOut)
	s.announce(ctx, logger, job.CaptureID, verdict)
	return verdict
}

func (s *Supervisor) announce(ctx context.Context, logger *slog.Logger, captureID string, verdict Verdict) {
	if s.notifier == nil {
		return
	}
	var event notifications.Event
	payload := notifications.Payload{"captureID": captureID}
	switch {
	case verdict.Kind == VerdictSucceeded && verdict.Result.Status == capture.StatusReadyForReview && !verdict.Result.Skipped:
		event = notifications.EventReviewReady
		payload["chapters"] = verdict.Result.Chapters
		payload["decisions"] = verdict.Result.DecisionPoints
	case verdict.Kind == VerdictFailed:
		event = notifications.EventCaptureFailed
		payload["reason"] = verdict.Reason
	default:
		return
	}
	if c, err := s.store.GetByID(ctx, captureID); err == nil && c != nil {
		payload["title"] = c.Title
	}
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome not pushed to ntfy"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// resetForRetry moves a capture the previous attempt left FAILED back into
// PROCESSING. Captures in any other state are left for the executor to judge.
func (s *Supervisor) resetForRetry(ctx context.Context, captureID string) error {
	c, err := s.store.GetByID(ctx, captureID)
	if err != nil {
		return services.Infrastructure("retry", "load capture", "failed to load capture for retry", err)
	}
	if c == nil || c.Status != capture.StatusFailed {
		return nil
	}
	err = s.store.Transition(ctx, captureID, capture.StatusFailed, capture.StatusProcessing)
	if err == nil || errors.Is(err, services.ErrInvalidOperation) {
		return nil
	}
	return services.Infrastructure("retry", "reset capture", "failed to reset capture for retry", err)
}

func (s *Supervisor) judge(ctx context.Context, logger *slog.Logger, job *queue.Job, result pipeline.Result, err error, timedOut bool) Verdict {
	verdict := Verdict{Result: result}
	switch {
	case err == nil:
		verdict.Kind = VerdictSucceeded
		logger.Info("job attempt succeeded",
			logging.String(logging.FieldEventType, "job_succeeded"),
			logging.Bool("skipped", result.Skipped),
			logging.String("capture_status", string(result.Status)),
		)
		return verdict
	case ctx.Err() != nil:
		verdict.Kind = VerdictInterrupted
		verdict.Reason = services.Reason(ctx.Err())
		logger.Info("job attempt interrupted by shutdown", logging.String(logging.FieldEventType, "job_interrupted"))
		return verdict
	}

	verdict.Reason = services.Reason(err)
	verdict.ErrorKind = queue.ErrorKind(err)
	kind := services.KindOf(err)
	switch {
	case timedOut:
		verdict.Kind = VerdictFailed
		verdict.Reason = timeLimitReason
		verdict.ErrorKind = string(services.KindInfrastructure)
	case kind == services.KindStructural || kind == services.KindPathSecurity:
		verdict.Kind = VerdictFailed
	case services.Retryable(err) && job.Attempts <= job.MaxRetries:
		verdict.Kind = VerdictRetry
		verdict.At = s.now().Add(s.retryDelay)
	default:
		verdict.Kind = VerdictFailed
	}

	if verdict.Kind == VerdictRetry {
		logging.WarnWithContext(logger, "job attempt failed; retry scheduled", "job_retry_scheduled",
			logging.String("reason", verdict.Reason),
			logging.String("error_kind", verdict.ErrorKind),
			logging.Duration("retry_delay", s.retryDelay),
			logging.String(logging.FieldImpact, fmt.Sprintf("retry %d of %d", job.Attempts, job.MaxRetries)),
		)
		return verdict
	}
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("reason", verdict.Reason),
		logging.String("error_kind", verdict.ErrorKind),
		logging.Int("max_retries", job.MaxRetries),
		logging.String(logging.FieldErrorHint, "inspect the capture and retry it once the cause is fixed"),
	)
	return verdict
}
