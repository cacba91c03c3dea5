package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shadow/internal/api"
	"shadow/internal/logging"
	"shadow/internal/pipeline"
	"shadow/internal/services"
)

// Outcome reports where a capture was routed.
type Outcome = api.DispatchOutcome

// Mode values re-exported for callers that only import dispatch.
const (
	ModeQueued = api.DispatchQueued
	ModeLocal  = api.DispatchLocal
)

// Executor runs the pipeline for one capture.
type Executor interface {
	Execute(ctx context.Context, captureID string) (pipeline.Result, error)
}

// Dispatcher sends captures to the broker, or runs them locally when the
// broker cannot take them.
type Dispatcher struct {
	broker   Broker
	executor Executor
	timeout  time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// New constructs a dispatcher. probeTimeout bounds the broker probe and the
// enqueue call.
func New(broker Broker, executor Executor, probeTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Dispatcher{
		broker:   broker,
		executor: executor,
		timeout:  probeTimeout,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Dispatch routes a capture. The only error is a blank capture id; broker
// problems degrade to local processing.
func (d *Dispatcher) Dispatch(ctx context.Context, captureID string) (Outcome, error) {
	captureID = strings.TrimSpace(captureID)
	if captureID == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "dispatch", "dispatch", "capture id is required", nil)
	}
	ctx = services.WithCaptureID(ctx, captureID)
	logger := logging.WithContext(ctx, d.logger)

	jobID, err := d.enqueue(ctx, captureID)
	if err == nil {
		logger.Info("capture queued with broker",
			logging.Int64(logging.FieldJobID, jobID),
			logging.String(logging.FieldEventType, "dispatch_queued"),
		)
		return Outcome{Mode: ModeQueued, JobID: jobID}, nil
	}

	logging.WarnWithContext(logger, "broker unavailable; processing capture locally", "dispatch_local_fallback",
		logging.Error(err),
		logging.String(logging.FieldImpact, "capture runs once without queued retries"),
		logging.String(logging.FieldErrorHint, "start the shadow daemon to enable queued processing"),
	)
	d.runLocal(ctx, captureID)
	return Outcome{Mode: ModeLocal}, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, captureID string) (int64, error) {
	if d.broker == nil {
		return 0, ErrBrokerUnavailable
	}
	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.broker.Ping(probeCtx); err != nil {
		return 0, err
	}
	return d.broker.Enqueue(probeCtx, captureID)
}

func (d *Dispatcher) runLocal(ctx context.Context, captureID string) {
	if d.executor == nil {
		logging.ErrorWithContext(d.logger, "no local executor configured", "dispatch_local_unavailable",
			logging.String(logging.FieldCaptureID, captureID),
		)
		return
	}
	runCtx := services.WithRequestID(context.WithoutCancel(ctx), uuid.NewString())
	logger := logging.WithContext(runCtx, d.logger)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		started := time.Now()
		result, err := d.executor.Execute(runCtx, captureID)
		if err != nil {
			logging.ErrorWithContext(logger, "local processing failed", "dispatch_local_failed",
				logging.Error(err),
				logging.String("error_kind", string(services.KindOf(err))),
				logging.String(logging.FieldErrorHint, "run `shadow capture retry` once the cause is fixed"),
			)
			return
		}
		logger.Info("local processing finished",
			logging.String("status", string(result.Status)),
			logging.Bool("skipped", result.Skipped),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "dispatch_local_done"),
		)
	}()
}

// Wait blocks until every local run has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitTimeout waits for local runs up to limit and reports whether they
// finished.
func (d *Dispatcher) WaitTimeout(limit time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(limit):
		return false
	}
}

// IsUnavailable reports whether err came from an unreachable broker.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBrokerUnavailable)
}
