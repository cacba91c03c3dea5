package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shadow/internal/logging"
	"shadow/internal/queue"
)

const persistTimeout = 10 * time.Second

// recordVerdict stores the outcome of an attempt. Writes use a detached
// context so a verdict reached during shutdown is still persisted.
func (m *Manager) recordVerdict(ctx context.Context, logger *slog.Logger, job *queue.Job, verdict Verdict) {
	if verdict.Kind == VerdictInterrupted {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	switch verdict.Kind {
	case VerdictSucceeded:
		err = m.store.Complete(pctx, job.ID)
	case VerdictRetry:
		err = m.store.ScheduleRetry(pctx, job.ID, verdict.At, verdict.Reason, verdict.ErrorKind)
	default:
		err = m.store.Fail(pctx, job.ID, verdict.Reason, verdict.ErrorKind)
		m.setLastError(errors.New(verdict.Reason))
	}
	if err != nil {
		logger.Error("failed to persist job verdict",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("verdict", string(verdict.Kind)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		m.setLastError(err)
	}

	if updated, getErr := m.store.GetByID(pctx, job.ID); getErr == nil && updated != nil {
		m.setLastJob(updated)
	} else {
		m.setLastJob(job)
	}
}
