package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shadow/internal/logging"
	"shadow/internal/queue"
	"shadow/internal/services"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.supervisor == nil {
		m.mu.Unlock()
		return errors.New("workflow supervisor not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workerCount)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.Int("workers", m.workerCount),
		logging.Duration("poll_interval", m.pollInterval),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	for i := 0; i < m.workerCount; i++ {
		go m.runWorker(runCtx, workerName(i+1))
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, workerID string) {
	defer m.wg.Done()
	ctx = services.WithWorker(ctx, workerID)
	logger := logging.WithContext(ctx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil && ctx.Err() == nil {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		job, err := m.store.ClaimNext(ctx, workerID, time.Now())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		m.processJob(ctx, logger, workerID, job)
	}
}

func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, workerID string, job *queue.Job) {
	m.setBusy(workerID, job.ID)
	defer m.setBusy(workerID, 0)

	logger.Info("job claimed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCaptureID, job.CaptureID),
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "job_claimed"),
	)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID, workerID)

	verdict := m.supervisor.Attempt(ctx, job)

	stopHeartbeat()
	hbWG.Wait()

	m.recordVerdict(ctx, logger, job, verdict)
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitForJobOrShutdown(ctx)
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
