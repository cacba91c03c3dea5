package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shadow/internal/config"
	"shadow/internal/logging"
	"shadow/internal/queue"
	"shadow/internal/workflow"
)

// Daemon hosts the queue workers and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, requeues jobs orphaned by a previous run,
// and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shadow daemon instance is already running")
	}

	// Holding the lock means no other process owns a running job.
	reset, err := d.store.ResetRunning(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset running jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("requeued jobs left running by a previous daemon",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "jobs_requeued"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("shadow daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shadow daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Enqueue queues a capture for processing. An active job for the same
// capture is returned instead of a duplicate.
func (d *Daemon) Enqueue(ctx context.Context, captureID string) (*queue.Job, error) {
	captureID = strings.TrimSpace(captureID)
	if captureID == "" {
		return nil, errors.New("capture id is required")
	}
	if !d.running.Load() {
		return nil, errors.New("daemon is not processing jobs")
	}
	job, err := d.store.Enqueue(ctx, captureID, d.cfg.Workflow.MaxRetries)
	if err != nil {
		return nil, err
	}
	d.logger.Info("capture queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCaptureID, captureID),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)
	return job, nil
}

// ListJobs returns jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// JobsForCapture returns every job recorded for a capture.
func (d *Daemon) JobsForCapture(ctx context.Context, captureID string) ([]*queue.Job, error) {
	return d.store.ForCapture(ctx, strings.TrimSpace(captureID))
}

// ClearFinished removes succeeded and failed jobs.
func (d *Daemon) ClearFinished(ctx context.Context) (int64, error) {
	return d.store.ClearFinished(ctx, time.Time{})
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
}
