package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"shadow/internal/config"
	"shadow/internal/logging"
	"shadow/internal/queue"
	"shadow/internal/stage"
)

// Manager runs queue workers that feed claimed jobs to the Supervisor.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	supervisor   *Supervisor
	logger       *slog.Logger
	pollInterval time.Duration
	workerCount  int
	probes       []stage.Probe

	heartbeat *HeartbeatMonitor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
	busy    map[string]int64
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPollInterval overrides the idle poll cadence.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithHeartbeat overrides the heartbeat interval and stale timeout.
func WithHeartbeat(interval, timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.heartbeat = NewHeartbeatMonitor(m.store, m.logger, interval, timeout)
	}
}

// WithProbes registers provider health probes reported by Status.
func WithProbes(probes ...stage.Probe) ManagerOption {
	return func(m *Manager) {
		m.probes = append(m.probes, probes...)
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, supervisor *Supervisor, logger *slog.Logger, opts ...ManagerOption) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	m := &Manager{
		cfg:          cfg,
		store:        store,
		supervisor:   supervisor,
		logger:       logger,
		pollInterval: cfg.Workflow.PollInterval(),
		workerCount:  cfg.Workflow.Workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			cfg.Workflow.HeartbeatInterval(),
			cfg.Workflow.HeartbeatTimeout(),
		),
		busy: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.workerCount <= 0 {
		m.workerCount = 1
	}
	return m
}

func workerName(index int) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "shadow"
	}
	return fmt.Sprintf("%s-%d-w%d", host, os.Getpid(), index)
}
