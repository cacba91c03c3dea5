package workflow

import (
	"context"
	"sort"

	"shadow/internal/logging"
	"shadow/internal/queue"
	"shadow/internal/stage"
)

// WorkerStatus describes one queue worker.
type WorkerStatus struct {
	ID    string
	JobID int64
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	Busy        []WorkerStatus
	LastError   string
	LastJob     *queue.Job
	JobStats    map[queue.Status]int
	StageHealth []stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	busy := make([]WorkerStatus, 0, len(m.busy))
	for id, jobID := range m.busy {
		busy = append(busy, WorkerStatus{ID: id, JobID: jobID})
	}
	m.mu.RUnlock()
	sort.Slice(busy, func(i, j int) bool { return busy[i].ID < busy[j].ID })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     m.workerCount,
		Busy:        busy,
		JobStats:    stats,
		StageHealth: stage.CheckAll(ctx, m.probes...),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setBusy(workerID string, jobID int64) {
	m.mu.Lock()
	if jobID == 0 {
		delete(m.busy, workerID)
	} else {
		m.busy[workerID] = jobID
	}
	m.mu.Unlock()
}
