package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a broker job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusRetrying,
	StatusSucceeded,
	StatusFailed,
}

// AllStatuses returns every job state in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Active reports whether the job still has work ahead of it.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusRunning || s == StatusRetrying
}

// Job is one request to process a capture through the pipeline.
type Job struct {
	ID          int64
	CaptureID   string
	Status      Status
	Attempts    int
	MaxRetries  int
	RunAfter    time.Time
	LastError   string
	ErrorKind   string
	WorkerID    string
	HeartbeatAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinishedAt  *time.Time
}

// Stats aggregates job counts per status.
type Stats map[Status]int
