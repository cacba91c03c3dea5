package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Capture describes a capture in a transport-friendly format.
type Capture struct {
	ID                    string   `json:"id"`
	Title                 string   `json:"title"`
	Description           string   `json:"description,omitempty"`
	Status                string   `json:"status"`
	MediaRef              string   `json:"mediaRef,omitempty"`
	Transcript            string   `json:"transcript,omitempty"`
	DurationSeconds       int      `json:"durationSeconds"`
	ExecutiveSummary      string   `json:"executiveSummary,omitempty"`
	KeyTakeaways          []string `json:"keyTakeaways,omitempty"`
	QualityScore          *int     `json:"qualityScore,omitempty"`
	Tags                  []string `json:"tags,omitempty"`
	ProcessingStartedAt   string   `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt string   `json:"processingCompletedAt,omitempty"`
	PublishedAt           string   `json:"publishedAt,omitempty"`
	ArchivedAt            string   `json:"archivedAt,omitempty"`
	CreatedAt             string   `json:"createdAt,omitempty"`
	UpdatedAt             string   `json:"updatedAt,omitempty"`
}

// Chapter is an ordered section of a capture.
type Chapter struct {
	ID         string  `json:"id"`
	OrderIndex int     `json:"orderIndex"`
	Title      string  `json:"title"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Summary    string  `json:"summary,omitempty"`
}

// DecisionPoint is a recorded choice within a capture.
type DecisionPoint struct {
	ID            string   `json:"id"`
	ChapterID     string   `json:"chapterId,omitempty"`
	OrderIndex    int      `json:"orderIndex"`
	Timestamp     float64  `json:"timestamp"`
	Description   string   `json:"description"`
	Reasoning     string   `json:"reasoning,omitempty"`
	Alternatives  []string `json:"alternatives,omitempty"`
	ContextBefore string   `json:"contextBefore,omitempty"`
	Confidence    float64  `json:"confidence"`
	UserVerified  bool     `json:"userVerified"`
}

// CaptureDetail bundles a capture with its analysis artifacts.
type CaptureDetail struct {
	Capture        Capture         `json:"capture"`
	Chapters       []Chapter       `json:"chapters"`
	DecisionPoints []DecisionPoint `json:"decisionPoints"`
}

// Job describes a broker job.
type Job struct {
	ID          int64  `json:"id"`
	CaptureID   string `json:"captureId"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	MaxRetries  int    `json:"maxRetries"`
	RunAfter    string `json:"runAfter,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	WorkerID    string `json:"workerId,omitempty"`
	HeartbeatAt string `json:"heartbeatAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	FinishedAt  string `json:"finishedAt,omitempty"`
}

// WorkerStatus names a busy worker and the job it holds.
type WorkerStatus struct {
	ID    string `json:"id"`
	JobID int64  `json:"jobId"`
}

// StageHealth mirrors readiness reporting for pipeline providers.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes queue worker state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	Busy        []WorkerStatus `json:"busy"`
	JobStats    map[string]int `json:"jobStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Job           `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	LogPath      string         `json:"logPath,omitempty"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// DispatchMode reports where a capture's processing was routed.
type DispatchMode string

const (
	// DispatchQueued means the daemon broker accepted a job.
	DispatchQueued DispatchMode = "queued"
	// DispatchLocal means a local worker goroutine is running the pipeline once.
	DispatchLocal DispatchMode = "local"
)

// DispatchOutcome is the result of handing a capture to the dispatcher.
type DispatchOutcome struct {
	Mode  DispatchMode `json:"mode"`
	JobID int64        `json:"jobId,omitempty"`
}
