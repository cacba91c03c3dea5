package ipc

import "shadow/internal/api"

// PingRequest probes broker reachability.
type PingRequest struct{}

// PingResponse reports the broker process serving the socket.
type PingResponse struct {
	OK  bool `json:"ok"`
	PID int  `json:"pid"`
}

// EnqueueRequest hands a capture to the broker.
type EnqueueRequest struct {
	CaptureID string `json:"captureId"`
}

// EnqueueResponse returns the job carrying the capture. Reused reports that
// an active job already existed.
type EnqueueResponse struct {
	Job    api.Job `json:"job"`
	Reused bool    `json:"reused"`
}

// StatusRequest asks for daemon status.
type StatusRequest struct{}

// StatusResponse returns daemon status.
type StatusResponse struct {
	api.DaemonStatus
}

// JobsRequest filters the job listing by status.
type JobsRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// JobsResponse lists broker jobs, newest first.
type JobsResponse struct {
	Jobs []api.Job `json:"jobs"`
}

// ClearFinishedRequest removes succeeded and failed jobs.
type ClearFinishedRequest struct{}

// ClearFinishedResponse reports how many jobs were removed.
type ClearFinishedResponse struct {
	Removed int64 `json:"removed"`
}
