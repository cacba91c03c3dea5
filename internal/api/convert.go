package api

import (
	"time"

	"shadow/internal/capture"
	"shadow/internal/queue"
	"shadow/internal/stage"
	"shadow/internal/workflow"
)

// FromCapture converts a capture record to its API representation.
func FromCapture(c *capture.Capture) Capture {
	if c == nil {
		return Capture{}
	}
	dto := Capture{
		ID:                    c.ID,
		Title:                 c.Title,
		Description:           c.Description,
		Status:                string(c.Status),
		MediaRef:              c.MediaRef,
		Transcript:            c.Transcript,
		DurationSeconds:       c.DurationSeconds,
		ExecutiveSummary:      c.ExecutiveSummary,
		KeyTakeaways:          c.KeyTakeaways,
		Tags:                  c.Tags,
		ProcessingStartedAt:   formatOptional(c.ProcessingStartedAt),
		ProcessingCompletedAt: formatOptional(c.ProcessingCompletedAt),
		PublishedAt:           formatOptional(c.PublishedAt),
		ArchivedAt:            formatOptional(c.ArchivedAt),
		CreatedAt:             FormatTime(c.CreatedAt),
		UpdatedAt:             FormatTime(c.UpdatedAt),
	}
	if c.QualityScore != nil {
		score := *c.QualityScore
		dto.QualityScore = &score
	}
	return dto
}

// FromCaptures converts a slice of capture records.
func FromCaptures(captures []*capture.Capture) []Capture {
	if len(captures) == 0 {
		return nil
	}
	out := make([]Capture, 0, len(captures))
	for _, c := range captures {
		out = append(out, FromCapture(c))
	}
	return out
}

// FromChapters converts stored chapters.
func FromChapters(chapters []capture.Chapter) []Chapter {
	out := make([]Chapter, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, Chapter{
			ID:         ch.ID,
			OrderIndex: ch.OrderIndex,
			Title:      ch.Title,
			Start:      ch.StartSeconds,
			End:        ch.EndSeconds,
			Summary:    ch.Summary,
		})
	}
	return out
}

// FromDecisionPoints converts stored decision points.
func FromDecisionPoints(points []capture.DecisionPoint) []DecisionPoint {
	out := make([]DecisionPoint, 0, len(points))
	for _, dp := range points {
		out = append(out, DecisionPoint{
			ID:            dp.ID,
			ChapterID:     dp.ChapterID,
			OrderIndex:    dp.OrderIndex,
			Timestamp:     dp.TimestampSeconds,
			Description:   dp.Description,
			Reasoning:     dp.Reasoning,
			Alternatives:  dp.Alternatives,
			ContextBefore: dp.ContextBefore,
			Confidence:    dp.Confidence,
			UserVerified:  dp.UserVerified,
		})
	}
	return out
}

// FromJob converts a queue job to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:          job.ID,
		CaptureID:   job.CaptureID,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		MaxRetries:  job.MaxRetries,
		RunAfter:    FormatTime(job.RunAfter),
		LastError:   job.LastError,
		ErrorKind:   job.ErrorKind,
		WorkerID:    job.WorkerID,
		HeartbeatAt: formatOptional(job.HeartbeatAt),
		CreatedAt:   FormatTime(job.CreatedAt),
		UpdatedAt:   FormatTime(job.UpdatedAt),
		FinishedAt:  formatOptional(job.FinishedAt),
	}
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	busy := make([]WorkerStatus, 0, len(summary.Busy))
	for _, w := range summary.Busy {
		busy = append(busy, WorkerStatus{ID: w.ID, JobID: w.JobID})
	}
	wf := WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		Busy:        busy,
		JobStats:    MergeJobStats(summary.JobStats),
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeJobStats produces a string-keyed representation of job stats.
func MergeJobStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts stage health records.
func StageHealthSlice(health []stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}
