package api

import (
	"testing"
	"time"

	"shadow/internal/capture"
	"shadow/internal/queue"
	"shadow/internal/stage"
	"shadow/internal/workflow"
)

func TestFromCaptureFormatsTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	score := 81
	dto := FromCapture(&capture.Capture{
		ID:                    "c1",
		Title:                 "Demo",
		Status:                capture.StatusReadyForReview,
		QualityScore:          &score,
		ProcessingCompletedAt: &now,
		CreatedAt:             now,
	})
	if dto.ProcessingCompletedAt != "2026-01-02T03:04:05.600Z" {
		t.Fatalf("unexpected completed timestamp %q", dto.ProcessingCompletedAt)
	}
	if dto.ProcessingStartedAt != "" || dto.PublishedAt != "" {
		t.Fatalf("expected empty optional timestamps, got %+v", dto)
	}
	if dto.QualityScore == nil || *dto.QualityScore != 81 {
		t.Fatalf("unexpected quality score %v", dto.QualityScore)
	}
	score = 5
	if *dto.QualityScore != 81 {
		t.Fatal("expected quality score copied")
	}
}

func TestFromStatusSummary(t *testing.T) {
	last := &queue.Job{ID: 3, CaptureID: "c1", Status: queue.StatusFailed, LastError: "boom"}
	wf := FromStatusSummary(workflow.StatusSummary{
		Running:     true,
		Workers:     2,
		Busy:        []workflow.WorkerStatus{{ID: "w1", JobID: 4}},
		JobStats:    map[queue.Status]int{queue.StatusQueued: 2},
		LastJob:     last,
		StageHealth: []stage.Health{stage.Healthy("analysis"), stage.Unhealthy("transcription", "not configured")},
	})
	if !wf.Running || wf.Workers != 2 || len(wf.Busy) != 1 || wf.Busy[0].JobID != 4 {
		t.Fatalf("unexpected workflow status %+v", wf)
	}
	if wf.JobStats["queued"] != 2 {
		t.Fatalf("unexpected stats %+v", wf.JobStats)
	}
	if wf.LastJob == nil || wf.LastJob.LastError != "boom" {
		t.Fatalf("unexpected last job %+v", wf.LastJob)
	}
	if len(wf.StageHealth) != 2 || wf.StageHealth[1].Detail != "not configured" {
		t.Fatalf("unexpected stage health %+v", wf.StageHealth)
	}
}

func TestSortJobsNewestFirst(t *testing.T) {
	jobs := []Job{
		{ID: 1, CreatedAt: "2026-01-01T00:00:00.000Z"},
		{ID: 3, CreatedAt: "2026-01-02T00:00:00.000Z"},
		{ID: 2, CreatedAt: "2026-01-02T00:00:00.000Z"},
	}
	sorted := SortJobsNewestFirst(jobs)
	if sorted[0].ID != 3 || sorted[1].ID != 2 || sorted[2].ID != 1 {
		t.Fatalf("unexpected order %+v", sorted)
	}
	if jobs[0].ID != 1 {
		t.Fatal("input slice must not be reordered")
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[float64]string{0: "0:00", 65: "1:05", 3725.4: "1:02:05", -3: "0:00"}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Fatalf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}
