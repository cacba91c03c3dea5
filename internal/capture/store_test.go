package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shadow/internal/capture"
	"shadow/internal/services"
	"shadow/internal/testsupport"
)

func TestCreateAndFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	c, err := store.Create(ctx, capture.NewCaptureParams{
		Title:    "Refactor session",
		MediaRef: "/storage/videos/demo.webm",
		Tags:     []string{"go", "refactor"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.ID == "" || c.Status != capture.StatusCapturing {
		t.Fatalf("unexpected capture: %#v", c)
	}
	if len(c.Tags) != 2 || c.Tags[1] != "refactor" {
		t.Fatalf("unexpected tags: %v", c.Tags)
	}
	if c.QualityScore != nil || c.ProcessingStartedAt != nil {
		t.Fatalf("expected empty analysis fields, got %#v", c)
	}

	missing, err := store.GetByID(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing capture, got %#v %v", missing, err)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Create(context.Background(), capture.NewCaptureParams{Title: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionTimestamps(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "ts", "/storage/videos/a.webm")
	if c.ProcessingCompletedAt != nil {
		t.Fatal("completed_at must be unset while processing")
	}

	if err := store.Transition(ctx, c.ID, capture.StatusProcessing, capture.StatusFailed); err != nil {
		t.Fatalf("to FAILED: %v", err)
	}
	failed, _ := store.GetByID(ctx, c.ID)
	if failed.ProcessingCompletedAt == nil {
		t.Fatal("expected completed_at after FAILED")
	}

	if err := store.Transition(ctx, c.ID, capture.StatusFailed, capture.StatusProcessing); err != nil {
		t.Fatalf("retry to PROCESSING: %v", err)
	}
	retried, _ := store.GetByID(ctx, c.ID)
	if retried.ProcessingCompletedAt != nil || retried.ProcessingStartedAt != nil {
		t.Fatalf("expected processing timestamps cleared on retry: %#v", retried)
	}

	if err := store.Transition(ctx, c.ID, capture.StatusProcessing, capture.StatusReadyForReview); err != nil {
		t.Fatalf("to READY: %v", err)
	}
	if err := store.Transition(ctx, c.ID, capture.StatusReadyForReview, capture.StatusPublished); err != nil {
		t.Fatalf("to PUBLISHED: %v", err)
	}
	published, _ := store.GetByID(ctx, c.ID)
	if published.PublishedAt == nil {
		t.Fatal("expected published_at")
	}

	err := store.Transition(ctx, c.ID, capture.StatusPublished, capture.StatusCapturing)
	if !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if _, err := store.TransitionFromCurrent(ctx, c.ID, capture.StatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}
}

func TestTransitionIsCompareAndSet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewCapture(t, store, "race", "/storage/videos/a.webm")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Transition(ctx, c.ID, capture.StatusCapturing, capture.StatusProcessing); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestForceFailedOnlyAffectsProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewCapture(t, store, "idle", "")

	if err := store.ForceFailed(ctx, c.ID); err != nil {
		t.Fatalf("ForceFailed: %v", err)
	}
	got, _ := store.GetByID(ctx, c.ID)
	if got.Status != capture.StatusCapturing {
		t.Fatalf("expected CAPTURING untouched, got %s", got.Status)
	}

	p := testsupport.NewProcessingCapture(t, store, "busy", "")
	if err := store.ForceFailed(ctx, p.ID); err != nil {
		t.Fatalf("ForceFailed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.Status != capture.StatusFailed || got.ProcessingCompletedAt == nil {
		t.Fatalf("expected FAILED with completed_at, got %#v", got)
	}
}

func TestReplaceAnalysisReplacesOnRerun(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "analysis", "")

	chapters := []capture.Chapter{
		{Title: "Intro", StartSeconds: 0, EndSeconds: 60},
		{Title: "Work", StartSeconds: 60, EndSeconds: 120},
	}
	points := []capture.DecisionPoint{
		{TimestampSeconds: 30, Description: "pick sqlite", Reasoning: "simple", Alternatives: []string{"postgres"}, Confidence: 0.8},
		{TimestampSeconds: 120, Description: "ship", Reasoning: "done", Confidence: 0.5},
	}
	analysis := capture.Analysis{ExecutiveSummary: "summary", KeyTakeaways: []string{"a", "b"}, QualityScore: 72}

	for run := 0; run < 2; run++ {
		if err := store.ReplaceAnalysis(ctx, c.ID, analysis, chapters, points); err != nil {
			t.Fatalf("ReplaceAnalysis run %d: %v", run, err)
		}
	}

	gotChapters, err := store.Chapters(ctx, c.ID)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(gotChapters) != 2 || gotChapters[1].Title != "Work" {
		t.Fatalf("expected 2 chapters after rerun, got %#v", gotChapters)
	}
	gotPoints, err := store.DecisionPoints(ctx, c.ID)
	if err != nil {
		t.Fatalf("DecisionPoints: %v", err)
	}
	if len(gotPoints) != 2 {
		t.Fatalf("expected 2 decision points after rerun, got %d", len(gotPoints))
	}
	if gotPoints[0].ChapterID != gotChapters[0].ID {
		t.Fatalf("expected first point in first chapter")
	}
	if gotPoints[1].ChapterID != gotChapters[1].ID {
		t.Fatalf("expected point at the final boundary in last chapter")
	}
	if len(gotPoints[0].Alternatives) != 1 || gotPoints[0].Alternatives[0] != "postgres" {
		t.Fatalf("unexpected alternatives: %v", gotPoints[0].Alternatives)
	}

	got, _ := store.GetByID(ctx, c.ID)
	if got.ExecutiveSummary != "summary" || got.QualityScore == nil || *got.QualityScore != 72 {
		t.Fatalf("unexpected summary fields: %#v", got)
	}
	if len(got.KeyTakeaways) != 2 {
		t.Fatalf("unexpected takeaways: %v", got.KeyTakeaways)
	}
}

func TestReplaceAnalysisRollsBackOnInvalidChapter(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "rollback", "")

	good := []capture.Chapter{{Title: "Intro", StartSeconds: 0, EndSeconds: 10}}
	if err := store.ReplaceAnalysis(ctx, c.ID, capture.Analysis{QualityScore: 50}, good, nil); err != nil {
		t.Fatalf("ReplaceAnalysis: %v", err)
	}
	bad := []capture.Chapter{{Title: "Broken", StartSeconds: 10, EndSeconds: 5}}
	if err := store.ReplaceAnalysis(ctx, c.ID, capture.Analysis{QualityScore: 50}, bad, nil); err == nil {
		t.Fatal("expected constraint failure")
	}
	chapters, _ := store.Chapters(ctx, c.ID)
	if len(chapters) != 1 || chapters[0].Title != "Intro" {
		t.Fatalf("expected original chapters preserved, got %#v", chapters)
	}
}

func TestDeleteCascades(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "cascade", "")

	chapters := []capture.Chapter{{Title: "Only", StartSeconds: 0, EndSeconds: 10}}
	points := []capture.DecisionPoint{{TimestampSeconds: 5, Description: "d", Reasoning: "r", Confidence: 0.5}}
	if err := store.ReplaceAnalysis(ctx, c.ID, capture.Analysis{}, chapters, points); err != nil {
		t.Fatalf("ReplaceAnalysis: %v", err)
	}

	deleted, err := store.Delete(ctx, c.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: %v %v", deleted, err)
	}
	gotChapters, _ := store.Chapters(ctx, c.ID)
	gotPoints, _ := store.DecisionPoints(ctx, c.ID)
	if len(gotChapters) != 0 || len(gotPoints) != 0 {
		t.Fatalf("expected cascade delete, got %d chapters %d points", len(gotChapters), len(gotPoints))
	}
}

func TestLease(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "lease", "")

	ok, err := store.AcquireLease(ctx, c.ID, "worker-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	ok, err = store.AcquireLease(ctx, c.ID, "worker-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second worker rejected: %v %v", ok, err)
	}
	if err := store.ReleaseLease(ctx, c.ID, "worker-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = store.AcquireLease(ctx, c.ID, "worker-b", -time.Second)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release: %v %v", ok, err)
	}
	ok, err = store.AcquireLease(ctx, c.ID, "worker-c", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected expired lease to be reclaimable: %v %v", ok, err)
	}
}

func TestLeaseRejectsSameOwnerWhileHeld(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c := testsupport.NewProcessingCapture(t, store, "reentry", "")

	if ok, err := store.AcquireLease(ctx, c.ID, "host-1/run", time.Minute); err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	ok, err := store.AcquireLease(ctx, c.ID, "host-1/run", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected held lease to refuse its own owner: %v %v", ok, err)
	}
}

func TestLeaseRequiresProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	idle := testsupport.NewCapture(t, store, "idle", "")
	if ok, err := store.AcquireLease(ctx, idle.ID, "worker-a", time.Minute); err != nil || ok {
		t.Fatalf("expected no lease on CAPTURING capture: %v %v", ok, err)
	}

	done := testsupport.NewProcessingCapture(t, store, "done", "")
	if err := store.Transition(ctx, done.ID, capture.StatusProcessing, capture.StatusReadyForReview); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if ok, err := store.AcquireLease(ctx, done.ID, "worker-a", time.Minute); err != nil || ok {
		t.Fatalf("expected no lease on READY_FOR_REVIEW capture: %v %v", ok, err)
	}
	got, _ := store.GetByID(ctx, done.ID)
	if got.ClaimedBy != "" {
		t.Fatalf("expected finished capture unclaimed, got %q", got.ClaimedBy)
	}
}

func TestListAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewCapture(t, store, "one", "")
	testsupport.NewProcessingCapture(t, store, "two", "")

	all, err := store.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List: %d %v", len(all), err)
	}
	processing, err := store.List(ctx, capture.StatusProcessing)
	if err != nil || len(processing) != 1 || processing[0].Title != "two" {
		t.Fatalf("filtered List: %#v %v", processing, err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[capture.StatusCapturing] != 1 || stats[capture.StatusProcessing] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
