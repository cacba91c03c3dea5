package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shadow/internal/capture"
	"shadow/internal/pipeline"
	"shadow/internal/queue"
	"shadow/internal/stage"
	"shadow/internal/testsupport"
	"shadow/internal/workflow"
)

func waitForJob(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), id)
	t.Fatalf("job %d did not reach %s, last state %+v", id, want, job)
	return nil
}

func TestManagerProcessesQueuedCapture(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	captures := testsupport.MustOpenStore(t, cfg)
	jobs := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	c := testsupport.NewProcessingCapture(t, captures, "demo", "/storage/videos/demo.webm")
	executor := pipeline.NewExecutor(cfg, captures, testsupport.NewFakeTranscriber("first second", 90), &testsupport.FakeAnalyzer{}, nil)
	sup := workflow.NewSupervisor(cfg, captures, executor, nil)
	mgr := workflow.NewManager(cfg, jobs, sup, nil, workflow.WithPollInterval(10*time.Millisecond))

	job, err := jobs.Enqueue(ctx, c.ID, cfg.Workflow.MaxRetries)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	done := waitForJob(t, jobs, job.ID, queue.StatusSucceeded)
	if done.Attempts != 1 || done.FinishedAt == nil {
		t.Fatalf("unexpected finished job: %+v", done)
	}
	got, err := captures.GetByID(ctx, c.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != capture.StatusReadyForReview {
		t.Fatalf("expected READY_FOR_REVIEW, got %s", got.Status)
	}
}

func TestManagerRetriesInfrastructureFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryPolicy(3, 0))
	captures := testsupport.MustOpenStore(t, cfg)
	jobs := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	c := testsupport.NewProcessingCapture(t, captures, "demo", "demo.webm")
	runner := &stubRunner{errs: []error{infraErr(), infraErr()}}
	sup := workflow.NewSupervisor(cfg, captures, runner, nil)
	mgr := workflow.NewManager(cfg, jobs, sup, nil, workflow.WithPollInterval(10*time.Millisecond))

	job, err := jobs.Enqueue(ctx, c.ID, cfg.Workflow.MaxRetries)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	done := waitForJob(t, jobs, job.ID, queue.StatusSucceeded)
	if done.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", done.Attempts)
	}
	if runner.Calls() != 3 {
		t.Fatalf("expected 3 executions, got %d", runner.Calls())
	}
}

func TestManagerFailsAfterRetriesExhausted(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryPolicy(1, 0))
	captures := testsupport.MustOpenStore(t, cfg)
	jobs := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	c := testsupport.NewProcessingCapture(t, captures, "demo", "demo.webm")
	runner := &stubRunner{errs: []error{infraErr(), infraErr(), infraErr()}}
	sup := workflow.NewSupervisor(cfg, captures, runner, nil)
	mgr := workflow.NewManager(cfg, jobs, sup, nil, workflow.WithPollInterval(10*time.Millisecond))

	job, _ := jobs.Enqueue(ctx, c.ID, cfg.Workflow.MaxRetries)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	failed := waitForJob(t, jobs, job.ID, queue.StatusFailed)
	if failed.Attempts != 2 || failed.ErrorKind != "infrastructure" || failed.LastError == "" {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
	if runner.Calls() != 2 {
		t.Fatalf("expected 2 executions, got %d", runner.Calls())
	}

	status := mgr.Status(ctx)
	if !status.Running || status.LastError == "" || status.JobStats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected status summary: %+v", status)
	}
}

type readyProbe struct{}

func (readyProbe) Configured() bool                  { return true }
func (readyProbe) HealthCheck(context.Context) error { return nil }

type brokenProbe struct{}

func (brokenProbe) Configured() bool                  { return true }
func (brokenProbe) HealthCheck(context.Context) error { return errors.New("http 401: bad key") }

func TestManagerStatusReportsProbes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	captures := testsupport.MustOpenStore(t, cfg)
	jobs := testsupport.MustOpenQueue(t, cfg)
	sup := workflow.NewSupervisor(cfg, captures, &stubRunner{}, nil)
	mgr := workflow.NewManager(cfg, jobs, sup, nil, workflow.WithProbes(
		stage.Probe{Name: "transcription", Checker: readyProbe{}},
		stage.Probe{Name: "analysis", Checker: brokenProbe{}},
	))

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected stopped manager")
	}
	if status.Workers != cfg.Workflow.Workers {
		t.Fatalf("expected %d workers, got %d", cfg.Workflow.Workers, status.Workers)
	}
	if len(status.StageHealth) != 2 || status.StageHealth[0].Name != "analysis" || status.StageHealth[0].Ready {
		t.Fatalf("unexpected stage health: %+v", status.StageHealth)
	}
	if !status.StageHealth[1].Ready {
		t.Fatalf("expected transcription ready: %+v", status.StageHealth)
	}
}
