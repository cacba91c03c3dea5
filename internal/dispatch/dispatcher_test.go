package dispatch_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shadow/internal/capture"
	"shadow/internal/dispatch"
	"shadow/internal/logging"
	"shadow/internal/pipeline"
	"shadow/internal/services"
	"shadow/internal/testsupport"
)

type fakeBroker struct {
	pingErr    error
	enqueueErr error
	jobID      int64

	mu       sync.Mutex
	enqueued []string
}

func (b *fakeBroker) Ping(context.Context) error { return b.pingErr }

func (b *fakeBroker) Enqueue(_ context.Context, captureID string) (int64, error) {
	if b.enqueueErr != nil {
		return 0, b.enqueueErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enqueued = append(b.enqueued, captureID)
	return b.jobID, nil
}

type countingExecutor struct {
	mu      sync.Mutex
	calls   []string
	ctxErrs []error
	release chan struct{}
}

func (e *countingExecutor) Execute(ctx context.Context, captureID string) (pipeline.Result, error) {
	if e.release != nil {
		<-e.release
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, captureID)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
	return pipeline.Result{CaptureID: captureID, Status: capture.StatusReadyForReview}, nil
}

func (e *countingExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func TestDispatchQueuesWhenBrokerReachable(t *testing.T) {
	broker := &fakeBroker{jobID: 42}
	exec := &countingExecutor{}
	d := dispatch.New(broker, exec, time.Second, logging.NewNop())

	outcome, err := d.Dispatch(context.Background(), "cap-1")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	d.Wait()
	if outcome.Mode != dispatch.ModeQueued || outcome.JobID != 42 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(broker.enqueued) != 1 || broker.enqueued[0] != "cap-1" {
		t.Fatalf("expected capture enqueued once, got %v", broker.enqueued)
	}
	if calls := exec.Calls(); len(calls) != 0 {
		t.Fatalf("expected no local runs, got %v", calls)
	}
}

func TestDispatchFallsBackLocally(t *testing.T) {
	cases := []struct {
		name   string
		broker dispatch.Broker
	}{
		{name: "ping fails", broker: &fakeBroker{pingErr: dispatch.ErrBrokerUnavailable}},
		{name: "enqueue fails", broker: &fakeBroker{enqueueErr: errors.New("database is locked")}},
		{name: "no broker", broker: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := &countingExecutor{}
			d := dispatch.New(tc.broker, exec, time.Second, logging.NewNop())

			outcome, err := d.Dispatch(context.Background(), "cap-1")
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if outcome.Mode != dispatch.ModeLocal || outcome.JobID != 0 {
				t.Fatalf("unexpected outcome %+v", outcome)
			}
			d.Wait()
			if calls := exec.Calls(); len(calls) != 1 || calls[0] != "cap-1" {
				t.Fatalf("expected exactly one local run, got %v", calls)
			}
		})
	}
}

func TestLocalRunOutlivesCallerContext(t *testing.T) {
	exec := &countingExecutor{release: make(chan struct{})}
	d := dispatch.New(&fakeBroker{pingErr: dispatch.ErrBrokerUnavailable}, exec, time.Second, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := d.Dispatch(ctx, "cap-1"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	cancel()
	if d.WaitTimeout(50 * time.Millisecond) {
		t.Fatal("expected local run to still be blocked")
	}
	close(exec.release)
	d.Wait()

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.ctxErrs) != 1 || exec.ctxErrs[0] != nil {
		t.Fatalf("expected detached context, got %v", exec.ctxErrs)
	}
}

func TestDispatchRejectsBlankCapture(t *testing.T) {
	exec := &countingExecutor{}
	d := dispatch.New(&fakeBroker{}, exec, time.Second, logging.NewNop())
	_, err := d.Dispatch(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls := exec.Calls(); len(calls) != 0 {
		t.Fatalf("expected no runs, got %v", calls)
	}
}

func TestSocketBrokerUnreachable(t *testing.T) {
	broker := dispatch.NewSocketBroker(filepath.Join(t.TempDir(), "missing.sock"), 200*time.Millisecond)
	err := broker.Ping(context.Background())
	if !dispatch.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestDispatchRunsPipelineLocallyEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	c := testsupport.NewProcessingCapture(t, store, "Quarterly planning", "https://media.example.com/q3.webm")

	exec := pipeline.NewExecutor(cfg, store,
		testsupport.NewFakeTranscriber("We will ship the roadmap in October.", 180),
		&testsupport.FakeAnalyzer{},
		logging.NewNop(),
	)
	broker := dispatch.NewSocketBroker(cfg.Broker.SocketPath, cfg.Broker.ProbeTimeout())
	d := dispatch.New(broker, exec, cfg.Broker.ProbeTimeout(), logging.NewNop())

	outcome, err := d.Dispatch(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome.Mode != dispatch.ModeLocal {
		t.Fatalf("expected local mode without a daemon, got %+v", outcome)
	}
	d.Wait()

	got, err := store.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != capture.StatusReadyForReview {
		t.Fatalf("expected READY_FOR_REVIEW, got %s", got.Status)
	}
}
