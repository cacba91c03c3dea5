package services_test

import (
	"context"
	"testing"

	"shadow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCaptureID(ctx, "cap-1")
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithWorker(ctx, "worker-2")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.CaptureIDFromContext(ctx); !ok || id != "cap-1" {
		t.Fatalf("unexpected capture id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcription" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if worker, ok := services.WorkerFromContext(ctx); !ok || worker != "worker-2" {
		t.Fatalf("unexpected worker: %v %v", worker, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
