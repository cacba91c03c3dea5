package testsupport

import (
	"context"
	"testing"

	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/queue"
)

// MustOpenStore opens a capture.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *capture.Store {
	t.Helper()

	store, err := capture.Open(cfg)
	if err != nil {
		t.Fatalf("capture.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenQueue opens the broker job store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCapture creates a capture with the given media reference.
func NewCapture(t testing.TB, store *capture.Store, title, mediaRef string) *capture.Capture {
	t.Helper()

	c, err := store.Create(context.Background(), capture.NewCaptureParams{Title: title, MediaRef: mediaRef})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return c
}

// NewProcessingCapture creates a capture already moved into PROCESSING.
func NewProcessingCapture(t testing.TB, store *capture.Store, title, mediaRef string) *capture.Capture {
	t.Helper()

	c := NewCapture(t, store, title, mediaRef)
	if err := store.Transition(context.Background(), c.ID, capture.StatusCapturing, capture.StatusProcessing); err != nil {
		t.Fatalf("store.Transition: %v", err)
	}
	updated, err := store.GetByID(context.Background(), c.ID)
	if err != nil || updated == nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return updated
}
