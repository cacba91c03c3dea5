package capture_test

import (
	"errors"
	"testing"

	"shadow/internal/capture"
	"shadow/internal/services"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to capture.Status
		want     bool
	}{
		{capture.StatusCapturing, capture.StatusProcessing, true},
		{capture.StatusProcessing, capture.StatusReadyForReview, true},
		{capture.StatusProcessing, capture.StatusFailed, true},
		{capture.StatusFailed, capture.StatusProcessing, true},
		{capture.StatusReadyForReview, capture.StatusPublished, true},
		{capture.StatusProcessing, capture.StatusArchived, true},
		{capture.StatusPublished, capture.StatusArchived, true},
		{capture.StatusFailed, capture.StatusArchived, true},
		{capture.StatusCapturing, capture.StatusArchived, false},
		{capture.StatusArchived, capture.StatusArchived, false},
		{capture.StatusPublished, capture.StatusCapturing, false},
		{capture.StatusReadyForReview, capture.StatusProcessing, false},
		{capture.StatusCapturing, capture.StatusReadyForReview, false},
		{capture.StatusArchived, capture.StatusProcessing, false},
		{capture.Status("BOGUS"), capture.StatusArchived, false},
	}
	for _, tc := range cases {
		if got := capture.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCheckTransitionReturnsInvalidOperation(t *testing.T) {
	err := capture.CheckTransition(capture.StatusPublished, capture.StatusCapturing)
	if !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if err := capture.CheckTransition(capture.StatusCapturing, capture.StatusProcessing); err != nil {
		t.Fatalf("expected legal transition, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := capture.ParseStatus(" ready_for_review ")
	if !ok || status != capture.StatusReadyForReview {
		t.Fatalf("unexpected parse result %q %v", status, ok)
	}
	if _, ok := capture.ParseStatus("done"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
