package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"shadow/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "analysis", "chapters", "failed", base)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"analysis", "chapters", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestPipelineErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Infrastructure("persist", "save chapters", "", cause)
	if !errors.Is(err, services.ErrInfrastructure) {
		t.Fatalf("expected infrastructure marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable, got %v", err)
	}
	wrapped := fmt.Errorf("attempt 2: %w", err)
	if kind := services.KindOf(wrapped); kind != services.KindInfrastructure {
		t.Fatalf("expected infrastructure kind through wrapping, got %s", kind)
	}
	if !strings.Contains(err.Error(), "save chapters") {
		t.Fatalf("expected op in message: %s", err.Error())
	}
}

func TestRetryableOnlyForInfrastructure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"structural", services.Structural("load", "", "no media", nil), false},
		{"path", services.PathSecurity("transcription", "resolve", "outside root", nil), false},
		{"provider", services.Provider("analysis", "", "", errors.New("503")), false},
		{"infrastructure", services.Infrastructure("persist", "", "", errors.New("locked")), true},
		{"untagged", errors.New("surprise"), true},
		{"external service", services.ExternalService("analysis", "bad json", nil), false},
	}
	for _, tc := range tests {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestInvalidOperationMarker(t *testing.T) {
	err := services.InvalidOperation("cannot move PUBLISHED to CAPTURING")
	if !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation marker, got %v", err)
	}
}

func TestReasonSingleLine(t *testing.T) {
	err := errors.New("upload failed: 502\n<html>bad gateway</html>")
	if got := services.Reason(err); got != "upload failed: 502" {
		t.Fatalf("unexpected reason %q", got)
	}
	long := errors.New(strings.Repeat("x", 500))
	if got := services.Reason(long); len([]rune(got)) != 200 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated reason, got %d runes", len([]rune(got)))
	}
	if got := services.Reason(nil); got != "" {
		t.Fatalf("expected empty reason for nil, got %q", got)
	}
}
