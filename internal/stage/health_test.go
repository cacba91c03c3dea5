package stage

import (
	"context"
	"errors"
	"testing"
)

type fakeChecker struct {
	configured bool
	err        error
	calls      int
}

func (f *fakeChecker) Configured() bool { return f.configured }

func (f *fakeChecker) HealthCheck(context.Context) error {
	f.calls++
	return f.err
}

func TestCheckSkipsUnconfigured(t *testing.T) {
	checker := &fakeChecker{}
	health := Check(context.Background(), Probe{Name: "analysis", Checker: checker})
	if health.Ready || health.Detail != "not configured" {
		t.Fatalf("unexpected health: %+v", health)
	}
	if checker.calls != 0 {
		t.Fatalf("expected no health call, got %d", checker.calls)
	}
}

func TestCheckReportsFailureReason(t *testing.T) {
	checker := &fakeChecker{configured: true, err: errors.New("http 401: bad key\nmore detail")}
	health := Check(context.Background(), Probe{Name: "transcription", Checker: checker})
	if health.Ready {
		t.Fatal("expected unhealthy result")
	}
	if health.Detail != "http 401: bad key" {
		t.Fatalf("expected first line of error, got %q", health.Detail)
	}
}

func TestCheckAllOrdersByName(t *testing.T) {
	results := CheckAll(context.Background(),
		Probe{Name: "transcription", Checker: &fakeChecker{configured: true}},
		Probe{Name: "analysis", Checker: nil},
	)
	if len(results) != 2 || results[0].Name != "analysis" || results[1].Name != "transcription" {
		t.Fatalf("unexpected order: %+v", results)
	}
	if !results[1].Ready || results[0].Ready {
		t.Fatalf("unexpected readiness: %+v", results)
	}
}
