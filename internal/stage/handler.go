package stage

import (
	"context"
	"sort"

	"shadow/internal/services"
)

// Checker describes a pipeline dependency that can report readiness.
type Checker interface {
	Configured() bool
	HealthCheck(context.Context) error
}

// Probe names a Checker for reporting.
type Probe struct {
	Name    string
	Checker Checker
}

// Check runs one probe. Unconfigured dependencies are reported unhealthy
// without contacting them.
func Check(ctx context.Context, probe Probe) Health {
	if probe.Checker == nil || !probe.Checker.Configured() {
		return Unhealthy(probe.Name, "not configured")
	}
	if err := probe.Checker.HealthCheck(ctx); err != nil {
		return Unhealthy(probe.Name, services.Reason(err))
	}
	return Healthy(probe.Name)
}

// CheckAll runs every probe and returns the results ordered by name.
func CheckAll(ctx context.Context, probes ...Probe) []Health {
	out := make([]Health, 0, len(probes))
	for _, probe := range probes {
		out = append(out, Check(ctx, probe))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
