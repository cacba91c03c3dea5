package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"shadow/internal/config"
	"shadow/internal/services"
	"shadow/internal/services/llm"
	"shadow/internal/services/transcription"
	"shadow/internal/stage"
)

const providerCheckTimeout = 30 * time.Second

// CheckTranscription verifies that the transcription API is reachable and the
// key is accepted. It makes a single attempt.
func CheckTranscription(ctx context.Context, cfg config.Transcription) Result {
	cfg.MaxAttempts = 1
	client := transcription.NewClientFrom(cfg)
	return CheckProvider(ctx, "Transcription API", client)
}

// CheckAnalysis verifies that the analysis LLM is reachable and the key is
// valid. It makes a single attempt.
func CheckAnalysis(ctx context.Context, cfg config.Analysis) Result {
	client := llm.NewClientFrom(cfg, llm.WithRetryMaxAttempts(1))
	return CheckProvider(ctx, "Analysis LLM", client)
}

// CheckProvider runs a provider health check under a 30-second timeout.
func CheckProvider(ctx context.Context, name string, checker stage.Checker) Result {
	if checker == nil || !checker.Configured() {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeProviderError produces a human-readable summary for health check failures.
func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return services.Reason(err)
}
