package testsupport

import (
	"path/filepath"
	"testing"

	"shadow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StorageRoot = filepath.Join(base, "storage")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Broker.SocketPath = filepath.Join(base, "shadow.sock")
	cfgVal.Broker.ProbeTimeoutSeconds = 1
	cfgVal.Transcription.PollIntervalSeconds = 1
	cfgVal.Workflow.PollIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithProviderKeys sets both provider credentials on the test config.
func WithProviderKeys(transcription, analysis string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.APIKey = transcription
		b.cfg.Analysis.APIKey = analysis
	}
}

// WithRetryPolicy overrides the queued retry policy.
func WithRetryPolicy(maxRetries, delaySeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxRetries = maxRetries
		b.cfg.Workflow.RetryDelaySeconds = delaySeconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
