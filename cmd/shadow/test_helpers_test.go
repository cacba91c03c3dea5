package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/daemon"
	"shadow/internal/ipc"
	"shadow/internal/logging"
	"shadow/internal/pipeline"
	"shadow/internal/testsupport"
	"shadow/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	captures   *capture.Store
	configPath string
}

// setupCLITestEnv writes a config file pointing at temp directories. Provider
// keys are cleared so local runs take the degraded path.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"ASSEMBLYAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "SHADOW_CONFIG", "SHADOW_NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		captures:   testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
	}
}

// startDaemon runs an in-process broker on the configured socket with fake
// providers behind its workers.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	logger := logging.NewNop()
	jobs := testsupport.MustOpenQueue(t, env.cfg)
	executor := pipeline.NewExecutor(env.cfg, env.captures,
		testsupport.NewFakeTranscriber("we picked sqlite for the queue", 120),
		&testsupport.FakeAnalyzer{}, logger)
	sup := workflow.NewSupervisor(env.cfg, env.captures, executor, logger)
	mgr := workflow.NewManager(env.cfg, jobs, sup, logger, workflow.WithPollInterval(20*time.Millisecond))

	d, err := daemon.New(env.cfg, jobs, logger, mgr, "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, env.cfg.Broker.SocketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon-backed test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", env.configPath, "--log-level", "error"}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstorage_root = %q\ndata_dir = %q\nlog_dir = %q\n\n[broker]\nsocket_path = %q\nprobe_timeout_seconds = 1\n\n[workflow]\npoll_interval_seconds = 1\n",
		cfg.Paths.StorageRoot,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Broker.SocketPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
