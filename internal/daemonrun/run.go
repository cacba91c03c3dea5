// Package daemonrun assembles and runs the Shadow broker process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/daemon"
	"shadow/internal/ipc"
	"shadow/internal/logging"
	"shadow/internal/notifications"
	"shadow/internal/pipeline"
	"shadow/internal/preflight"
	"shadow/internal/queue"
	"shadow/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the shadow daemon runtime loop and blocks until a signal or
// cmdCtx cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, started)

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.CurrentLogName, err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, started)
	pidPath := filepath.Join(cfg.Paths.LogDir, "shadow.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflight(signalCtx, logger, cfg)

	captures, err := capture.Open(cfg)
	if err != nil {
		logger.Error("open capture store", logging.Error(err))
		return err
	}
	defer captures.Close()

	jobs, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	providers := pipeline.NewProviders(cfg)
	executor := pipeline.NewDefaultExecutor(cfg, captures, providers, logger)
	supervisor := workflow.NewSupervisor(cfg, captures, executor, logger,
		workflow.WithNotifier(notifications.NewService(cfg)))
	manager := workflow.NewManager(cfg, jobs, supervisor, logger,
		workflow.WithProbes(providers.Probes()...))

	d, err := daemon.New(cfg, jobs, logger, manager, logPath)
	if err != nil {
		jobs.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// The socket goes up only after the lock is held, so a second daemon
	// never replaces a live socket.
	ipcServer, err := ipc.NewServer(signalCtx, cfg.Broker.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("shadow daemon ready",
		logging.String("socket", cfg.Broker.SocketPath),
		logging.Int("workers", cfg.Workflow.Workers),
		logging.String(logging.FieldEventType, "daemon_ready"),
	)

	<-signalCtx.Done()
	logger.Info("shadow daemon shutting down")
	return nil
}

// logPreflight records failed readiness checks. None of them stop the daemon:
// missing provider keys only degrade pipeline output.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "captures may finish with placeholder transcripts or fallback analysis"),
			logging.String(logging.FieldErrorHint, "run `shadow status` and fix the reported check"),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.CurrentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
