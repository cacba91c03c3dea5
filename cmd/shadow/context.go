package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shadow/internal/api"
	"shadow/internal/capture"
	"shadow/internal/config"
	"shadow/internal/dispatch"
	"shadow/internal/ipc"
	"shadow/internal/logging"
	"shadow/internal/pipeline"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
			cfg.Broker.SocketPath = strings.TrimSpace(*c.socketFlag)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return cfg.Logging.Level
}

// cliLogger writes to stderr so command output on stdout stays parseable.
func (c *commandContext) cliLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:            c.logLevel(cfg),
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return strings.TrimSpace(*c.socketFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Broker.SocketPath
	}
	return ""
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	timeout := 2 * time.Second
	if cfg, err := c.ensureConfig(); err == nil {
		timeout = cfg.Broker.ProbeTimeout()
	}
	client, err := ipc.Dial(socket, timeout)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

// captureSession bundles the capture service with the resources behind it.
// close waits for local pipeline runs before releasing the store.
type captureSession struct {
	service    *api.CaptureService
	dispatcher *dispatch.Dispatcher
	store      *capture.Store
}

func (s *captureSession) close() {
	s.dispatcher.Wait()
	s.store.Close()
}

func (c *commandContext) openCaptureSession() (*captureSession, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := capture.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open capture store: %w", err)
	}
	logger := c.cliLogger(cfg)
	executor := pipeline.NewDefaultExecutor(cfg, store, pipeline.NewProviders(cfg), logger)
	broker := dispatch.NewSocketBroker(cfg.Broker.SocketPath, cfg.Broker.ProbeTimeout())
	dispatcher := dispatch.New(broker, executor, cfg.Broker.ProbeTimeout(), logger)
	return &captureSession{
		service:    api.NewCaptureService(store, dispatcher, executor, logger),
		dispatcher: dispatcher,
		store:      store,
	}, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `shadow daemon`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
