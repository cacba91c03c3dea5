// Command shadowd runs the shadow broker daemon without the CLI wrapper, for
// service managers that exec a single binary.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"shadow/internal/config"
	"shadow/internal/daemonrun"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string) error {
	cfg, _, _, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	return daemonrun.Run(ctx, cfg, optionsFromEnv(cfg, getenv))
}

// optionsFromEnv reads SHADOW_LOG_LEVEL and SHADOW_DEVELOPMENT. An unset
// level falls back to the configured one.
func optionsFromEnv(cfg *config.Config, getenv func(string) string) daemonrun.Options {
	opts := daemonrun.Options{}
	if cfg != nil {
		opts.LogLevel = cfg.Logging.Level
	}
	if level := strings.TrimSpace(getenv("SHADOW_LOG_LEVEL")); level != "" {
		opts.LogLevel = level
	}
	if dev, err := strconv.ParseBool(strings.TrimSpace(getenv("SHADOW_DEVELOPMENT"))); err == nil {
		opts.Development = dev
	}
	return opts
}
