package main

import (
	"testing"

	"shadow/internal/config"
)

func TestOptionsFromEnv(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warn"

	tests := []struct {
		name    string
		env     map[string]string
		level   string
		develop bool
	}{
		{name: "defaults to config", env: nil, level: "warn"},
		{name: "env level wins", env: map[string]string{"SHADOW_LOG_LEVEL": "debug"}, level: "debug"},
		{name: "development flag", env: map[string]string{"SHADOW_DEVELOPMENT": "true"}, level: "warn", develop: true},
		{name: "garbage development ignored", env: map[string]string{"SHADOW_DEVELOPMENT": "maybe"}, level: "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			opts := optionsFromEnv(&cfg, getenv)
			if opts.LogLevel != tt.level {
				t.Fatalf("LogLevel = %q, want %q", opts.LogLevel, tt.level)
			}
			if opts.Development != tt.develop {
				t.Fatalf("Development = %v, want %v", opts.Development, tt.develop)
			}
		})
	}

	if opts := optionsFromEnv(nil, func(string) string { return "" }); opts.LogLevel != "" {
		t.Fatalf("expected empty level for nil config, got %q", opts.LogLevel)
	}
}
