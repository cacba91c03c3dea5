package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageRoot string `toml:"storage_root"`
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
}

// Transcription contains settings for the speech-to-text provider.
type Transcription struct {
	APIKey                string `toml:"api_key"`
	BaseURL               string `toml:"base_url"`
	PollIntervalSeconds   int    `toml:"poll_interval_seconds"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxAttempts           int    `toml:"max_attempts"`
}

// Analysis contains settings for the content-analysis LLM provider.
type Analysis struct {
	APIKey              string  `toml:"api_key"`
	BaseURL             string  `toml:"base_url"`
	Model               string  `toml:"model"`
	Temperature         float64 `toml:"temperature"`
	MaxTokens           int     `toml:"max_tokens"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	TranscriptCharLimit int     `toml:"transcript_char_limit"`
}

// Broker contains settings for reaching the daemon's job queue.
type Broker struct {
	SocketPath          string `toml:"socket_path"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Workflow contains configuration for queue workers and retry policy.
type Workflow struct {
	Workers                  int `toml:"workers"`
	PollIntervalSeconds      int `toml:"poll_interval_seconds"`
	HeartbeatIntervalSeconds int `toml:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds  int `toml:"heartbeat_timeout_seconds"`
	MaxRetries               int `toml:"max_retries"`
	RetryDelaySeconds        int `toml:"retry_delay_seconds"`
	TaskTimeLimitSeconds     int `toml:"task_time_limit_seconds"`
	LeaseSeconds             int `toml:"lease_seconds"`
	DefaultDurationSeconds   int `toml:"default_duration_seconds"`
}

// Notifications configures ntfy push messages for finished captures.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyReady           bool   `toml:"notify_ready"`
	NotifyFailed          bool   `toml:"notify_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Shadow.
//
// Configuration sections by subsystem:
//   - Paths: storage root for raw media plus data and log directories
//   - Transcription: speech-to-text provider credentials and polling
//   - Analysis: LLM provider credentials and generation settings
//   - Broker: daemon socket used by the dispatcher
//   - Workflow: queue workers, retry policy, and time limits
//   - Notifications: ntfy topic and which outcomes to announce
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Analysis      Analysis      `toml:"analysis"`
	Broker        Broker        `toml:"broker"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv("SHADOW_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path = value
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shadow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageRoot, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Broker.SocketPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create socket directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding captures and their derived artifacts.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "shadow.db")
}

// QueueDatabasePath is the SQLite file backing the broker's job queue.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "shadowd.lock")
}

// PollInterval returns the transcription polling cadence.
func (t Transcription) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// Timeout returns the overall transcription wait bound.
func (t Transcription) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// ProbeTimeout bounds the broker reachability check.
func (b Broker) ProbeTimeout() time.Duration {
	return time.Duration(b.ProbeTimeoutSeconds) * time.Second
}

// RetryDelay is the fixed delay between queued attempts.
func (w Workflow) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySeconds) * time.Second
}

// TaskTimeLimit is the hard bound on a single queued attempt.
func (w Workflow) TaskTimeLimit() time.Duration {
	return time.Duration(w.TaskTimeLimitSeconds) * time.Second
}

// PollInterval is how long an idle worker waits before checking the queue again.
func (w Workflow) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// HeartbeatInterval is how often a running job refreshes its heartbeat.
func (w Workflow) HeartbeatInterval() time.Duration {
	return time.Duration(w.HeartbeatIntervalSeconds) * time.Second
}

// HeartbeatTimeout is how long a silent running job survives before reclaim.
func (w Workflow) HeartbeatTimeout() time.Duration {
	return time.Duration(w.HeartbeatTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single ntfy request.
func (n Notifications) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// Lease is how long a worker may hold a capture before others may claim it.
func (w Workflow) Lease() time.Duration {
	return time.Duration(w.LeaseSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
