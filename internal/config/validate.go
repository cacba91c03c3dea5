package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. Provider keys are optional:
// a missing key degrades the pipeline output instead of blocking startup.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageRoot == "" {
		return errors.New("paths.storage_root must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, err := url.ParseRequestURI(c.Transcription.BaseURL); err != nil {
		return fmt.Errorf("transcription.base_url: %w", err)
	}
	if c.Transcription.PollIntervalSeconds <= 0 {
		return errors.New("transcription.poll_interval_seconds must be positive")
	}
	if c.Transcription.TimeoutSeconds < c.Transcription.PollIntervalSeconds {
		return errors.New("transcription.timeout_seconds must be at least poll_interval_seconds")
	}
	if c.Transcription.RequestTimeoutSeconds <= 0 {
		return errors.New("transcription.request_timeout_seconds must be positive")
	}
	if c.Transcription.MaxAttempts <= 0 {
		return errors.New("transcription.max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if _, err := url.ParseRequestURI(c.Analysis.BaseURL); err != nil {
		return fmt.Errorf("analysis.base_url: %w", err)
	}
	if c.Analysis.Temperature < 0 || c.Analysis.Temperature > 2 {
		return errors.New("analysis.temperature must be between 0 and 2")
	}
	if c.Analysis.MaxTokens <= 0 {
		return errors.New("analysis.max_tokens must be positive")
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	if c.Analysis.TranscriptCharLimit <= 0 {
		return errors.New("analysis.transcript_char_limit must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	w := c.Workflow
	switch {
	case w.Workers <= 0:
		return errors.New("workflow.workers must be positive")
	case w.PollIntervalSeconds <= 0:
		return errors.New("workflow.poll_interval_seconds must be positive")
	case w.HeartbeatIntervalSeconds <= 0:
		return errors.New("workflow.heartbeat_interval_seconds must be positive")
	case w.HeartbeatTimeoutSeconds <= w.HeartbeatIntervalSeconds:
		return errors.New("workflow.heartbeat_timeout_seconds must exceed heartbeat_interval_seconds")
	case w.MaxRetries < 0:
		return errors.New("workflow.max_retries must not be negative")
	case w.RetryDelaySeconds < 0:
		return errors.New("workflow.retry_delay_seconds must not be negative")
	case w.TaskTimeLimitSeconds <= 0:
		return errors.New("workflow.task_time_limit_seconds must be positive")
	case w.LeaseSeconds < w.TaskTimeLimitSeconds:
		return errors.New("workflow.lease_seconds must be at least task_time_limit_seconds")
	case w.DefaultDurationSeconds <= 0:
		return errors.New("workflow.default_duration_seconds must be positive")
	}
	if c.Broker.ProbeTimeoutSeconds <= 0 {
		return errors.New("broker.probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	u, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic: %q is not an http(s) URL", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
