package config

const (
	defaultConfigPath  = "~/.config/shadow/config.toml"
	defaultStorageRoot = "~/.local/share/shadow/storage"
	defaultDataDir     = "~/.local/share/shadow"
	defaultLogDir      = "~/.local/share/shadow/logs"

	defaultTranscriptionBaseURL = "https://api.assemblyai.com"
	defaultAnalysisBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	defaultAnalysisModel        = "gemini-2.0-flash"
	defaultSocketName           = "shadow.sock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageRoot: defaultStorageRoot,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Transcription: Transcription{
			BaseURL:               defaultTranscriptionBaseURL,
			PollIntervalSeconds:   5,
			TimeoutSeconds:        600,
			RequestTimeoutSeconds: 60,
			MaxAttempts:           4,
		},
		Analysis: Analysis{
			BaseURL:             defaultAnalysisBaseURL,
			Model:               defaultAnalysisModel,
			Temperature:         0.3,
			MaxTokens:           4096,
			TimeoutSeconds:      120,
			TranscriptCharLimit: 30000,
		},
		Broker: Broker{
			ProbeTimeoutSeconds: 2,
		},
		Workflow: Workflow{
			Workers:                  2,
			PollIntervalSeconds:      2,
			HeartbeatIntervalSeconds: 15,
			HeartbeatTimeoutSeconds:  120,
			MaxRetries:               3,
			RetryDelaySeconds:        60,
			TaskTimeLimitSeconds:     3600,
			LeaseSeconds:             3900,
			DefaultDurationSeconds:   300,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: 10,
			NotifyReady:           true,
			NotifyFailed:          true,
		},
		Logging: Logging{
			Format:        "console",
			Level:         "info",
			RetentionDays: 14,
		},
	}
}
