package transcription

import (
	"time"

	"shadow/internal/config"
)

// NewClientFrom builds a client from the transcription config section.
func NewClientFrom(cfg config.Transcription, opts ...Option) *Client {
	return NewClient(Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxAttempts:    cfg.MaxAttempts,
	}, opts...)
}
