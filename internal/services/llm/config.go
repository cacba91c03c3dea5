package llm

import "shadow/internal/config"

// NewClientFrom builds a client from the analysis config section.
func NewClientFrom(cfg config.Analysis, opts ...Option) *Client {
	return NewClient(Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Title:          "Shadow",
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)
}
