package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"shadow/internal/services"
)

const (
	serviceName            = "transcription"
	defaultBaseURL         = "https://api.assemblyai.com"
	defaultRequestTimeout  = 60 * time.Second
	defaultMaxAttempts     = 4
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	MaxAttempts    int
}

// Client wraps the AssemblyAI v2 REST API.
type Client struct {
	cfg             Config
	httpClient      *http.Client
	initialInterval time.Duration
	sleeper         func(context.Context, time.Duration) error
	now             func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryInterval overrides the first backoff delay between HTTP attempts.
func WithRetryInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = interval
	}
}

// WithSleeper overrides how polling waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithClock overrides the time source used for the polling deadline.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	client := &Client{
		cfg:             cfg,
		httpClient:      &http.Client{Timeout: cfg.RequestTimeout},
		initialInterval: defaultInitialInterval,
		sleeper:         sleepContext,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Upload sends a local media file and returns the provider URL for it.
func (c *Client) Upload(ctx context.Context, localPath string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", services.ExternalService(serviceName, "upload", fmt.Errorf("media file: %w", err))
	}
	if info.IsDir() {
		return "", services.ExternalService(serviceName, "upload", fmt.Errorf("media path %s is a directory", localPath))
	}

	var resp uploadResponse
	body := func() (io.Reader, func(), error) {
		f, err := os.Open(localPath)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", body, &resp); err != nil {
		return "", services.ExternalService(serviceName, "upload", err)
	}
	if strings.TrimSpace(resp.UploadURL) == "" {
		return "", services.ExternalService(serviceName, "upload", errors.New("response missing upload_url"))
	}
	return resp.UploadURL, nil
}

// CreateJob starts a transcription job with auto chapters enabled.
func (c *Client) CreateJob(ctx context.Context, audioURL string, diarization bool) (string, error) {
	payload, err := json.Marshal(createRequest{
		AudioURL:      audioURL,
		SpeakerLabels: diarization,
		AutoChapters:  true,
	})
	if err != nil {
		return "", fmt.Errorf("encode transcript request: %w", err)
	}
	var resp createResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/transcript", "application/json", staticBody(payload), &resp); err != nil {
		return "", services.ExternalService(serviceName, "create job", err)
	}
	if strings.TrimSpace(resp.ID) == "" {
		return "", services.ExternalService(serviceName, "create job", errors.New("response missing id"))
	}
	return resp.ID, nil
}

// PollStatus fetches the current state of a transcription job.
func (c *Client) PollStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errors.New("poll status: job id required")
	}
	var status JobStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v2/transcript/"+url.PathEscape(jobID), "", nil, &status); err != nil {
		return nil, services.ExternalService(serviceName, "poll status", err)
	}
	if err := status.validate(); err != nil {
		return nil, services.ExternalService(serviceName, "poll status", err)
	}
	return &status, nil
}

// WaitForCompletion polls until the job completes, fails, or timeout elapses.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, interval, timeout time.Duration) (*JobStatus, error) {
	deadline := c.now().Add(timeout)
	for {
		status, err := c.PollStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusError:
			reason := strings.TrimSpace(status.Error)
			if reason == "" {
				reason = "unknown error"
			}
			return nil, services.ExternalService(serviceName, "transcription failed: "+reason, nil)
		}
		if !c.now().Before(deadline) {
			return nil, services.Wrap(services.ErrExternalService, serviceName, "wait",
				fmt.Sprintf("transcription timed out after %s", timeout), services.ErrTimeout)
		}
		if err := c.sleeper(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// Transcribe runs the full flow for a media reference. Remote references are
// handed to the provider as-is; local ones are uploaded first.
func (c *Client) Transcribe(ctx context.Context, audioRef string, isRemote bool, interval, timeout time.Duration) (*JobStatus, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "transcribe", "api key not configured", nil)
	}
	audioURL := audioRef
	if !isRemote {
		uploaded, err := c.Upload(ctx, audioRef)
		if err != nil {
			return nil, err
		}
		audioURL = uploaded
	}
	jobID, err := c.CreateJob(ctx, audioURL, true)
	if err != nil {
		return nil, err
	}
	return c.WaitForCompletion(ctx, jobID, interval, timeout)
}

// HealthCheck lists a single transcript to confirm the API key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, serviceName, "health", "api key not configured", nil)
	}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/v2/transcript?limit=1", "", nil, &out); err != nil {
		return services.ExternalService(serviceName, "health", err)
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

type bodyFactory func() (io.Reader, func(), error)

func staticBody(payload []byte) bodyFactory {
	return func() (io.Reader, func(), error) {
		return bytes.NewReader(payload), func() {}, nil
	}
}

func (c *Client) doJSON(ctx context.Context, method, path, contentType string, body bodyFactory, out any) error {
	endpoint := c.cfg.BaseURL + path

	op := func() error {
		var (
			reader  io.Reader
			release = func() {}
		)
		if body != nil {
			r, cleanup, err := body()
			if err != nil {
				return backoff.Permanent(err)
			}
			reader, release = r, cleanup
		}
		defer release()

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("new request: %w", err))
		}
		req.Header.Set("Authorization", c.cfg.APIKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(data)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
	return backoff.Retry(op, policy)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
