package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// emptyContentError means the provider answered 200 without usable content.
// Models occasionally do this under load, so it is retried.
type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason, e.Refusal, e.Snippet)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// hintedBackOff defers to the wrapped policy but lets a provider Retry-After
// value, capped at maxInterval, stand in for the next delay.
type hintedBackOff struct {
	backoff.BackOff
	maxInterval time.Duration
	next        time.Duration
}

func (h *hintedBackOff) hint(err error) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		h.next = min(statusErr.RetryAfter, h.maxInterval)
	}
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	delay := h.BackOff.NextBackOff()
	if delay == backoff.Stop {
		return delay
	}
	if h.next > 0 {
		delay, h.next = h.next, 0
	}
	return delay
}

func (h *hintedBackOff) Reset() {
	h.next = 0
	h.BackOff.Reset()
}

func (c *Client) retryPolicy() *hintedBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = max(c.initialInterval, 0)
	exp.MaxInterval = c.maxInterval
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = defaultMaxInterval
	}
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	retries := uint64(0)
	if c.maxAttempts > 1 {
		retries = uint64(c.maxAttempts - 1)
	}
	return &hintedBackOff{
		BackOff:     backoff.WithMaxRetries(exp, retries),
		maxInterval: exp.MaxInterval,
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(when.Sub(now), 0)
	}
	return 0
}
