package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shadow/internal/config"
)

const userAgent = "Shadow-Go/0.1.0"

// Event names a capture milestone.
type Event string

const (
	EventReviewReady   Event = "review_ready"
	EventCaptureFailed Event = "capture_failed"
	EventTest          Event = "test"
)

// Payload carries event fields. Recognized keys are title, captureID,
// chapters, decisions and reason.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy-backed Service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.Notifications.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventReviewReady:   cfg.Notifications.NotifyReady,
			EventCaptureFailed: cfg.Notifications.NotifyFailed,
			EventTest:          true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	if title == "" {
		title = payloadString(payload, "captureID")
	}
	switch event {
	case EventReviewReady:
		body := fmt.Sprintf("Ready for review: %s", title)
		chapters, decisions := payloadInt(payload, "chapters"), payloadInt(payload, "decisions")
		if chapters > 0 || decisions > 0 {
			body = fmt.Sprintf("%s\n%d chapters, %d decision points", body, chapters, decisions)
		}
		return message{
			title: "Shadow - Ready for Review",
			body:  body,
			tags:  []string{"shadow", "capture", "ready"},
		}, true
	case EventCaptureFailed:
		reason := payloadString(payload, "reason")
		if reason == "" {
			reason = "unknown error"
		}
		return message{
			title:    "Shadow - Processing Failed",
			body:     fmt.Sprintf("Failed: %s\n%s", title, reason),
			tags:     []string{"shadow", "capture", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Shadow - Test",
			body:     "Notification system test",
			tags:     []string{"shadow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	if v, ok := payload[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func payloadInt(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
