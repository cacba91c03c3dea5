package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shadow/internal/config"
	"shadow/internal/notifications"
)

type captured struct {
	title, body, tags, priority string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic closed"))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventCaptureFailed, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name     string
		event    notifications.Event
		payload  notifications.Payload
		title    string
		body     string
		tags     string
		priority string
	}{
		{
			name:    "review ready",
			event:   notifications.EventReviewReady,
			payload: notifications.Payload{"title": "Deploy walkthrough", "chapters": 3, "decisions": 2},
			title:   "Shadow - Ready for Review",
			body:    "Ready for review: Deploy walkthrough\n3 chapters, 2 decision points",
			tags:    "shadow,capture,ready",
		},
		{
			name:     "failed falls back to id",
			event:    notifications.EventCaptureFailed,
			payload:  notifications.Payload{"captureID": "cap-1", "reason": "media reference escapes storage root"},
			title:    "Shadow - Processing Failed",
			body:     "Failed: cap-1\nmedia reference escapes storage root",
			tags:     "shadow,capture,failed",
			priority: "high",
		},
		{
			name:     "test",
			event:    notifications.EventTest,
			title:    "Shadow - Test",
			body:     "Notification system test",
			tags:     "shadow,test",
			priority: "low",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newNtfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			if err := notifications.NewService(&cfg).Publish(context.Background(), tt.event, tt.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tt.title || req.body != tt.body || req.tags != tt.tags || req.priority != tt.priority {
				t.Fatalf("unexpected request %+v", req)
			}
		})
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	srv, got := newNtfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.NotifyReady = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventReviewReady, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("expected ready event to be suppressed, got %d requests", len(*got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic closed") {
		t.Fatalf("expected 403 error with body, got %v", err)
	}
}
