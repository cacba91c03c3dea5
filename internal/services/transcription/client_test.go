package transcription_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shadow/internal/services"
	"shadow/internal/services/transcription"
)

func newClient(t *testing.T, srv *httptest.Server, opts ...transcription.Option) *transcription.Client {
	t.Helper()
	base := []transcription.Option{
		transcription.WithHTTPClient(srv.Client()),
		transcription.WithRetryInterval(time.Millisecond),
		transcription.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}
	return transcription.NewClient(transcription.Config{APIKey: "key", BaseURL: srv.URL, MaxAttempts: 3}, append(base, opts...)...)
}

func TestTranscribeUploadsCreatesAndPolls(t *testing.T) {
	media := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(media, []byte("media-bytes"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing authorization header")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
			body, _ := io.ReadAll(r.Body)
			if string(body) != "media-bytes" {
				t.Errorf("unexpected upload body %q", body)
			}
			_, _ = w.Write([]byte(`{"upload_url":"https://cdn.example/upload/1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["audio_url"] != "https://cdn.example/upload/1" || req["speaker_labels"] != true || req["auto_chapters"] != true {
				t.Errorf("unexpected create payload %v", req)
			}
			_, _ = w.Write([]byte(`{"id":"job-1","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/job-1":
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"id":"job-1","status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"job-1","status":"completed","text":"hello there","audio_duration":119.6,
				"words":[{"text":"hello","start":0,"end":500,"speaker":"A"},{"text":"there","start":500,"end":900,"speaker":"A"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	status, err := newClient(t, srv).Transcribe(context.Background(), media, false, time.Second, time.Minute)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if status.Text != "hello there" || len(status.Words) != 2 {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.DurationSeconds() != 120 {
		t.Fatalf("expected rounded duration 120, got %d", status.DurationSeconds())
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
}

func TestTranscribeRemoteSkipsUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/upload":
			t.Errorf("remote media must not be uploaded")
		case "/v2/transcript":
			_, _ = w.Write([]byte(`{"id":"job-2"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"job-2","status":"completed","text":"ok"}`))
		}
	}))
	defer srv.Close()

	status, err := newClient(t, srv).Transcribe(context.Background(), "https://media.example/a.mp4", true, time.Second, time.Minute)
	if err != nil || status.Text != "ok" {
		t.Fatalf("unexpected result %#v %v", status, err)
	}
}

func TestWaitForCompletionReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-3","status":"error","error":"unsupported codec"}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv).WaitForCompletion(context.Background(), "job-3", time.Second, time.Minute)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported codec") {
		t.Fatalf("expected provider reason in error, got %v", err)
	}
}

func TestWaitForCompletionTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-4","status":"processing"}`))
	}))
	defer srv.Close()

	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	sleeper := func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}
	client := newClient(t, srv, transcription.WithClock(clock), transcription.WithSleeper(sleeper))
	_, err := client.WaitForCompletion(context.Background(), "job-4", 5*time.Second, 20*time.Second)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRetriesServerErrorsButNotClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path == "/v2/transcript/bad" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		if n < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"job-5","status":"queued"}`))
	}))
	defer srv.Close()
	client := newClient(t, srv)

	if _, err := client.PollStatus(context.Background(), "job-5"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}

	calls.Store(0)
	if _, err := client.PollStatus(context.Background(), "bad"); err == nil {
		t.Fatal("expected client error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 4xx not retried, got %d calls", calls.Load())
	}
}

func TestPollStatusRejectsUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-6","status":"mystery"}`))
	}))
	defer srv.Close()

	if _, err := newClient(t, srv).PollStatus(context.Background(), "job-6"); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Upload(context.Background(), filepath.Join(t.TempDir(), "missing.webm"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := transcription.NewClient(transcription.Config{})
	if _, err := client.Transcribe(context.Background(), "x", true, time.Second, time.Second); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"transcripts":[]}`))
	}))
	defer srv.Close()

	client := transcription.NewClient(transcription.Config{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 1})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if gotPath != "/v2/transcript?limit=1" || gotAuth != "k" {
		t.Fatalf("unexpected request: path=%q auth=%q", gotPath, gotAuth)
	}

	unconfigured := transcription.NewClient(transcription.Config{BaseURL: srv.URL})
	if err := unconfigured.HealthCheck(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
