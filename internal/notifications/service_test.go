package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/notifications"
)

type captured struct {
	title, tags, priority, body string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySceneFailed(context.Background(), "p", 0, errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifySceneRendered(ctx, "proj", 0, "http://m/v.mp4"); err != nil {
		t.Fatalf("NotifySceneRendered: %v", err)
	}
	if err := svc.NotifySceneFailed(ctx, "proj", 1, errors.New("quota exhausted")); err != nil {
		t.Fatalf("NotifySceneFailed: %v", err)
	}
	if err := svc.NotifyProjectCompleted(ctx, "proj", "Lighthouses"); err != nil {
		t.Fatalf("NotifyProjectCompleted: %v", err)
	}

	got := requests()
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0].title != "storyreel - Scene Rendered" || !strings.Contains(got[0].body, "Scene 1 of proj rendered") {
		t.Fatalf("unexpected rendered payload %#v", got[0])
	}
	if got[1].priority != "high" || !strings.Contains(got[1].body, "quota exhausted") || got[1].tags != "storyreel,render,error" {
		t.Fatalf("unexpected failure payload %#v", got[1])
	}
	if got[2].body != "All scenes rendered: Lighthouses" {
		t.Fatalf("unexpected completion payload %#v", got[2])
	}
}

func TestRenderNotificationsCanBeDisabled(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Renders = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifySceneRendered(context.Background(), "proj", 0, "u"); err != nil {
		t.Fatalf("NotifySceneRendered: %v", err)
	}
	if len(requests()) != 0 {
		t.Fatal("expected render notification to be suppressed")
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
