package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/config"
)

const userAgent = "storyreel/0.1"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifySceneRendered(ctx context.Context, projectID string, sceneIndex int, videoURL string) error
	NotifySceneFailed(ctx context.Context, projectID string, sceneIndex int, err error) error
	NotifyProjectCompleted(ctx context.Context, projectID, topic string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		renders:  cfg.Notifications.Renders,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	renders  bool
}

func (n *ntfyService) NotifySceneRendered(ctx context.Context, projectID string, sceneIndex int, videoURL string) error {
	if !n.renders {
		return nil
	}
	return n.send(ctx, payload{
		title:   "storyreel - Scene Rendered",
		message: fmt.Sprintf("Scene %d of %s rendered\n%s", sceneIndex+1, projectID, strings.TrimSpace(videoURL)),
		tags:    []string{"storyreel", "render", "completed"},
	})
}

func (n *ntfyService) NotifySceneFailed(ctx context.Context, projectID string, sceneIndex int, err error) error {
	if !n.renders {
		return nil
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "storyreel - Render Failed",
		message:  fmt.Sprintf("Scene %d of %s failed: %s", sceneIndex+1, projectID, reason),
		tags:     []string{"storyreel", "render", "error"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyProjectCompleted(ctx context.Context, projectID, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = projectID
	}
	return n.send(ctx, payload{
		title:    "storyreel - Project Complete",
		message:  fmt.Sprintf("All scenes rendered: %s", topic),
		tags:     []string{"storyreel", "project", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "storyreel - Test",
		message:  "Notification system test",
		tags:     []string{"storyreel", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifySceneRendered(context.Context, string, int, string) error { return nil }
func (noopService) NotifySceneFailed(context.Context, string, int, error) error    { return nil }
func (noopService) NotifyProjectCompleted(context.Context, string, string) error   { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
