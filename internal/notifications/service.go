package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"assetgen/internal/config"
)

const userAgent = "assetgen/1.0"

// Event names a notification type.
type Event string

const (
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventRunAborted   Event = "run_aborted"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: outputDir, succeeded, failed,
// skipped, duration, failedIDs, error.
type Payload map[string]string

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy notifier when a topic is configured, otherwise
// a no-op.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.NotifyOnSuccess,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if event == EventRunCompleted && !n.onSuccess {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("notifications: unknown event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	dir := p["outputDir"]
	switch event {
	case EventRunCompleted:
		return message{
			title: "assetgen - Run Complete",
			body: fmt.Sprintf("Generated %s assets in %s (%s skipped)\n%s",
				orZero(p["succeeded"]), orZero(p["duration"]), orZero(p["skipped"]), dir),
			tags: []string{"assetgen", "run", "completed"},
		}, true
	case EventRunFailed:
		body := fmt.Sprintf("%s succeeded, %s failed\n%s", orZero(p["succeeded"]), orZero(p["failed"]), dir)
		if ids := strings.TrimSpace(p["failedIDs"]); ids != "" {
			body += "\nFailed: " + ids
		}
		return message{
			title:    "assetgen - Run Finished With Errors",
			body:     body,
			tags:     []string{"assetgen", "run", "warning"},
			priority: "high",
		}, true
	case EventRunAborted:
		body := fmt.Sprintf("Run stopped after %s assets; rerun to resume\n%s", orZero(p["processed"]), dir)
		if reason := strings.TrimSpace(p["error"]); reason != "" {
			body += "\nReason: " + reason
		}
		return message{
			title:    "assetgen - Run Aborted",
			body:     body,
			tags:     []string{"assetgen", "run", "aborted"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "assetgen - Test",
			body:     "Notification system test",
			tags:     []string{"assetgen", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func orZero(v string) string {
	if strings.TrimSpace(v) == "" {
		return "0"
	}
	return v
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
	if msg.priority != "" && msg.priority != "default" {
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
