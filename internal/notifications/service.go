package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"faceswap/internal/config"
)

const userAgent = "faceswap/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event fields. Recognised keys depend on the event:
// jobID and steps for job events, processed, failed and duration for
// queue summaries, error for failures.
type Payload map[string]any

// Service defines the notification surface used by the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("✅ Job %s completed", payload.text("jobID"))
		if steps := payload.number("steps"); steps > 0 {
			body = fmt.Sprintf("%s (%d step(s))", body, steps)
		}
		return message{
			title: "faceswap - Job Complete",
			body:  body,
			tags:  []string{"faceswap", "job", "completed"},
		}, true
	case EventJobFailed:
		body := fmt.Sprintf("❌ Job %s failed", payload.text("jobID"))
		if detail := payload.text("error"); detail != "" {
			body = fmt.Sprintf("%s: %s", body, detail)
		}
		return message{
			title:    "faceswap - Job Failed",
			body:     body,
			tags:     []string{"faceswap", "job", "failed"},
			priority: "high",
		}, true
	case EventQueueCompleted:
		processed := payload.number("processed")
		failed := payload.number("failed")
		duration := payload.duration("duration")
		if failed == 0 {
			return message{
				title: "faceswap - Queue Complete",
				body:  fmt.Sprintf("Queue drained: %d job(s) completed in %s", processed, duration),
				tags:  []string{"faceswap", "queue", "completed"},
			}, true
		}
		return message{
			title: "faceswap - Queue Complete (with errors)",
			body:  fmt.Sprintf("Queue drained: %d completed, %d failed in %s", processed-failed, failed, duration),
			tags:  []string{"faceswap", "queue", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "faceswap - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"faceswap", "test"},
			priority: "low",
		}, true
	default:
		// queue_started and unknown events are not delivered.
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

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
