package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faceswap/internal/config"
	"faceswap/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"jobID": "a"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "job completed",
			event:         notifications.EventJobCompleted,
			payload:       notifications.Payload{"jobID": "wedding", "steps": 2},
			expectTitle:   "faceswap - Job Complete",
			expectMessage: "✅ Job wedding completed (2 step(s))",
			expectTags:    "faceswap,job,completed",
		},
		{
			name:           "job failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{"jobID": "wedding", "error": errors.New("model missing")},
			expectTitle:    "faceswap - Job Failed",
			expectMessage:  "❌ Job wedding failed: model missing",
			expectTags:     "faceswap,job,failed",
			expectPriority: "high",
		},
		{
			name:          "queue completed",
			event:         notifications.EventQueueCompleted,
			payload:       notifications.Payload{"processed": 3, "failed": 0, "duration": 90 * time.Second},
			expectTitle:   "faceswap - Queue Complete",
			expectMessage: "Queue drained: 3 job(s) completed in 1m30s",
			expectTags:    "faceswap,queue,completed",
		},
		{
			name:          "queue completed with errors",
			event:         notifications.EventQueueCompleted,
			payload:       notifications.Payload{"processed": 3, "failed": 1},
			expectTitle:   "faceswap - Queue Complete (with errors)",
			expectMessage: "Queue drained: 2 completed, 1 failed in 0s",
			expectTags:    "faceswap,queue,completed",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "faceswap - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "faceswap,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{notifications.EventQueueStarted, "unknown"} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic disabled") {
		t.Fatalf("expected http error, got %v", err)
	}
}
