// Package notify delivers outcome messages to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/plansink/plansink/internal/metrics"
)

// Levels used for outcome notifications.
const (
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
	LevelSkipped = "SKIPPED"
)

// Notifier posts formatted messages to a Discord-compatible webhook. Delivery
// is fire-and-forget: failures are logged and never surface to callers.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a notifier. An empty webhookURL disables delivery.
func New(webhookURL string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts "[LEVEL] source --> message". Any failure is logged only.
func (n *Notifier) Send(ctx context.Context, level, source, message string) {
	if n == nil || n.webhookURL == "" {
		slog.Warn("notification webhook not configured, skipping delivery")
		return
	}

	payload := map[string]string{
		"content": fmt.Sprintf("[%s] %s --> %s", level, source, message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshal notification payload", slog.Any("error", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Warn("build notification request", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "plansink/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.NotificationFailures.Inc()
		slog.Warn("send notification", slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.NotificationFailures.Inc()
		slog.Warn("notification webhook rejected message",
			slog.Int("status", resp.StatusCode))
	}
}
