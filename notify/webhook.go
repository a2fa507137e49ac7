// Package notify announces generated QR images to an external webhook.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Event is the JSON body posted to the webhook for each generated image.
type Event struct {
	Content    string `json:"content"`
	OutputPath string `json:"output_path,omitempty"` // empty for images served over HTTP
	Version    int    `json:"version"`
	Pixels     int    `json:"pixels"`
	Timestamp  int64  `json:"timestamp"`
}

func (e *Event) key() string {
	return e.OutputPath + "\x00" + e.Content
}

// WebhookSender posts events to a webhook, skipping repeats of the same
// content and path.
type WebhookSender struct {
	url    string
	seen   map[string]time.Time
	mu     sync.Mutex
	client *http.Client
	log    *slog.Logger
}

// seenTTL is how long a delivered content/path pair suppresses repeats.
const seenTTL = 5 * time.Minute

// NewWebhookSender creates a WebhookSender for url. An empty url makes Send
// a no-op.
func NewWebhookSender(url string, log *slog.Logger) *WebhookSender {
	return &WebhookSender{
		url:  url,
		seen: make(map[string]time.Time),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookSender) Enabled() bool {
	return w.url != ""
}

// Send delivers ev to the webhook. It returns nil without posting when no
// URL is configured or the same event was sent within seenTTL.
func (w *WebhookSender) Send(ev *Event) error {
	if w.url == "" {
		return nil
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	w.mu.Lock()
	w.cleanupSeenLocked()
	if _, ok := w.seen[ev.key()]; ok {
		w.mu.Unlock()
		w.log.Debug("webhook skipping duplicate event", "output", ev.OutputPath)
		return nil
	}
	w.seen[ev.key()] = time.Now()
	w.mu.Unlock()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook marshal event: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.log.Error("webhook delivery failed", "error", err, "output", ev.OutputPath)
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.log.Debug("webhook delivered", "status", resp.StatusCode, "output", ev.OutputPath)
		return nil
	}
	w.log.Warn("webhook non-2xx response", "status", resp.StatusCode, "output", ev.OutputPath)
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}

// cleanupSeenLocked removes stale entries from the seen map. The caller MUST
// hold w.mu.
func (w *WebhookSender) cleanupSeenLocked() {
	cutoff := time.Now().Add(-seenTTL)
	for k, t := range w.seen {
		if t.Before(cutoff) {
			delete(w.seen, k)
		}
	}
}
