package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tonearm/internal/config"
)

const userAgent = "tonearm/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyBatchCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyTrackCompleted(ctx context.Context, title, finalFile string) error
	NotifyTrackFailed(ctx context.Context, title, reason string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	window := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
	if window < 0 {
		window = 0
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		trackEvents: cfg.Notifications.Track,
		batchEvents: cfg.Notifications.Batch,
		errorEvents: cfg.Notifications.Errors,
		dedupWindow: window,
		sent:        make(map[string]time.Time),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	dedupe   bool
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	trackEvents bool
	batchEvents bool
	errorEvents bool
	dedupWindow time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	if !n.batchEvents {
		return nil
	}
	data := payload{
		title:   "Tonearm - Batch Started",
		message: fmt.Sprintf("Started batch of %d tracks", count),
		tags:    []string{"tonearm", "batch", "started"},
		dedupe:  true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.batchEvents {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Tonearm - Batch Complete"
		message = fmt.Sprintf("Batch complete: %d tracks fetched in %s", processed, durationText)
	} else {
		title = "Tonearm - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch complete: %d fetched, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"tonearm", "batch", "completed"},
		dedupe:  true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTrackCompleted(ctx context.Context, title, finalFile string) error {
	if !n.trackEvents {
		return nil
	}
	title = strings.TrimSpace(title)
	finalFile = strings.TrimSpace(finalFile)
	message := fmt.Sprintf("Added to library: %s", title)
	if finalFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, finalFile)
	}
	data := payload{
		title:   "Tonearm - Track Added",
		message: message,
		tags:    []string{"tonearm", "track", "added"},
		dedupe:  true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTrackFailed(ctx context.Context, title, reason string) error {
	if !n.errorEvents {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Failed: %s", title)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Tonearm - Track Failed",
		message:  message,
		tags:     []string{"tonearm", "track", "failed"},
		priority: "high",
		dedupe:   true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Tonearm - Error",
		message:  builder.String(),
		tags:     []string{"tonearm", "error", "alert"},
		priority: "high",
		dedupe:   true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tonearm - Test",
		message:  "Notification system test",
		tags:     []string{"tonearm", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if data.dedupe && n.recentlySent(data) {
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

	if data.dedupe {
		n.markSent(data)
	}
	return nil
}

func dedupKey(data payload) string {
	return data.title + "\n" + data.message
}

func (n *ntfyService) recentlySent(data payload) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.sent[dedupKey(data)]
	return ok && time.Since(last) < n.dedupWindow
}

func (n *ntfyService) markSent(data payload) {
	if n.dedupWindow <= 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	for key, at := range n.sent {
		if now.Sub(at) >= n.dedupWindow {
			delete(n.sent, key)
		}
	}
	n.sent[dedupKey(data)] = now
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyTrackCompleted(context.Context, string, string) error          { return nil }
func (noopService) NotifyTrackFailed(context.Context, string, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
