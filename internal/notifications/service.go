package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cdplayer/internal/config"
)

const userAgent = "cdplayer/0.1.0"

// Service defines the notifications the playback supervisor sends.
type Service interface {
	NotifyPlaybackStarted(ctx context.Context, album, artist string, tracks int) error
	NotifyPlaybackStopped(ctx context.Context, album string) error
	NotifyError(ctx context.Context, err error, context string) error
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

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		playback: cfg.Notifications.Playback,
		errors:   cfg.Notifications.Errors,
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
	playback bool
	errors   bool
}

func (n *ntfyService) NotifyPlaybackStarted(ctx context.Context, album, artist string, tracks int) error {
	if !n.playback {
		return nil
	}
	album = strings.TrimSpace(album)
	artist = strings.TrimSpace(artist)
	if album == "" {
		album = "Unknown album"
	}
	message := fmt.Sprintf("💿 Playing %s", album)
	if artist != "" {
		message += " by " + artist
	}
	if tracks > 0 {
		message += fmt.Sprintf(" (%d tracks)", tracks)
	}
	return n.send(ctx, payload{
		title:   "CD Player - Playing",
		message: message,
		tags:    []string{"cdplayer", "playback", "started"},
	})
}

func (n *ntfyService) NotifyPlaybackStopped(ctx context.Context, album string) error {
	if !n.playback {
		return nil
	}
	message := "⏹️ Playback stopped"
	if album = strings.TrimSpace(album); album != "" {
		message += ": " + album
	}
	return n.send(ctx, payload{
		title:    "CD Player - Stopped",
		message:  message,
		tags:     []string{"cdplayer", "playback", "stopped"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
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

	return n.send(ctx, payload{
		title:    "CD Player - Error",
		message:  builder.String(),
		tags:     []string{"cdplayer", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "CD Player - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cdplayer", "test"},
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

func (noopService) NotifyPlaybackStarted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyPlaybackStopped(context.Context, string) error              { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }

// NewNoop returns a Service that sends nothing.
func NewNoop() Service {
	return noopService{}
}
