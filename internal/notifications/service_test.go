package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cdplayer/internal/config"
	"cdplayer/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	requests := make(chan captured, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPlaybackStarted(context.Background(), "Album", "Artist", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "playback started",
			send: func(s notifications.Service) error {
				return s.NotifyPlaybackStarted(context.Background(), "Wicked Game", "Chris Isaak", 10)
			},
			expectTitle:   "CD Player - Playing",
			expectMessage: "💿 Playing Wicked Game by Chris Isaak (10 tracks)",
			expectTags:    "cdplayer,playback,started",
		},
		{
			name: "playback stopped",
			send: func(s notifications.Service) error {
				return s.NotifyPlaybackStopped(context.Background(), "Wicked Game")
			},
			expectTitle:    "CD Player - Stopped",
			expectMessage:  "⏹️ Playback stopped: Wicked Game",
			expectTags:     "cdplayer,playback,stopped",
			expectPriority: "low",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("no disc in drive"), "disc query")
			},
			expectTitle:    "CD Player - Error",
			expectMessage:  "❌ Error with disc query: no disc in drive",
			expectTags:     "cdplayer,error,alert",
			expectPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := ntfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := tt.send(svc); err != nil {
				t.Fatalf("send returned error: %v", err)
			}
			got := <-requests
			if got.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if got.body != tt.expectMessage {
				t.Fatalf("message = %q, want %q", got.body, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestPlaybackNotificationsCanBeDisabled(t *testing.T) {
	server, requests := ntfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Playback = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyPlaybackStarted(context.Background(), "A", "B", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case got := <-requests:
		t.Fatalf("expected no request, got %+v", got)
	default:
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := ntfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
