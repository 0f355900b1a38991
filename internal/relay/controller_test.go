package relay_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cdplayer/internal/relay"
)

func shortSocketPath(t *testing.T, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "relay")
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}

// fakeRelay answers one command per connection with the given reply lines.
func fakeRelay(t *testing.T, reply ...string) (string, <-chan string) {
	t.Helper()
	path := shortSocketPath(t, "ctl.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	commands := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(conn).ReadString('\n')
			commands <- line
			for _, r := range reply {
				_, _ = conn.Write([]byte(r + "\n"))
			}
			conn.Close()
		}
	}()
	return path, commands
}

func TestControllerStartSendsCommandAndWaitsForOK(t *testing.T) {
	path, commands := fakeRelay(t, "OK", "END")
	ctl := relay.NewController(path, "CD_Player", time.Second)

	issued, err := ctl.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if issued.IsZero() {
		t.Fatal("expected issue time")
	}
	if got := <-commands; got != "CD_Player.start\n" {
		t.Fatalf("unexpected command %q", got)
	}
}

func TestControllerReportsMissingAck(t *testing.T) {
	path, _ := fakeRelay(t, "ERROR: unknown command", "END")
	ctl := relay.NewController(path, "CD_Player", time.Second)

	if _, err := ctl.Start(context.Background()); !errors.Is(err, relay.ErrNoAck) {
		t.Fatalf("expected ErrNoAck, got %v", err)
	}
}

func TestControllerFailsWhenRelayDown(t *testing.T) {
	ctl := relay.NewController(shortSocketPath(t, "absent.sock"), "CD_Player", time.Second)
	if _, err := ctl.Start(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}
