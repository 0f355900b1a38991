package daemon_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"cdplayer/internal/config"
	"cdplayer/internal/daemon"
	"cdplayer/internal/logging"
	"cdplayer/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Socket = filepath.Join(base, "cdplayer.sock")
	cfg.Paths.APIBind = ""
	cfg.Relay.Command = []string{"/bin/true"}
	cfg.Relay.ControlSocket = filepath.Join(base, "relay.sock")
	cfg.Relay.AudioSocket = filepath.Join(base, "audio.sock")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func TestNewReportsIdleStatus(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon must not report running before Start")
	}
	if status.Session.State != session.Idle || status.Session.Action != "Play" {
		t.Fatalf("unexpected session %+v", status.Session)
	}
	if status.LockPath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockPath)
	}
	if len(status.Dependencies) != 4 {
		t.Fatalf("expected 4 dependency checks, got %d", len(status.Dependencies))
	}
}

func TestStartRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	err = d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestStartFailsWhenRelayExits(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail when the relay exits without a control socket")
	}

	// The lock must have been released for the next attempt.
	other := flock.New(cfg.LockPath())
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("expected lock to be free, ok=%v err=%v", ok, err)
	}
	_ = other.Unlock()
}
