package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"cdplayer/internal/config"
	"cdplayer/internal/logging"
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

func TestRunRemovesSocketWhenStartFails(t *testing.T) {
	cfg := testConfig(t)
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	err := run(context.Background(), cfg, logging.NewNop())
	if err == nil {
		t.Fatal("expected start failure while another instance holds the lock")
	}
	if strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	if !strings.Contains(err.Error(), "start daemon") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(cfg.Paths.Socket); !os.IsNotExist(statErr) {
		t.Fatalf("expected socket removed, stat err = %v", statErr)
	}
}
