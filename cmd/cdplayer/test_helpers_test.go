package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cdplayer/internal/daemon"
	"cdplayer/internal/deps"
	"cdplayer/internal/ipc"
	"cdplayer/internal/logging"
	"cdplayer/internal/session"
)

type daemonStub struct {
	mu        sync.Mutex
	snap      session.Snapshot
	plays     []int
	shutdowns int
	ejectErr  error
}

func (d *daemonStub) Play(_ context.Context, from int) (session.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snap.State != session.Idle {
		return d.snap, session.ErrBusy
	}
	d.plays = append(d.plays, from)
	d.snap = session.Snapshot{SessionID: "sess-1", State: session.Querying, StartTrack: from, Action: "Stop"}
	return d.snap, nil
}

func (d *daemonStub) Stop(context.Context) (session.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = session.Snapshot{State: session.Idle, Status: "Playback stopped", Action: "Play"}
	return d.snap, nil
}

func (d *daemonStub) Shutdown(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
	return nil
}

func (d *daemonStub) Eject(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ejectErr
}

func (d *daemonStub) Status(context.Context) daemon.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return daemon.Status{
		Running:  true,
		PID:      4242,
		LockPath: "/tmp/cdplayerd.lock",
		Session:  d.snap,
		Dependencies: []deps.Status{
			{Name: "wodim", Command: "wodim", Available: true},
			{Name: "icedax", Command: "icedax", Detail: `binary "icedax" not found`},
			{Name: "eject", Command: "eject", Optional: true, Detail: `binary "eject" not found`},
		},
	}
}

type cliTestEnv struct {
	stub       *daemonStub
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	base := t.TempDir()
	env := &cliTestEnv{
		stub:       &daemonStub{},
		socketPath: filepath.Join(base, "cdplayer.sock"),
		configPath: filepath.Join(base, "config.toml"),
	}
	writeTestConfig(t, env.configPath, base)

	srv, err := ipc.NewServer(ctx, env.socketPath, env.stub, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return env
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
socket = %q

[drive]
toc_binary = "/bin/true"
extract_binary = "/bin/true"

[relay]
command = ["/bin/true"]
control_socket = %q
audio_socket = %q
`,
		filepath.Join(base, "logs"),
		filepath.Join(base, "cdplayer.sock"),
		filepath.Join(base, "control.sock"),
		filepath.Join(base, "audio.sock"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

var errDriveBusy = errors.New("player is busy; stop playback first")

func (d *daemonStub) setSnapshot(snap session.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = snap
}

func (d *daemonStub) setEjectErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ejectErr = err
}

func (d *daemonStub) counts() ([]int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.plays...), d.shutdowns
}
