package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cdplayer/internal/logging"
	"cdplayer/internal/logs"
	"cdplayer/internal/session"
)

func TestCLIPlayStatusStop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"play", "--from", "3"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	requireContains(t, out, "Playback starting at track 3 (session sess-1)")
	if plays, _ := env.stub.counts(); len(plays) != 1 || plays[0] != 3 {
		t.Fatalf("expected play from 3, got %v", plays)
	}

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Session ==")
	requireContains(t, out, "[INFO] querying")
	requireContains(t, out, "Running (pid 4242)")
	requireContains(t, out, "[ERROR] binary \"icedax\" not found")
	requireContains(t, out, "[WARN] binary \"eject\" not found")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "state: idle")
}

func TestCLIPlayReportsBusy(t *testing.T) {
	env := setupCLITestEnv(t)
	env.stub.setSnapshot(session.Snapshot{State: session.Streaming})

	_, _, err := runCLI(t, []string{"play"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error while a session is active")
	}
	if !strings.Contains(err.Error(), session.ErrBusy.Error()) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIPlayRejectsInvalidStartTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"play", "--from", "0"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--from must be 1 or higher") {
		t.Fatalf("expected start track error, got %v", err)
	}
	if plays, _ := env.stub.counts(); len(plays) != 0 {
		t.Fatalf("daemon should not be contacted, got %v", plays)
	}
}

func TestCLIShutdownAndEject(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"shutdown"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	requireContains(t, out, "Daemon shutting down")
	if _, shutdowns := env.stub.counts(); shutdowns != 1 {
		t.Fatalf("expected one shutdown, got %d", shutdowns)
	}

	out, _, err = runCLI(t, []string{"eject"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("eject: %v", err)
	}
	requireContains(t, out, "Tray ejected")

	env.stub.setEjectErr(errDriveBusy)
	if _, _, err := runCLI(t, []string{"eject"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("expected busy eject error, got %v", err)
	}
}

func TestCLIMissingSocket(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.sock")
	_, _, err := runCLI(t, []string{"status"}, missing, env.configPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "start it with `cdplayerd`")
}

func TestCLIDepsUsesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"deps"}, "", env.configPath)
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "wodim")
	requireContains(t, out, "Relay")
	requireContains(t, out, "/bin/true")
}

func TestCLILogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(filepath.Dir(env.configPath), "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "line one\nline two\nline three\n"
	if err := os.WriteFile(filepath.Join(logDir, "cdplayer.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, "", env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "line two\nline three\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCLILogsFromAPI(t *testing.T) {
	env := setupCLITestEnv(t)
	var (
		mu     sync.Mutex
		sinces []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sinces = append(sinces, r.URL.Query().Get("since"))
		mu.Unlock()
		resp := logs.StreamResponse{Next: 5}
		if r.URL.Query().Get("since") == "3" {
			resp.Events = []logging.LogEvent{
				{Sequence: 4, Timestamp: time.Now(), Level: "info", Component: "supervisor", Message: "stream connected"},
				{Sequence: 5, Timestamp: time.Now(), Level: "info", Component: "supervisor", Message: "now playing"},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	content, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	bind := strings.TrimPrefix(srv.URL, "http://")
	updated := strings.Replace(string(content), "[paths]\n", "[paths]\napi_bind = \""+bind+"\"\n", 1)
	if err := os.WriteFile(env.configPath, []byte(updated), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--api", "-n", "2"}, "", env.configPath)
	if err != nil {
		t.Fatalf("logs --api: %v", err)
	}
	requireContains(t, out, "supervisor: stream connected")
	requireContains(t, out, "supervisor: now playing")
	mu.Lock()
	defer mu.Unlock()
	if len(sinces) != 2 || sinces[0] != "" || sinces[1] != "3" {
		t.Fatalf("unexpected requests: %v", sinces)
	}
}
