package deps

import (
	"os"
	"path/filepath"
	"testing"

	"cdplayer/internal/config"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheck(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "#!/bin/sh\nexit 0\n")

	if status := Check(Requirement{Name: "Present", Command: present}); !status.Available || status.Detail != "" {
		t.Fatalf("expected requirement to be available, got %#v", status)
	}
	missing := Check(Requirement{Name: "Missing", Command: "clearly-not-present-binary", Optional: true})
	if missing.Available || missing.Detail == "" || !missing.Optional {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", missing)
	}
	if missing.Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", missing.Command)
	}
	if status := Check(Requirement{Name: "Unset", Command: "  "}); status.Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", status.Detail)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Drive.TOCBinary = "/opt/cdrkit/wodim"
	cfg.Relay.Command = []string{"/etc/cdplayer/cd-player.liq", "--verbose"}

	reqs := Requirements(&cfg)
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/cdrkit/wodim" || reqs[1].Command != "icedax" {
		t.Fatalf("unexpected drive commands: %#v", reqs)
	}
	if reqs[2].Name != "Relay" || reqs[2].Command != "/etc/cdplayer/cd-player.liq" {
		t.Fatalf("unexpected relay requirement: %#v", reqs[2])
	}
	if !reqs[3].Optional {
		t.Fatal("eject should be optional")
	}
}

func TestCheckAllReportsUnsetRelay(t *testing.T) {
	cfg := config.Default()
	cfg.Relay.Command = nil
	for _, status := range CheckAll(&cfg) {
		if status.Name != "Relay" {
			continue
		}
		if status.Available || status.Detail != "command not configured" {
			t.Fatalf("unexpected relay status: %#v", status)
		}
		return
	}
	t.Fatal("relay missing from CheckAll")
}

func TestCheckScriptInterpreter(t *testing.T) {
	dir := t.TempDir()
	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeStub(t, binDir, "liquidsoap", "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", binDir)

	script := writeStub(t, dir, "cd-player.liq", "#!/usr/bin/env -S liquidsoap\nset(\"log.stdout\", true)\n")
	if status := Check(Requirement{Name: "Relay", Command: script}); !status.Available {
		t.Fatalf("expected relay to be available, got %#v", status)
	}

	orphan := writeStub(t, dir, "other.liq", "#!/usr/bin/env missing-interpreter\n")
	status := Check(Requirement{Name: "Relay", Command: orphan})
	if status.Available || status.Detail == "" {
		t.Fatalf("expected missing interpreter to be reported, got %#v", status)
	}
}

func TestCheckPlainBinary(t *testing.T) {
	bin := writeStub(t, t.TempDir(), "relay", "\x7fELF")
	if status := Check(Requirement{Name: "Relay", Command: bin}); !status.Available {
		t.Fatalf("expected plain binary to be available, got %#v", status)
	}
}
