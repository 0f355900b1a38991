package relay_test

import (
	"testing"

	"cdplayer/internal/relay"
)

func TestParseLogLine(t *testing.T) {
	entry, ok := relay.ParseLogLine("2019/05/02 21:14:07 [CD_Player:3] Connection setup was successful.")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if entry.Timestamp != "2019/05/02 21:14:07" || entry.Process != "CD_Player" || entry.Level != 3 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Message != "Connection setup was successful." {
		t.Fatalf("unexpected message %q", entry.Message)
	}

	if _, ok := relay.ParseLogLine("plain text without header"); ok {
		t.Fatal("expected header-less line to be rejected")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want relay.EventKind
	}{
		{"2019/05/02 21:14:07 [CD_Player:3] Connection setup was successful.", relay.EventConnected},
		{"2019/05/02 21:20:11 [CD_Player:3] Closing connection...", relay.EventDisconnected},
		{"2019/05/02 21:20:11 [CD_Player:3] Closing connection...\r", relay.EventDisconnected},
		{"2019/05/02 21:20:11 [output.CD_Player_icecast:3] Closing connection...", relay.EventDisconnected},
		{"2019/05/02 21:14:07 [other_stream:3] Connection setup was successful.", relay.EventNone},
		{"2019/05/02 21:14:07 [CD_Player:3] Switch to source.", relay.EventNone},
	}
	for _, tt := range tests {
		entry, ok := relay.ParseLogLine(tt.line)
		if !ok {
			t.Fatalf("failed to parse %q", tt.line)
		}
		if got := entry.Classify("CD_Player"); got != tt.want {
			t.Fatalf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestClassifyRequiresStreamID(t *testing.T) {
	entry, _ := relay.ParseLogLine("2019/05/02 21:14:07 [CD_Player:3] Connection setup was successful.")
	if got := entry.Classify(""); got != relay.EventNone {
		t.Fatalf("expected no event without stream id, got %v", got)
	}
}
