package relay

import (
	"strconv"
	"strings"
)

const (
	msgConnected    = "Connection setup was successful."
	msgDisconnected = "Closing connection..."
)

// LogEntry is one parsed relay log line:
//
//	2019/05/02 21:14:07 [CD_Player:3] Connection setup was successful.
type LogEntry struct {
	Timestamp string
	Process   string
	Level     int
	Message   string
}

// ParseLogLine splits a relay log line. Lines without a "[process] "
// header are reported as not ok.
func ParseLogLine(line string) (LogEntry, bool) {
	line = strings.TrimRight(line, "\r ")
	head, msg, ok := strings.Cut(line, "] ")
	if !ok {
		return LogEntry{}, false
	}
	ts, tag, ok := strings.Cut(head, " [")
	if !ok {
		return LogEntry{}, false
	}
	entry := LogEntry{Timestamp: ts, Process: tag, Message: msg}
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		if level, err := strconv.Atoi(tag[i+1:]); err == nil {
			entry.Process = tag[:i]
			entry.Level = level
		}
	}
	return entry, true
}

// EventKind is a stream state change observed in the relay log.
type EventKind int

const (
	EventNone EventKind = iota
	EventConnected
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "none"
	}
}

// Classify maps an entry to a stream event for the given stream id. Entries
// from other relay components never produce events.
func (e LogEntry) Classify(streamID string) EventKind {
	if streamID == "" || !strings.Contains(e.Process, streamID) {
		return EventNone
	}
	switch e.Message {
	case msgConnected:
		return EventConnected
	case msgDisconnected:
		return EventDisconnected
	default:
		return EventNone
	}
}
