package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the playback session lifecycle position.
type State int

const (
	Idle State = iota
	Querying
	Extracting
	AwaitingStream
	Streaming
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Querying:
		return "querying"
	case Extracting:
		return "extracting"
	case AwaitingStream:
		return "awaiting_stream"
	case Streaming:
		return "streaming"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalJSON renders the state name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a state name written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for candidate := Idle; candidate <= Stopping; candidate++ {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", name)
}

// Action is the single control offered to the user.
type Action int

const (
	ActionNone Action = 0
	ActionPlay Action = 1
	ActionStop Action = 2
)

func (a Action) String() string {
	switch a {
	case ActionPlay:
		return "Play"
	case ActionStop:
		return "Stop"
	default:
		return "(select action)"
	}
}

// Action derives the offered control from the state: Play when idle, Stop
// otherwise.
func (s State) Action() Action {
	if s == Idle {
		return ActionPlay
	}
	return ActionStop
}

// Snapshot is a read-only view of the supervisor, safe to share.
type Snapshot struct {
	SessionID    string        `json:"session_id,omitempty"`
	State        State         `json:"state"`
	Action       string        `json:"action"`
	Album        string        `json:"album,omitempty"`
	Artist       string        `json:"artist,omitempty"`
	TotalTracks  int           `json:"total_tracks,omitempty"`
	StartTrack   int           `json:"start_track,omitempty"`
	Track        int           `json:"track,omitempty"`
	TrackTitle   string        `json:"track_title,omitempty"`
	StartupDelay time.Duration `json:"startup_delay,omitempty"`
	StartedAt    time.Time     `json:"started_at,omitzero"`
	Status       string        `json:"status,omitempty"`
	StatusError  bool          `json:"status_error,omitempty"`
	Zone         string        `json:"zone,omitempty"`
}
