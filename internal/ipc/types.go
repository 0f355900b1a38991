package ipc

import "cdplayer/internal/session"

// Session mirrors the supervisor snapshot on the wire.
type Session = session.Snapshot

// PlayRequest starts playback at a 1-based track.
type PlayRequest struct {
	From int `json:"from"`
}

// PlayResponse reports whether a session was started.
type PlayResponse struct {
	Started bool    `json:"started"`
	Message string  `json:"message"`
	Session Session `json:"session"`
}

// StopRequest ends playback.
type StopRequest struct{}

// StopResponse carries the state after the stop request.
type StopResponse struct {
	Session Session `json:"session"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external program.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon and session status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockPath     string             `json:"lock_path"`
	Session      Session            `json:"session"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ShutdownRequest asks the daemon to stop playback and exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// EjectRequest opens the drive tray.
type EjectRequest struct{}

// EjectResponse reports the eject result.
type EjectResponse struct {
	Ejected bool   `json:"ejected"`
	Message string `json:"message"`
}
