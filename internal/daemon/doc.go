// Package daemon coordinates the long-running cdplayer process and its
// system integration points.
//
// It wires configuration, the drive tools, the relay process, the control
// bridge and the playback supervisor into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon also serves
// the HTTP API, exports metrics, and optionally starts playback when a CD is
// inserted.
//
// Keep orchestration logic here: playback semantics live in the session
// package while the daemon focuses on startup, shutdown, and wiring.
package daemon
