// Package session runs the playback session state machine.
//
// A Supervisor owns at most one session at a time and moves it through
// Querying, Extracting, AwaitingStream and Streaming before returning to
// Idle. Every state change happens on the goroutine running Supervisor.Run:
// disc queries, extraction output, relay log events, track timers and remote
// call results are posted to it as closures tagged with the session they
// belong to, and closures for a session that already ended are discarded.
//
// Calls to the control surface (status line, settings layout, zone
// transport) leave the loop through an ordered outbox so a slow surface never
// delays a state transition.
package session
