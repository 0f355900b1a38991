// Package logging assembles structured slog loggers and formatting helpers used
// across cdplayer.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers that tag log lines with components, session
// IDs, and the child process a line came from. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
