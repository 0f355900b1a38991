// Package logs reads the daemon log: the last N lines of the log file, new
// lines as they are appended, and structured events from the daemon's HTTP
// log endpoint.
package logs
