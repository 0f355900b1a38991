// Package telemetry exposes Prometheus metrics for playback sessions and the
// HTTP API.
package telemetry
