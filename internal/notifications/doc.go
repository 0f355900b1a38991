// Package notifications sends optional ntfy push messages when playback
// starts or stops and when a session fails.
package notifications
