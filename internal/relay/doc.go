// Package relay drives the local streaming relay (liquidsoap): it launches
// the relay process, sends it control commands over a unix socket, and
// watches its log for the configured stream connecting and disconnecting.
package relay
