// Package procio runs the external tools cdplayer supervises and turns their
// output into ordered text lines.
//
// Children are started in their own process group so a single Terminate
// stops a whole pipeline, and exit statuses distinguish a signal from an
// exit code because the supervisor treats the two differently.
package procio
