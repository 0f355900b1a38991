// Package bridge is the client for the control bridge, the process that
// connects cdplayer to the music system's browse, transport, status and
// settings services. The protocol is JSON request/response over a websocket.
package bridge
