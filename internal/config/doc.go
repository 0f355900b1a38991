// Package config loads, normalizes, and validates cdplayer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CDPLAYER_BRIDGE_TOKEN. The Config type centralizes every knob the daemon
// and CLI need: the optical drive and its tools, the streaming relay, the
// auto-tune zone and catalog path, and the control bridge.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
