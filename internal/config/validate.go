package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateAutoTune(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRelay() error {
	if len(c.Relay.Command) == 0 {
		return errors.New("relay.command must name the streaming engine to launch")
	}
	if c.Relay.ControlSocket == "" {
		return errors.New("relay.control_socket must be set")
	}
	if c.Relay.AudioSocket == "" {
		return errors.New("relay.audio_socket must be set")
	}
	if c.Relay.ControlSocket == c.Relay.AudioSocket {
		return errors.New("relay.control_socket and relay.audio_socket must differ")
	}
	return nil
}

func (c *Config) validateAutoTune() error {
	if c.AutoTune.Zone != "" && len(c.AutoTune.Path) == 0 {
		return errors.New("autotune.path must list at least one catalog entry when autotune.zone is set")
	}
	if c.AutoTune.Zone != "" && c.Bridge.URL == "" {
		return errors.New("bridge.url must be set when autotune.zone is set")
	}
	return nil
}

func (c *Config) validateBridge() error {
	if c.Bridge.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Bridge.URL)
	if err != nil {
		return fmt.Errorf("bridge.url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("bridge.url: unsupported scheme %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
