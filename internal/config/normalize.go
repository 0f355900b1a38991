package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDrive()
	c.normalizeRelay()
	c.normalizeAutoTune()
	c.normalizeBridge()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = defaultSocket
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CDPLAYER_API_TOKEN"); ok {
			c.Paths.APIToken = value
		}
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeDrive() {
	c.Drive.Device = strings.TrimSpace(c.Drive.Device)
	if c.Drive.Device == "" {
		c.Drive.Device = defaultDevice
	}
	c.Drive.TOCBinary = strings.TrimSpace(c.Drive.TOCBinary)
	if c.Drive.TOCBinary == "" {
		c.Drive.TOCBinary = defaultTOCBinary
	}
	c.Drive.ExtractBinary = strings.TrimSpace(c.Drive.ExtractBinary)
	if c.Drive.ExtractBinary == "" {
		c.Drive.ExtractBinary = defaultExtractBinary
	}
	if c.Drive.Speed <= 0 {
		c.Drive.Speed = defaultSpeed
	}
	if c.Drive.TOCTimeout <= 0 {
		c.Drive.TOCTimeout = defaultTOCTimeout
	}
}

func (c *Config) normalizeRelay() {
	command := make([]string, 0, len(c.Relay.Command))
	for _, arg := range c.Relay.Command {
		if arg = strings.TrimSpace(arg); arg != "" {
			command = append(command, arg)
		}
	}
	c.Relay.Command = command
	c.Relay.ControlSocket = strings.TrimSpace(c.Relay.ControlSocket)
	c.Relay.AudioSocket = strings.TrimSpace(c.Relay.AudioSocket)
	c.Relay.StreamID = strings.TrimSpace(c.Relay.StreamID)
	if c.Relay.StreamID == "" {
		c.Relay.StreamID = defaultStreamID
	}
	if c.Relay.AckTimeout <= 0 {
		c.Relay.AckTimeout = defaultAckTimeout
	}
	if c.Relay.SocketWait <= 0 {
		c.Relay.SocketWait = defaultSocketWait
	}
	c.Relay.MountURL = strings.TrimSpace(c.Relay.MountURL)
}

func (c *Config) normalizeAutoTune() {
	c.AutoTune.Zone = strings.TrimSpace(c.AutoTune.Zone)
	path := make([]string, 0, len(c.AutoTune.Path))
	for _, element := range c.AutoTune.Path {
		if element = strings.TrimSpace(element); element != "" {
			path = append(path, element)
		}
	}
	c.AutoTune.Path = path
	c.AutoTune.AdvertisedURL = strings.TrimSpace(c.AutoTune.AdvertisedURL)
}

func (c *Config) normalizeBridge() {
	c.Bridge.URL = strings.TrimSpace(c.Bridge.URL)
	if c.Bridge.Token == "" {
		if value, ok := os.LookupEnv("CDPLAYER_BRIDGE_TOKEN"); ok {
			c.Bridge.Token = value
		}
	}
	c.Bridge.Token = strings.TrimSpace(c.Bridge.Token)
	if c.Bridge.RequestTimeout <= 0 {
		c.Bridge.RequestTimeout = defaultBridgeTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
