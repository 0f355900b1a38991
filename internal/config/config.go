package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, socket, and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	Socket   string `toml:"socket"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Drive contains configuration for the optical drive and the tools that read it.
type Drive struct {
	Device        string `toml:"device"`
	TOCBinary     string `toml:"toc_binary"`
	ExtractBinary string `toml:"extract_binary"`
	Speed         int    `toml:"speed"`
	TOCTimeout    int    `toml:"toc_timeout"`
	Autoplay      bool   `toml:"autoplay"`
}

// Relay contains configuration for the streaming engine and its sockets.
type Relay struct {
	Command       []string `toml:"command"`
	ControlSocket string   `toml:"control_socket"`
	AudioSocket   string   `toml:"audio_socket"`
	StreamID      string   `toml:"stream_id"`
	AckTimeout    int      `toml:"ack_timeout"`
	SocketWait    int      `toml:"socket_wait"`
	MountURL      string   `toml:"mount_url"`
}

// AutoTune contains configuration for selecting the live stream on a zone.
type AutoTune struct {
	Zone          string   `toml:"zone"`
	Path          []string `toml:"path"`
	AdvertisedURL string   `toml:"advertised_url"`
}

// Bridge contains configuration for the control-surface bridge connection.
type Bridge struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Playback       bool   `toml:"playback"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cdplayer.
//
// Configuration sections by subsystem:
//   - Paths: log directory, IPC socket, HTTP API bind address
//   - Drive: optical device, TOC and extraction tools
//   - Relay: streaming engine command and sockets
//   - AutoTune: zone and catalog path of the live stream entry
//   - Bridge: control-surface bridge (catalog, transport, status)
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Drive         Drive         `toml:"drive"`
	Relay         Relay         `toml:"relay"`
	AutoTune      AutoTune      `toml:"autotune"`
	Bridge        Bridge        `toml:"bridge"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cdplayer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cdplayer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.Socket)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "cdplayer.log")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "cdplayerd.lock")
}

// TOCTimeout returns the table-of-contents query timeout.
func (c *Config) TOCTimeout() time.Duration {
	return time.Duration(c.Drive.TOCTimeout) * time.Second
}

// AckTimeout returns how long to wait for the relay to acknowledge a command.
func (c *Config) AckTimeout() time.Duration {
	return time.Duration(c.Relay.AckTimeout) * time.Second
}

// SocketWait returns how long to wait for the relay control socket to appear.
func (c *Config) SocketWait() time.Duration {
	return time.Duration(c.Relay.SocketWait) * time.Second
}

// BridgeTimeout returns the per-request timeout for bridge calls.
func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
