package config

const (
	defaultLogDir            = "~/.local/share/cdplayer/logs"
	defaultSocket            = "~/.local/share/cdplayer/cdplayer.sock"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultDevice            = "/dev/cdrom"
	defaultTOCBinary         = "wodim"
	defaultExtractBinary     = "icedax"
	defaultSpeed             = 1
	defaultTOCTimeout        = 60
	defaultRelayScript       = "./cd-player.liq"
	defaultControlSocket     = "/var/run/liquidsoap.sock"
	defaultAudioSocket       = "/var/run/cd-player.sock"
	defaultStreamID          = "CD_Player"
	defaultAckTimeout        = 5
	defaultSocketWait        = 30
	defaultMountURL          = "http://{ip}:8000/roon-extension-cd-player"
	defaultBridgeTimeout     = 10
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultAutoTuneCategory  = "Internet Radio"
	defaultAutoTuneStationID = "CD Player"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			Socket:  defaultSocket,
			APIBind: defaultAPIBind,
		},
		Drive: Drive{
			Device:        defaultDevice,
			TOCBinary:     defaultTOCBinary,
			ExtractBinary: defaultExtractBinary,
			Speed:         defaultSpeed,
			TOCTimeout:    defaultTOCTimeout,
		},
		Relay: Relay{
			Command:       []string{defaultRelayScript},
			ControlSocket: defaultControlSocket,
			AudioSocket:   defaultAudioSocket,
			StreamID:      defaultStreamID,
			AckTimeout:    defaultAckTimeout,
			SocketWait:    defaultSocketWait,
			MountURL:      defaultMountURL,
		},
		AutoTune: AutoTune{
			Path: []string{defaultAutoTuneCategory, defaultAutoTuneStationID},
		},
		Bridge: Bridge{
			RequestTimeout: defaultBridgeTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Playback:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
