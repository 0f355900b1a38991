package session

import (
	"errors"
	"net"
	"strings"

	"cdplayer/internal/autotune"
	"cdplayer/internal/disc"
)

const (
	statusNoDisc         = "Please insert a CD in the drive"
	statusStopped        = "Playback stopped"
	statusUnreadableTOC  = "Could not read the disc. Is it an audio CD?"
	statusNoMetadata     = "Could not read the track list from the disc"
	statusExtractFailed  = "Could not start reading the disc"
	statusRelayFailed    = "The streaming relay is not responding"
	statusPlaybackFailed = "Playback failed, see the log for details"
	statusAddStation     = "Please add Internet Radio station for URL:\n"
)

var (
	errExtractStart    = errors.New("extraction could not start")
	errRelay           = errors.New("relay start failed")
	errMetadataMissing = errors.New("extraction ended before the track list was complete")
)

// userMessage turns a session error into the status line shown to the user.
func (s *Supervisor) userMessage(err error) string {
	switch {
	case errors.Is(err, disc.ErrNoDisc):
		return statusNoDisc
	case errors.Is(err, disc.ErrNoTracks):
		return statusUnreadableTOC
	case errors.Is(err, autotune.ErrNotFound):
		return statusAddStation + s.settings.StreamURL
	case errors.Is(err, errRelay):
		return statusRelayFailed
	case errors.Is(err, errExtractStart):
		return statusExtractFailed
	case errors.Is(err, errMetadataMissing):
		return statusNoMetadata
	default:
		return statusPlaybackFailed
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, disc.ErrNoDisc):
		return "no_disc"
	case errors.Is(err, disc.ErrNoTracks):
		return "toc"
	case errors.Is(err, errRelay):
		return "relay"
	case errors.Is(err, errExtractStart):
		return "extract"
	case errors.Is(err, errMetadataMissing):
		return "metadata"
	default:
		return "other"
	}
}

// ResolveStreamURL returns the address listeners should add as a radio
// station. An explicit advertised URL wins; otherwise "{ip}" in the mount URL
// is replaced by the first non-loopback IPv4 address of this host.
func ResolveStreamURL(advertised, mount string) string {
	if advertised = strings.TrimSpace(advertised); advertised != "" {
		return advertised
	}
	if !strings.Contains(mount, "{ip}") {
		return mount
	}
	ip := "localhost"
	if addr := firstIPv4(); addr != "" {
		ip = addr
	}
	return strings.ReplaceAll(mount, "{ip}", ip)
}

func firstIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}
