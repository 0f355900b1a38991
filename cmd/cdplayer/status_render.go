package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"cdplayer/internal/ipc"
	"cdplayer/internal/session"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stateKind(state session.State) statusKind {
	switch state {
	case session.Streaming:
		return statusOK
	case session.Stopping:
		return statusWarn
	default:
		return statusInfo
	}
}

// sessionLines describes the playback session. Idle sessions only report
// the state and the last status message.
func sessionLines(snap ipc.Session, colorize bool) []string {
	lines := []string{renderStatusLine("State", stateKind(snap.State), snap.State.String(), colorize)}
	if snap.Status != "" {
		kind := statusInfo
		if snap.StatusError {
			kind = statusError
		}
		lines = append(lines, renderStatusLine("Message", kind, snap.Status, colorize))
	}
	if snap.State == session.Idle {
		return lines
	}
	if snap.SessionID != "" {
		lines = append(lines, renderStatusLine("Session", statusInfo, snap.SessionID, colorize))
	}
	if snap.Album != "" {
		album := snap.Album
		if snap.Artist != "" {
			album = fmt.Sprintf("%s by %s", snap.Album, snap.Artist)
		}
		lines = append(lines, renderStatusLine("Album", statusInfo, album, colorize))
	}
	if snap.TotalTracks > 0 {
		tracks := fmt.Sprintf("%d (from track %d)", snap.TotalTracks, snap.StartTrack)
		lines = append(lines, renderStatusLine("Tracks", statusInfo, tracks, colorize))
	}
	if snap.Track > 0 {
		track := fmt.Sprintf("%d", snap.Track)
		if snap.TrackTitle != "" {
			track = fmt.Sprintf("%d. %s", snap.Track, snap.TrackTitle)
		}
		lines = append(lines, renderStatusLine("Now playing", statusOK, track, colorize))
	}
	if snap.StartupDelay > 0 {
		lines = append(lines, renderStatusLine("Startup delay", statusInfo, snap.StartupDelay.Round(time.Millisecond).String(), colorize))
	}
	if snap.Zone != "" {
		lines = append(lines, renderStatusLine("Zone", statusInfo, snap.Zone, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}
