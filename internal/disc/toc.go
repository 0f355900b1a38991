package disc

import (
	"strconv"
	"strings"
)

const noDiscMessage = "No disk / Wrong disk!"

// TOC is what wodim -toc told us about the disc.
type TOC struct {
	// Tracks is the last track number, zero if not reported.
	Tracks int
	// NoDisc is set when wodim reported an empty or unreadable drive.
	NoDisc bool
}

// ParseTOC reads wodim -toc output. Only two lines matter:
//
//	wodim: No disk / Wrong disk!
//	first: 1 last 13
func ParseTOC(output string) TOC {
	var toc TOC
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ": ")
		if !ok {
			continue
		}
		switch key {
		case "wodim":
			if strings.TrimSpace(value) == noDiscMessage {
				toc.NoDisc = true
			}
		case "first":
			fields := strings.Split(value, " ")
			if len(fields) < 3 {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(fields[2])); err == nil && n > 0 {
				toc.Tracks = n
			}
		}
	}
	return toc
}
