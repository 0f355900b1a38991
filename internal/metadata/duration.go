package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration converts an icedax track length such as "4:06.65" into a
// duration. An optional leading hours field ("1:02:03.40") is accepted. The
// boolean is false when the text has no fractional part or is malformed; the
// track is then kept without a duration.
func ParseDuration(text string) (time.Duration, bool) {
	text = strings.TrimSpace(text)
	clock, frac, ok := strings.Cut(text, ".")
	if !ok || frac == "" || len(frac) > 2 {
		return 0, false
	}
	hundredths, ok := parseUint(frac)
	if !ok {
		return 0, false
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		v, ok := parseUint(part)
		if !ok {
			return 0, false
		}
		values[i] = v
	}

	var hours, minutes, seconds int
	if len(values) == 3 {
		hours, minutes, seconds = values[0], values[1], values[2]
		if minutes > 59 {
			return 0, false
		}
	} else {
		minutes, seconds = values[0], values[1]
	}
	if seconds > 59 {
		return 0, false
	}

	ms := hours*3_600_000 + minutes*60_000 + seconds*1_000 + hundredths*10
	return time.Duration(ms) * time.Millisecond, true
}

// FormatDuration renders d in the M:SS.hh form ParseDuration accepts.
// Sub-hundredth precision is truncated; minutes are not folded into hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	minutes := ms / 60_000
	seconds := (ms % 60_000) / 1_000
	hundredths := (ms % 1_000) / 10
	return fmt.Sprintf("%d:%02d.%02d", minutes, seconds, hundredths)
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
