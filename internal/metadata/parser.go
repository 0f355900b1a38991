package metadata

import (
	"strings"
)

// Event is what a parsed line changed in the disc metadata.
type Event int

const (
	// EventNone means the line was ignored, or only buffered.
	EventNone Event = iota
	// EventAlbum means album and artist were recognised.
	EventAlbum
	// EventTrack means a track was appended without completing the disc.
	EventTrack
	// EventComplete means the last expected track was appended. It is
	// returned at most once per Parser.
	EventComplete
)

func (e Event) String() string {
	switch e {
	case EventAlbum:
		return "album"
	case EventTrack:
		return "track"
	case EventComplete:
		return "complete"
	default:
		return "none"
	}
}

const albumKey = "Album title"

// Parser incrementally builds Disc metadata from icedax -gui diagnostic lines.
// It keeps an incomplete track line between calls, so one Parser must be used
// for exactly one extraction run.
type Parser struct {
	disc       *Disc
	albumKnown bool
	carry      string
	carrying   bool
	completed  bool
}

// NewParser returns a parser that fills disc.
func NewParser(disc *Disc) *Parser {
	return &Parser{disc: disc}
}

// Disc returns the metadata being built.
func (p *Parser) Disc() *Disc {
	return p.disc
}

// Pending reports whether an incomplete track line is buffered.
func (p *Parser) Pending() bool {
	return p.carrying
}

// ParseLine applies one diagnostic line.
//
// Example input:
//
//	Album title: 'Wicked Game (MCD 1990)' from 'Various Artists'
//	T01:       0  4:06.65 audio linear copydenied stereo title 'Chris Isaak / Wicked Game' from ''
func (p *Parser) ParseLine(line string) Event {
	key, rest, hasKey := strings.Cut(line, ":")
	if hasKey && key == albumKey {
		p.parseAlbum(rest)
		return EventAlbum
	}
	if !p.albumKnown {
		return EventNone
	}

	var candidate string
	switch {
	case p.carrying:
		candidate = p.carry + " " + line
	case hasKey && strings.HasPrefix(key, "T"):
		candidate = rest
	default:
		return EventNone
	}
	return p.parseTrack(candidate)
}

func (p *Parser) parseAlbum(rest string) {
	segments := strings.Split(rest, "'")
	album, next := joinEscaped(segments, 1)
	artist, _ := joinEscaped(segments, next+1)
	p.disc.Album = album
	p.disc.Artist = artist
	p.albumKnown = true
}

func (p *Parser) parseTrack(line string) Event {
	segments := strings.Split(line, "'")
	if len(segments) <= 2 {
		// The title continues on the next diagnostic line.
		p.carry = line
		p.carrying = true
		return EventNone
	}
	p.carry = ""
	p.carrying = false

	if p.completed || len(p.disc.Tracks) >= p.disc.TotalTracks {
		return EventNone
	}

	title, _ := joinEscaped(segments, 1)
	track := Track{Title: title}
	if token, ok := durationToken(segments[0]); ok {
		track.Duration, track.HasDuration = ParseDuration(token)
	}
	p.disc.Tracks = append(p.disc.Tracks, track)

	if p.disc.Complete() {
		p.completed = true
		return EventComplete
	}
	return EventTrack
}

// durationToken picks the length column from the text before the title. The
// first column is the start sector; the length follows it.
func durationToken(prefix string) (string, bool) {
	fields := strings.Fields(prefix)
	switch {
	case len(fields) >= 2:
		return fields[1], true
	case len(fields) == 1 && strings.Contains(fields[0], ":"):
		return fields[0], true
	default:
		return "", false
	}
}

// joinEscaped returns the quote-delimited field starting at segments[start].
// A segment ending in a backslash had its closing quote escaped, so the
// following segment is appended with the quote restored. The returned index
// is the first segment after the field.
func joinEscaped(segments []string, start int) (string, int) {
	if start >= len(segments) {
		return "", start
	}
	value := segments[start]
	i := start + 1
	for ; i < len(segments) && strings.HasSuffix(value, `\`); i++ {
		value = strings.TrimSuffix(value, `\`) + "'" + segments[i]
	}
	return value, i
}
