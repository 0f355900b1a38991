package metadata

import (
	"fmt"
	"time"
)

// Track is one audio track as reported by the extractor.
type Track struct {
	Title       string        `json:"title"`
	Duration    time.Duration `json:"duration"`
	HasDuration bool          `json:"has_duration"`
}

// DurationMillis returns the track length in milliseconds, if known.
func (t Track) DurationMillis() (int, bool) {
	if !t.HasDuration {
		return 0, false
	}
	return int(t.Duration.Milliseconds()), true
}

// Disc holds the metadata gathered for the disc being played. It belongs to a
// single playback session.
type Disc struct {
	Album       string  `json:"album,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	TotalTracks int     `json:"total_tracks"`
	Tracks      []Track `json:"tracks,omitempty"`
}

// NewDisc returns metadata for a disc whose table of contents lists total tracks.
func NewDisc(total int) *Disc {
	return &Disc{TotalTracks: total, Tracks: make([]Track, 0, max(total, 0))}
}

// Complete reports whether every expected track has been seen.
func (d *Disc) Complete() bool {
	return d != nil && d.TotalTracks > 0 && len(d.Tracks) == d.TotalTracks
}

// Headline is the "Playing ALBUM by ARTIST" status line.
func (d *Disc) Headline() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("Playing %s by %s", d.Album, d.Artist)
}

// Track returns the track at a zero-based index.
func (d *Disc) Track(index int) (Track, bool) {
	if d == nil || index < 0 || index >= len(d.Tracks) {
		return Track{}, false
	}
	return d.Tracks[index], true
}

// Clone returns a deep copy safe to hand to other goroutines.
func (d *Disc) Clone() *Disc {
	if d == nil {
		return nil
	}
	out := *d
	out.Tracks = append([]Track(nil), d.Tracks...)
	return &out
}
