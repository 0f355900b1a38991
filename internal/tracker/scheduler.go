package tracker

import (
	"fmt"
	"time"

	"cdplayer/internal/metadata"
)

// Update is the now-playing state published on every track change.
type Update struct {
	Index int
	Track metadata.Track
	Text  string
}

// Scheduler advances the now-playing track when the previous one should
// have finished, since the extractor does not announce track changes.
//
// Begin and Cancel must be called from one goroutine. Timer callbacks are
// handed to post, which must run them on that same goroutine.
type Scheduler struct {
	clock   Clock
	post    func(func())
	publish func(Update)

	disc       *metadata.Disc
	generation uint64
	timer      Timer
	current    int
	active     bool
}

// New constructs a Scheduler. A nil post runs callbacks directly on the
// timer goroutine, which is only safe when nothing else touches the
// scheduler.
func New(clock Clock, post func(func()), publish func(Update)) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if post == nil {
		post = func(f func()) { f() }
	}
	if publish == nil {
		publish = func(Update) {}
	}
	return &Scheduler{clock: clock, post: post, publish: publish}
}

// Begin publishes the track at index (clamped to the disc) and schedules the
// following advances. startupDelay is added to the first track only.
func (s *Scheduler) Begin(disc *metadata.Disc, index int, startupDelay time.Duration) {
	s.Cancel()
	if disc == nil || disc.TotalTracks < 1 {
		return
	}
	s.disc = disc
	s.active = true
	s.show(index, startupDelay)
}

// Cancel drops any pending advance. Safe to call at any time.
func (s *Scheduler) Cancel() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active = false
}

// Current returns the zero-based index of the track shown, if any.
func (s *Scheduler) Current() (int, bool) {
	return s.current, s.active
}

// Pending reports whether an advance is scheduled.
func (s *Scheduler) Pending() bool {
	return s.timer != nil
}

func (s *Scheduler) show(index int, delay time.Duration) {
	last := s.disc.TotalTracks - 1
	if index > last {
		index = last
	}
	if index < 0 {
		index = 0
	}
	s.current = index

	track, _ := s.disc.Track(index)
	s.publish(Update{
		Index: index,
		Track: track,
		Text:  fmt.Sprintf("%s\n%d: %s", s.disc.Headline(), index+1, track.Title),
	})

	if !track.HasDuration || index+1 >= s.disc.TotalTracks {
		return
	}
	generation := s.generation
	next := index + 1
	s.timer = s.clock.AfterFunc(track.Duration+delay, func() {
		s.post(func() {
			if s.generation != generation {
				return
			}
			s.timer = nil
			s.show(next, 0)
		})
	})
}
