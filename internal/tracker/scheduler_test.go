package tracker_test

import (
	"sort"
	"strings"
	"testing"
	"time"

	"cdplayer/internal/metadata"
	"cdplayer/internal/tracker"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) tracker.Timer {
	timer := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *fakeClock) pending() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

func discWith(durations ...time.Duration) *metadata.Disc {
	disc := metadata.NewDisc(len(durations))
	disc.Album = "Wicked Game"
	disc.Artist = "Chris Isaak"
	for i, d := range durations {
		track := metadata.Track{Title: "Track " + string(rune('A'+i))}
		if d > 0 {
			track.Duration = d
			track.HasDuration = true
		}
		disc.Tracks = append(disc.Tracks, track)
	}
	return disc
}

type recorder struct {
	updates []tracker.Update
	at      []time.Duration
	clock   *fakeClock
}

func (r *recorder) publish(u tracker.Update) {
	r.updates = append(r.updates, u)
	r.at = append(r.at, r.clock.now)
}

func TestSchedulerAdvancesWithStartupDelay(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	s := tracker.New(clock, nil, rec.publish)

	s.Begin(discWith(1000*time.Millisecond, 2000*time.Millisecond), 0, 500*time.Millisecond)

	if len(rec.updates) != 1 || rec.updates[0].Index != 0 {
		t.Fatalf("expected immediate update for first track, got %+v", rec.updates)
	}
	if rec.updates[0].Text != "Playing Wicked Game by Chris Isaak\n1: Track A" {
		t.Fatalf("unexpected status text %q", rec.updates[0].Text)
	}

	clock.Advance(1499 * time.Millisecond)
	if len(rec.updates) != 1 {
		t.Fatalf("advanced too early: %+v", rec.updates)
	}
	clock.Advance(time.Millisecond)
	if len(rec.updates) != 2 || rec.updates[1].Index != 1 || rec.at[1] != 1500*time.Millisecond {
		t.Fatalf("expected advance to second track at 1500ms, got %+v at %v", rec.updates, rec.at)
	}
	if !strings.HasSuffix(rec.updates[1].Text, "\n2: Track B") {
		t.Fatalf("unexpected status text %q", rec.updates[1].Text)
	}

	if clock.pending() != 0 || s.Pending() {
		t.Fatal("expected no advance after the last track")
	}
	clock.Advance(time.Minute)
	if len(rec.updates) != 2 {
		t.Fatalf("unexpected extra updates: %+v", rec.updates)
	}
}

func TestSchedulerDelayAppliesOnlyToFirstTrack(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	s := tracker.New(clock, nil, rec.publish)

	s.Begin(discWith(time.Second, time.Second, time.Second), 0, 300*time.Millisecond)
	clock.Advance(10 * time.Second)

	want := []time.Duration{0, 1300 * time.Millisecond, 2300 * time.Millisecond}
	if len(rec.at) != len(want) {
		t.Fatalf("unexpected update count %d", len(rec.at))
	}
	for i := range want {
		if rec.at[i] != want[i] {
			t.Fatalf("update %d at %v, want %v", i, rec.at[i], want[i])
		}
	}
}

func TestSchedulerCancelWithoutTimerIsNoop(t *testing.T) {
	s := tracker.New(&fakeClock{}, nil, nil)
	s.Cancel()
	s.Cancel()
	if s.Pending() {
		t.Fatal("expected nothing pending")
	}
}

func TestSchedulerCancelStopsAdvance(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	s := tracker.New(clock, nil, rec.publish)

	s.Begin(discWith(time.Second, time.Second), 0, 0)
	s.Cancel()
	clock.Advance(time.Minute)
	if len(rec.updates) != 1 {
		t.Fatalf("expected no advance after cancel, got %+v", rec.updates)
	}
	if _, active := s.Current(); active {
		t.Fatal("expected scheduler to be inactive")
	}
}

func TestSchedulerIgnoresCallbackQueuedBeforeCancel(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	var queued []func()
	s := tracker.New(clock, func(f func()) { queued = append(queued, f) }, rec.publish)

	s.Begin(discWith(time.Second, time.Second), 0, 0)
	clock.Advance(time.Second)
	if len(queued) != 1 {
		t.Fatalf("expected one queued callback, got %d", len(queued))
	}
	s.Cancel()
	queued[0]()
	if len(rec.updates) != 1 {
		t.Fatalf("stale callback advanced the track: %+v", rec.updates)
	}
}

func TestSchedulerUnknownDurationHolds(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	s := tracker.New(clock, nil, rec.publish)

	s.Begin(discWith(0, time.Second), 0, 0)
	if clock.pending() != 0 {
		t.Fatal("expected no advance for a track without duration")
	}
	clock.Advance(time.Hour)
	if len(rec.updates) != 1 {
		t.Fatalf("unexpected updates %+v", rec.updates)
	}
}

func TestSchedulerClampsStartIndex(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	s := tracker.New(clock, nil, rec.publish)

	s.Begin(discWith(time.Second, time.Second), 7, 0)
	if rec.updates[0].Index != 1 {
		t.Fatalf("expected clamp to last track, got %d", rec.updates[0].Index)
	}
	s.Begin(discWith(time.Second, time.Second), -2, 0)
	if rec.updates[1].Index != 0 {
		t.Fatalf("expected clamp to first track, got %d", rec.updates[1].Index)
	}
}
