package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cdplayer/internal/autotune"
	"cdplayer/internal/extract"
	"cdplayer/internal/logging"
	"cdplayer/internal/metadata"
	"cdplayer/internal/procio"
	"cdplayer/internal/relay"
	"cdplayer/internal/tracker"
)

func (s *Supervisor) play(from int) (Snapshot, error) {
	if s.exiting {
		return s.currentSnapshot(), ErrShuttingDown
	}
	if s.session != nil {
		return s.currentSnapshot(), ErrBusy
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(logging.WithSessionID(s.baseCtx, id))
	sess := &playbackSession{
		id:        id,
		from:      from,
		zone:      s.settings.Zone,
		startedAt: s.now(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.WithContext(ctx, s.logger),
	}
	s.session = sess
	s.deps.Metrics.SessionStarted()
	s.setState(sess, Querying)
	sess.logger.Info("playback requested", logging.Int("from", from))

	queryCtx, queryCancel := context.WithTimeout(ctx, s.settings.TOCTimeout)
	go func() {
		defer queryCancel()
		count, err := s.deps.Inspector.Query(queryCtx)
		s.postSession(id, func(sess *playbackSession) { s.onQueryDone(sess, count, err) })
	}()
	return s.currentSnapshot(), nil
}

func (s *Supervisor) onQueryDone(sess *playbackSession, count int, err error) {
	if sess.state == Stopping {
		s.cleanup(sess)
		s.finish(sess)
		return
	}
	if sess.state != Querying {
		return
	}
	if err != nil {
		s.fail(sess, fmt.Errorf("disc query: %w", err))
		return
	}

	sess.disc = metadata.NewDisc(count)
	sess.parser = metadata.NewParser(sess.disc)
	sess.rng = extract.ClipRange(sess.from, count)
	sess.logger.Info("disc found",
		logging.Int("total_tracks", count),
		logging.String("track_range", sess.rng.String()),
	)

	id := sess.id
	run, err := s.deps.Extractor.Start(sess.ctx, sess.rng, func(line string) {
		s.postSession(id, func(sess *playbackSession) { s.onLine(sess, line) })
	})
	if err != nil {
		s.fail(sess, fmt.Errorf("%w: %w", errExtractStart, err))
		return
	}
	sess.run = run
	s.setState(sess, Extracting)

	go func() {
		<-run.Done()
		status := run.Status()
		s.postSession(id, func(sess *playbackSession) { s.onExtractionExit(sess, status) })
	}()
}

func (s *Supervisor) onLine(sess *playbackSession, line string) {
	if sess.parser == nil {
		return
	}
	switch sess.parser.ParseLine(line) {
	case metadata.EventAlbum:
		sess.logger.Info("album identified",
			logging.String("album", sess.disc.Album),
			logging.String("artist", sess.disc.Artist),
		)
		if sess.state == Extracting {
			s.setStatus(sess.disc.Headline(), false)
		}
	case metadata.EventComplete:
		if sess.state != Extracting {
			return
		}
		sess.logger.Info("track list complete", logging.Int("tracks", len(sess.disc.Tracks)))
		s.setState(sess, AwaitingStream)
		s.startRelay(sess)
	}
}

func (s *Supervisor) startRelay(sess *playbackSession) {
	sess.issuedAt = s.now()
	id := sess.id
	ctx := sess.ctx
	go func() {
		_, err := s.deps.Relay.Start(ctx)
		if err == nil {
			return
		}
		s.postSession(id, func(sess *playbackSession) {
			if sess.state == AwaitingStream {
				s.fail(sess, fmt.Errorf("%w: %w", errRelay, err))
			}
		})
	}()
}

func (s *Supervisor) onRelayEvent(ev relay.Event) {
	sess := s.session
	if sess == nil {
		s.logger.Debug("relay event without session", logging.String("event", ev.Kind.String()))
		return
	}
	switch ev.Kind {
	case relay.EventConnected:
		if sess.state != AwaitingStream {
			return
		}
		sess.delay = max(ev.At.Sub(sess.issuedAt), 0)
		s.deps.Metrics.ObserveStartupDelay(sess.delay)
		sess.logger.Info("stream connected", logging.Duration("startup_delay", sess.delay))
		s.setState(sess, Streaming)
		s.autoTune(sess)
		s.scheduler.Begin(sess.disc, sess.rng.StartIndex(), sess.delay)
		s.notify(func(ctx context.Context) error {
			return s.deps.Notifier.NotifyPlaybackStarted(ctx, sess.disc.Album, sess.disc.Artist, sess.disc.TotalTracks)
		})
	case relay.EventDisconnected:
		if sess.state != Streaming && sess.state != AwaitingStream {
			return
		}
		sess.logger.Info("stream disconnected")
		s.cleanup(sess)
		s.setState(sess, Stopping)
		if sess.exited || sess.run == nil {
			s.finish(sess)
			return
		}
		sess.run.Terminate()
	}
}

func (s *Supervisor) onExtractionExit(sess *playbackSession, status procio.ExitStatus) {
	sess.exited = true
	if status.Signaled {
		sess.logger.Info("extraction exited", logging.String("status", status.String()))
		if !sess.cleanedUp {
			s.cleanup(sess)
		}
		s.finish(sess)
		return
	}

	sess.logger.Info("extraction exited", logging.String("status", status.String()))
	switch sess.state {
	case Stopping:
		s.cleanup(sess)
		s.finish(sess)
	case Extracting:
		s.fail(sess, errMetadataMissing)
	}
}

func (s *Supervisor) stop() {
	sess := s.session
	if sess == nil {
		s.logger.Debug("stop ignored, nothing playing")
		return
	}
	switch sess.state {
	case Stopping:
		return
	case Querying:
		sess.logger.Info("stop requested while querying")
		s.setState(sess, Stopping)
		sess.cancel()
	default:
		sess.logger.Info("stop requested")
		if sess.run == nil || sess.exited {
			s.cleanup(sess)
			s.finish(sess)
			return
		}
		s.setState(sess, Stopping)
		sess.run.Terminate()
	}
}

func (s *Supervisor) requestShutdown() {
	if s.exiting {
		return
	}
	s.exiting = true
	s.logger.Info("shutdown requested", logging.Bool("session_active", s.session != nil))
	s.stop()
}

func (s *Supervisor) autoTune(sess *playbackSession) {
	zone := sess.zone
	if zone == "" || s.deps.Navigator == nil {
		return
	}
	path := append([]string(nil), s.settings.Path...)
	id := sess.id
	ctx := sess.ctx
	go func() {
		_, err := s.deps.Navigator.Tune(ctx, zone, path)
		s.postSession(id, func(sess *playbackSession) { s.onTuneDone(sess, err) })
	}()
}

func (s *Supervisor) onTuneDone(sess *playbackSession, err error) {
	switch {
	case err == nil:
		s.deps.Metrics.AutoTune("selected")
	case errors.Is(err, autotune.ErrNotFound):
		s.deps.Metrics.AutoTune("not_found")
		logging.WarnWithContext(sess.logger, "stream entry missing from catalog", "autotune_not_found",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add the stream URL as an internet radio station"),
			logging.String(logging.FieldImpact, "zone was not switched to the CD stream"),
		)
		s.setStatus(s.userMessage(err), true)
	case errors.Is(err, autotune.ErrAborted):
		s.deps.Metrics.AutoTune("aborted")
		sess.logger.Info("auto-tune aborted", logging.Error(err))
	default:
		s.deps.Metrics.AutoTune("error")
		logging.WarnWithContext(sess.logger, "auto-tune failed", "autotune_failed", logging.Error(err))
	}
}

func (s *Supervisor) onTrackUpdate(update tracker.Update) {
	sess := s.session
	if sess == nil || sess.state != Streaming {
		return
	}
	if update.Index != sess.track {
		s.deps.Metrics.TrackAdvanced()
	}
	sess.track = update.Index
	sess.logger.Info("now playing",
		logging.Int("track", update.Index+1),
		logging.String("title", update.Track.Title),
	)
	s.setStatus(update.Text, false)
}

// cleanup runs the stop side effects once per session: cancel the track
// timer, halt the zone and report the stop.
func (s *Supervisor) cleanup(sess *playbackSession) {
	if sess.cleanedUp {
		return
	}
	sess.cleanedUp = true
	s.scheduler.Cancel()
	if zone := sess.zone; zone != "" && s.deps.Surface != nil {
		s.outbox.push("transport.control", func(ctx context.Context) error {
			return s.deps.Surface.Control(ctx, zone, "stop")
		})
	}
	s.setStatus(statusStopped, false)
	album := ""
	if sess.disc != nil {
		album = sess.disc.Album
	}
	s.notify(func(ctx context.Context) error {
		return s.deps.Notifier.NotifyPlaybackStopped(ctx, album)
	})
}

// fail reports an environmental error and winds the session down.
func (s *Supervisor) fail(sess *playbackSession, err error) {
	logging.WarnWithContext(sess.logger, "playback failed", "session_failed",
		logging.Error(err),
		logging.String(logging.FieldState, sess.state.String()),
	)
	s.deps.Metrics.SessionFailed(errorKind(err))
	s.scheduler.Cancel()
	sess.cleanedUp = true
	s.setStatus(s.userMessage(err), true)
	s.notify(func(ctx context.Context) error {
		return s.deps.Notifier.NotifyError(ctx, err, "playback")
	})

	if sess.run != nil && !sess.exited {
		s.setState(sess, Stopping)
		sess.run.Terminate()
		return
	}
	s.finish(sess)
}

func (s *Supervisor) finish(sess *playbackSession) {
	if s.session != sess {
		return
	}
	sess.cancel()
	s.scheduler.Cancel()
	s.session = nil
	s.deps.Metrics.SetState(Idle.String())
	sess.logger.Info("session ended", logging.Duration("elapsed", s.now().Sub(sess.startedAt).Round(time.Millisecond)))
	s.publishLayout()
}

func (s *Supervisor) setState(sess *playbackSession, state State) {
	if sess.state == state {
		return
	}
	prev := sess.state
	sess.state = state
	s.deps.Metrics.SetState(state.String())
	sess.logger.Debug("state changed",
		logging.String("from", prev.String()),
		logging.String(logging.FieldState, state.String()),
	)
	if prev == Idle {
		s.publishLayout()
	}
}

func (s *Supervisor) setStatus(message string, isError bool) {
	s.status = message
	s.statusErr = isError
	if s.deps.Surface == nil {
		return
	}
	s.outbox.push("status.set", func(ctx context.Context) error {
		return s.deps.Surface.SetStatus(ctx, message, isError)
	})
}

func (s *Supervisor) publishLayout() {
	if s.deps.Surface == nil {
		return
	}
	layout := BuildLayout(LayoutValues{Zone: s.settings.Zone}, s.currentState())
	s.outbox.push("settings.update", func(ctx context.Context) error {
		return s.deps.Surface.UpdateSettings(ctx, layout)
	})
}

func (s *Supervisor) currentState() State {
	if s.session == nil {
		return Idle
	}
	return s.session.state
}

func (s *Supervisor) notify(send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Debug("notification failed", logging.Error(err))
		}
	}()
}
