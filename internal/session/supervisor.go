package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"cdplayer/internal/bridge"
	"cdplayer/internal/extract"
	"cdplayer/internal/logging"
	"cdplayer/internal/metadata"
	"cdplayer/internal/notifications"
	"cdplayer/internal/procio"
	"cdplayer/internal/relay"
	"cdplayer/internal/telemetry"
	"cdplayer/internal/tracker"
)

var (
	// ErrBusy is returned by Play while a session is active.
	ErrBusy = errors.New("a playback session is already active")
	// ErrShuttingDown is returned by Play once shutdown was requested.
	ErrShuttingDown = errors.New("player is shutting down")
	// ErrNotRunning is returned when the supervisor loop has exited.
	ErrNotRunning = errors.New("supervisor is not running")
)

// Inspector reports the number of tracks on the disc.
type Inspector interface {
	Query(ctx context.Context) (int, error)
}

// Extraction is one running extraction process.
type Extraction interface {
	Terminate()
	Done() <-chan struct{}
	Status() procio.ExitStatus
}

// Extractor launches extraction processes.
type Extractor interface {
	Start(ctx context.Context, r extract.TrackRange, onLine func(string)) (Extraction, error)
}

// Relay switches the relay's stream on.
type Relay interface {
	Start(ctx context.Context) (time.Time, error)
}

// Navigator selects the stream on a zone.
type Navigator interface {
	Tune(ctx context.Context, zone string, path []string) (bridge.Item, error)
}

// Surface is the control surface: status line, settings layout and zone
// transport.
type Surface interface {
	SetStatus(ctx context.Context, message string, isError bool) error
	UpdateSettings(ctx context.Context, layout any) error
	Control(ctx context.Context, zone, control string) error
}

// Settings are the supervisor's tunables.
type Settings struct {
	Zone       string
	Path       []string
	StreamURL  string
	TOCTimeout time.Duration
}

// Deps are the supervisor's collaborators. Navigator, Surface, Notifier,
// Metrics and Clock are optional.
type Deps struct {
	Inspector Inspector
	Extractor Extractor
	Relay     Relay
	Navigator Navigator
	Surface   Surface
	Notifier  notifications.Service
	Metrics   *telemetry.Metrics
	Clock     tracker.Clock
	Now       func() time.Time
	Logger    *slog.Logger
}

// Supervisor owns the single playback session. All session state is touched
// only by the goroutine running Run; other goroutines post closures to it.
type Supervisor struct {
	settings Settings
	deps     Deps
	logger   *slog.Logger
	now      func() time.Time

	events chan func()
	done   chan struct{}
	outbox *outbox

	baseCtx   context.Context
	session   *playbackSession
	scheduler *tracker.Scheduler
	exiting   bool
	status    string
	statusErr bool

	snapshot atomic.Pointer[Snapshot]
	running  atomic.Bool
}

type playbackSession struct {
	id        string
	state     State
	from      int
	zone      string
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger

	disc      *metadata.Disc
	parser    *metadata.Parser
	rng       extract.TrackRange
	run       Extraction
	exited    bool
	issuedAt  time.Time
	delay     time.Duration
	track     int
	cleanedUp bool
}

// New constructs a Supervisor. Call Run to start processing requests.
func New(settings Settings, deps Deps) *Supervisor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	if settings.TOCTimeout <= 0 {
		settings.TOCTimeout = time.Minute
	}
	s := &Supervisor{
		settings: settings,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "supervisor"),
		now:      deps.Now,
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
		baseCtx:  context.Background(),
	}
	s.outbox = newOutbox(deps.Surface, s.logger)
	s.scheduler = tracker.New(deps.Clock, s.postAsync, s.onTrackUpdate)
	s.publishSnapshot()
	return s
}

// Run processes events until ctx ends or Shutdown is requested, and then
// until any running extraction has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("supervisor already running")
	}
	s.baseCtx = ctx
	go s.outbox.run()
	defer func() {
		close(s.done)
		s.outbox.close(5 * time.Second)
	}()

	s.deps.Metrics.SetState(Idle.String())
	s.publishLayout()
	s.logger.Info("supervisor started")

	ctxDone := ctx.Done()
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-ctxDone:
			ctxDone = nil
			s.baseCtx = context.WithoutCancel(ctx)
			s.requestShutdown()
		}
		s.publishSnapshot()
		if s.exiting && s.session == nil {
			s.logger.Info("supervisor stopped")
			return nil
		}
	}
}

// Done is closed when Run has returned.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the latest published view of the supervisor.
func (s *Supervisor) Snapshot() Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return *snap
	}
	return Snapshot{State: Idle, Action: ActionPlay.String()}
}

// Play starts a session at the given 1-based track.
func (s *Supervisor) Play(ctx context.Context, from int) (Snapshot, error) {
	return s.request(ctx, func() (Snapshot, error) { return s.play(from) })
}

// Stop ends the active session. With nothing playing it does nothing.
func (s *Supervisor) Stop(ctx context.Context) (Snapshot, error) {
	return s.request(ctx, func() (Snapshot, error) {
		s.stop()
		return s.currentSnapshot(), nil
	})
}

// Shutdown asks Run to return once any active session has been stopped.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	_, err := s.request(ctx, func() (Snapshot, error) {
		s.requestShutdown()
		return s.currentSnapshot(), nil
	})
	if errors.Is(err, ErrNotRunning) {
		return nil
	}
	return err
}

// HandleRelayEvent feeds a relay connect or disconnect into the loop.
func (s *Supervisor) HandleRelayEvent(ev relay.Event) {
	s.postAsync(func() { s.onRelayEvent(ev) })
}

func (s *Supervisor) request(ctx context.Context, fn func() (Snapshot, error)) (Snapshot, error) {
	type result struct {
		snap Snapshot
		err  error
	}
	reply := make(chan result, 1)
	task := func() {
		snap, err := fn()
		reply <- result{snap: snap, err: err}
	}
	select {
	case s.events <- task:
	case <-s.done:
		return Snapshot{}, ErrNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.snap, r.err
	case <-s.done:
		return Snapshot{}, ErrNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// postAsync queues fn on the loop; it is dropped once Run has returned.
func (s *Supervisor) postAsync(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// postSession queues fn only while the session it belongs to is current.
func (s *Supervisor) postSession(id string, fn func(*playbackSession)) {
	s.postAsync(func() {
		if s.session == nil || s.session.id != id {
			return
		}
		fn(s.session)
	})
}

func (s *Supervisor) currentSnapshot() Snapshot {
	snap := Snapshot{
		State:       Idle,
		Status:      s.status,
		StatusError: s.statusErr,
		Zone:        s.settings.Zone,
	}
	if sess := s.session; sess != nil {
		snap.SessionID = sess.id
		snap.State = sess.state
		snap.Zone = sess.zone
		snap.StartTrack = sess.from
		snap.StartedAt = sess.startedAt
		snap.StartupDelay = sess.delay
		if sess.disc != nil {
			snap.Album = sess.disc.Album
			snap.Artist = sess.disc.Artist
			snap.TotalTracks = sess.disc.TotalTracks
		}
		if sess.state == Streaming {
			snap.Track = sess.track + 1
			if t, ok := sess.disc.Track(sess.track); ok {
				snap.TrackTitle = t.Title
			}
		}
	}
	snap.Action = snap.State.Action().String()
	return snap
}

func (s *Supervisor) publishSnapshot() {
	snap := s.currentSnapshot()
	s.snapshot.Store(&snap)
}
