package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"cdplayer/internal/autotune"
	"cdplayer/internal/bridge"
	"cdplayer/internal/config"
	"cdplayer/internal/deps"
	"cdplayer/internal/disc"
	"cdplayer/internal/extract"
	"cdplayer/internal/logging"
	"cdplayer/internal/notifications"
	"cdplayer/internal/relay"
	"cdplayer/internal/session"
	"cdplayer/internal/telemetry"
)

// ErrNotIdle is returned by operations that need an idle player.
var ErrNotIdle = errors.New("player is busy; stop playback first")

// Daemon wires the playback supervisor to the drive, the relay, the control
// bridge and the local control surfaces, and enforces a single running
// instance through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics

	sup       *session.Supervisor
	engine    *relay.Engine
	bridge    *bridge.Client
	inspector *disc.Inspector
	ejector   disc.Ejector
	monitor   *netlinkMonitor
	api       *apiServer
	logStream *logging.StreamHub

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	closeOnce sync.Once
	runErr    chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockPath     string
	Session      session.Snapshot
	Dependencies []deps.Status
}

// Option adjusts optional daemon wiring.
type Option func(*Daemon)

// WithLogStream exposes the hub's recent log events at GET /api/logs.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(d *Daemon) { d.logStream = hub }
}

// New constructs a daemon and its collaborators. Nothing is started until
// Start is called.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		metrics:  telemetry.New(),
		ejector:  disc.NewEjector(),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		runErr:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.inspector = disc.NewInspector(cfg.Drive.TOCBinary, cfg.Drive.Device, logger)
	extractor := extract.New(extract.Options{
		Binary:      cfg.Drive.ExtractBinary,
		Device:      cfg.Drive.Device,
		Speed:       cfg.Drive.Speed,
		AudioSocket: cfg.Relay.AudioSocket,
	}, logger)
	controller := relay.NewController(cfg.Relay.ControlSocket, cfg.Relay.StreamID, cfg.AckTimeout())

	sessionDeps := session.Deps{
		Inspector: d.inspector,
		Extractor: session.FromExtractor(extractor),
		Relay:     controller,
		Notifier:  notifications.NewService(cfg),
		Metrics:   d.metrics,
		Logger:    logger,
	}
	if strings.TrimSpace(cfg.Bridge.URL) != "" {
		d.bridge = bridge.New(bridge.Options{
			URL:            cfg.Bridge.URL,
			Token:          cfg.Bridge.Token,
			RequestTimeout: cfg.BridgeTimeout(),
		}, logger, d.handleBridgeRequest)
		sessionDeps.Surface = d.bridge
		sessionDeps.Navigator = autotune.New(d.bridge, logger)
	}

	d.sup = session.New(session.Settings{
		Zone:       cfg.AutoTune.Zone,
		Path:       cfg.AutoTune.Path,
		StreamURL:  session.ResolveStreamURL(cfg.AutoTune.AdvertisedURL, cfg.Relay.MountURL),
		TOCTimeout: cfg.TOCTimeout(),
	}, sessionDeps)

	d.engine = relay.NewEngine(relay.EngineOptions{
		Command:       cfg.Relay.Command,
		ControlSocket: cfg.Relay.ControlSocket,
		AudioSocket:   cfg.Relay.AudioSocket,
		StreamID:      cfg.Relay.StreamID,
		SocketWait:    cfg.SocketWait(),
	}, logger, d.sup.HandleRelayEvent)

	if cfg.Drive.Autoplay {
		d.monitor = newNetlinkMonitor(cfg.Drive.Device, logger, d.autoplay, d.busy)
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, launches the relay and begins serving
// playback requests. The supervisor runs until ctx ends or Shutdown is called.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cdplayer daemon instance is already running")
	}

	// The relay outlives ctx so an active session can wind down; Close stops it.
	if err := d.engine.Start(context.WithoutCancel(ctx)); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start relay: %w", err)
	}
	go d.watchRelay()

	d.running.Store(true)
	go func() {
		d.runErr <- d.sup.Run(ctx)
	}()

	if d.bridge != nil {
		go d.connectBridge(ctx)
	}
	if err := d.monitor.Start(ctx); err != nil {
		d.logger.Warn("autoplay monitor unavailable", logging.Error(err))
	}
	if err := d.api.start(ctx); err != nil {
		logging.WarnWithContext(d.logger, "http api unavailable", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind"),
			logging.String(logging.FieldImpact, "HTTP status and control endpoints are disabled"),
		)
	}

	d.logger.Info("cdplayer daemon started",
		logging.String("lock", d.lockPath),
		logging.String("device", d.cfg.Drive.Device),
	)
	return nil
}

// Done is closed once the supervisor has stopped.
func (d *Daemon) Done() <-chan struct{} {
	return d.sup.Done()
}

// Wait blocks until the supervisor has stopped and returns its result.
func (d *Daemon) Wait(ctx context.Context) error {
	select {
	case err := <-d.runErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play starts playback at the given 1-based track.
func (d *Daemon) Play(ctx context.Context, from int) (session.Snapshot, error) {
	return d.sup.Play(ctx, from)
}

// Stop ends playback.
func (d *Daemon) Stop(ctx context.Context) (session.Snapshot, error) {
	return d.sup.Stop(ctx)
}

// Shutdown stops playback and lets the supervisor exit.
func (d *Daemon) Shutdown(ctx context.Context) error {
	return d.sup.Shutdown(ctx)
}

// Eject opens the tray when nothing is playing.
func (d *Daemon) Eject(ctx context.Context) error {
	if d.busy() {
		return ErrNotIdle
	}
	return d.ejector.Eject(ctx, d.cfg.Drive.Device)
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockPath:     d.lockPath,
		Session:      d.sup.Snapshot(),
		Dependencies: deps.CheckAll(d.cfg),
	}
}

// Close releases everything Start acquired. The supervisor should have
// stopped first; Close asks it to and waits briefly.
func (d *Daemon) Close() error {
	d.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if d.running.Load() {
			if err := d.sup.Shutdown(ctx); err != nil {
				d.logger.Warn("supervisor shutdown incomplete", logging.Error(err))
			}
			select {
			case <-d.sup.Done():
			case <-ctx.Done():
				d.logger.Warn("supervisor did not stop in time")
			}
		}

		d.monitor.Stop()
		d.api.stop()
		if d.bridge != nil {
			_ = d.bridge.Close()
		}
		if err := d.engine.Stop(ctx); err != nil {
			d.logger.Warn("relay did not exit cleanly", logging.Error(err))
		}
		if d.running.Swap(false) {
			if err := d.lock.Unlock(); err != nil {
				d.logger.Warn("failed to release daemon lock", logging.Error(err))
			}
		}
		d.logger.Info("cdplayer daemon stopped")
	})
	return nil
}

// Metrics exposes the daemon's metrics registry owner.
func (d *Daemon) Metrics() *telemetry.Metrics {
	return d.metrics
}

func (d *Daemon) busy() bool {
	return d.sup.Snapshot().State != session.Idle
}

func (d *Daemon) watchRelay() {
	<-d.engine.Done()
	if !d.running.Load() {
		return
	}
	logging.WarnWithContext(d.logger, "relay process exited", "relay_exited",
		logging.String(logging.FieldErrorHint, "check the relay log lines above and restart the daemon"),
		logging.String(logging.FieldImpact, "playback cannot start until the relay runs again"),
	)
}

func (d *Daemon) connectBridge(ctx context.Context) {
	connectCtx, cancel := context.WithTimeout(ctx, d.cfg.BridgeTimeout())
	defer cancel()
	if err := d.bridge.Connect(connectCtx); err != nil {
		logging.WarnWithContext(d.logger, "control bridge unreachable", "bridge_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bridge.url; the connection is retried on the next call"),
			logging.String(logging.FieldImpact, "status and auto-tune are unavailable until the bridge connects"),
		)
	}
}

func (d *Daemon) handleBridgeRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return d.sup.HandleBridgeRequest(ctx, method, params)
}

// autoplay starts playback after a disc-insert event once the drive has
// spun up.
func (d *Daemon) autoplay(ctx context.Context, device string) error {
	status, err := disc.WaitForReady(ctx, device, 10, time.Second)
	if err != nil {
		return fmt.Errorf("wait for drive: %w", err)
	}
	if status != disc.DriveStatusDiscOK {
		d.logger.Debug("drive not ready after insert", logging.String("drive_status", status.String()))
		return nil
	}
	snap, err := d.sup.Play(ctx, 1)
	if errors.Is(err, session.ErrBusy) {
		return nil
	}
	if err != nil {
		return err
	}
	d.logger.Info("autoplay started", logging.String(logging.FieldSessionID, snap.SessionID))
	return nil
}
