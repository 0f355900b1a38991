package relay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"cdplayer/internal/logging"
	"cdplayer/internal/procio"
)

// Event is a stream state change reported by the relay.
type Event struct {
	Kind  EventKind
	At    time.Time
	Entry LogEntry
}

// EngineOptions configures the relay process.
type EngineOptions struct {
	Command       []string
	ControlSocket string
	AudioSocket   string
	StreamID      string
	SocketWait    time.Duration
}

// Engine supervises the relay (liquidsoap) process and turns its log into
// stream events.
type Engine struct {
	opts    EngineOptions
	logger  *slog.Logger
	onEvent func(Event)
	now     func() time.Time

	proc *procio.Process
}

// NewEngine constructs an Engine. onEvent is called from the log reader
// goroutine for every connect or disconnect of the configured stream.
func NewEngine(opts EngineOptions, logger *slog.Logger, onEvent func(Event)) *Engine {
	if opts.SocketWait <= 0 {
		opts.SocketWait = 30 * time.Second
	}
	return &Engine{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "relay"),
		onEvent: onEvent,
		now:     time.Now,
	}
}

// Start removes a stale audio socket, launches the relay and waits until its
// control socket exists.
func (e *Engine) Start(ctx context.Context) error {
	if len(e.opts.Command) == 0 || strings.TrimSpace(e.opts.Command[0]) == "" {
		return errors.New("relay command not configured")
	}
	if err := removeStaleSocket(e.opts.AudioSocket); err != nil {
		return err
	}

	stdoutLog := logging.NewProcessLogger(e.logger, "relay", "stdout")
	stderrLog := logging.NewProcessLogger(e.logger, "relay", "stderr")
	proc, err := procio.Start(ctx, procio.Spec{Binary: e.opts.Command[0], Args: e.opts.Command[1:]}, procio.LineHandlers{
		Stdout: func(line string) { e.handleLine(stdoutLog, line) },
		Stderr: func(line string) { e.handleLine(stderrLog, line) },
	})
	if err != nil {
		return fmt.Errorf("start relay: %w", err)
	}
	e.proc = proc
	e.logger.Info("relay started", logging.Int("pid", proc.PID()), logging.String("command", strings.Join(e.opts.Command, " ")))

	waitCtx, cancel := context.WithTimeout(ctx, e.opts.SocketWait)
	defer cancel()
	if err := waitForSocket(waitCtx, e.opts.ControlSocket, proc.Done()); err != nil {
		proc.Terminate()
		return fmt.Errorf("relay control socket %s: %w", e.opts.ControlSocket, err)
	}
	return nil
}

// Done is closed when the relay process exits.
func (e *Engine) Done() <-chan struct{} {
	if e.proc == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.proc.Done()
}

// Stop terminates the relay and waits for it to exit.
func (e *Engine) Stop(ctx context.Context) error {
	if e.proc == nil {
		return nil
	}
	e.proc.Terminate()
	status, err := e.proc.Wait(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("relay exited", logging.String("status", status.String()))
	return nil
}

func (e *Engine) handleLine(logger *slog.Logger, line string) {
	if line == "" {
		return
	}
	logger.Debug(dropTimestamp(line))
	entry, ok := ParseLogLine(line)
	if !ok {
		return
	}
	kind := entry.Classify(e.opts.StreamID)
	if kind == EventNone || e.onEvent == nil {
		return
	}
	e.onEvent(Event{Kind: kind, At: e.now(), Entry: entry})
}

func dropTimestamp(line string) string {
	if _, rest, ok := strings.Cut(line, " "); ok {
		return rest
	}
	return line
}

// removeStaleSocket deletes a leftover socket file from a previous run. A
// missing file is fine.
func removeStaleSocket(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}

// waitForSocket blocks until path exists, the process exits or ctx ends.
func waitForSocket(ctx context.Context, path string, exited <-chan struct{}) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if event.Name == path && event.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return err
		case <-exited:
			return errors.New("relay exited before creating socket")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
