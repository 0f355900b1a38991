package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"cdplayer/internal/logging"
	"cdplayer/internal/procio"
)

// Options configures the extraction process.
type Options struct {
	Binary      string
	Device      string
	Speed       int
	AudioSocket string
	DialTimeout time.Duration
}

// Extractor starts icedax runs that stream raw audio into the relay's audio
// socket and report their diagnostic output line by line.
type Extractor struct {
	opts   Options
	logger *slog.Logger
	dial   func(ctx context.Context, path string) (net.Conn, error)
}

// New constructs an Extractor.
func New(opts Options, logger *slog.Logger) *Extractor {
	opts.Binary = strings.TrimSpace(opts.Binary)
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Extractor{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "extract"),
		dial: func(ctx context.Context, path string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
}

// Args returns the icedax arguments for a range.
func (e *Extractor) Args(r TrackRange) []string {
	return []string{
		"dev=" + e.opts.Device,
		"output-format=raw",
		"output-endianess=little",
		"speed=" + strconv.Itoa(e.opts.Speed),
		"-gui",
		"cddb=1",
		"track=" + r.String(),
		"-",
	}
}

// Run is one extraction process.
type Run struct {
	proc *procio.Process
	conn net.Conn
	done chan struct{}
}

// Start connects to the audio socket and launches icedax. Every diagnostic
// (stderr) line is passed to onLine in arrival order from a single goroutine.
func (e *Extractor) Start(ctx context.Context, r TrackRange, onLine func(string)) (*Run, error) {
	if e.opts.Binary == "" {
		return nil, errors.New("extract binary not configured")
	}
	if r.Total < 1 || r.Start < 1 || r.Start > r.Total {
		return nil, fmt.Errorf("invalid track range %d of %d", r.Start, r.Total)
	}

	dialCtx, cancel := context.WithTimeout(ctx, e.opts.DialTimeout)
	conn, err := e.dial(dialCtx, e.opts.AudioSocket)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("connect audio socket %s: %w", e.opts.AudioSocket, err)
	}

	stderrLog := logging.NewProcessLogger(e.logger, e.opts.Binary, "stderr")
	args := e.Args(r)
	proc, err := procio.Start(ctx, procio.Spec{Binary: e.opts.Binary, Args: args, Stdout: conn}, procio.LineHandlers{
		Stderr: func(line string) {
			stderrLog.Debug(line)
			if onLine != nil {
				onLine(line)
			}
		},
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	e.logger.Info("extraction started",
		logging.Int("pid", proc.PID()),
		logging.String("track_range", r.String()),
		logging.String("args", strings.Join(args, " ")),
	)

	run := &Run{proc: proc, conn: conn, done: make(chan struct{})}
	go func() {
		<-proc.Done()
		_ = conn.Close()
		close(run.done)
	}()
	return run, nil
}

// Terminate asks the extraction process group to stop.
func (r *Run) Terminate() {
	if r != nil {
		r.proc.Terminate()
	}
}

// Done is closed after the process exited and the audio connection closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Status is the process exit status; it blocks until Done.
func (r *Run) Status() procio.ExitStatus {
	<-r.done
	return r.proc.Status()
}

// PID returns the extraction process id.
func (r *Run) PID() int {
	return r.proc.PID()
}
