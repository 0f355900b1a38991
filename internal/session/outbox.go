package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"cdplayer/internal/logging"
)

const (
	outboxCapacity    = 32
	outboxCallTimeout = 10 * time.Second
)

// Methods whose latest call supersedes earlier ones.
var coalescedMethods = []string{"status.set", "settings.update"}

type delivery struct {
	method string
	send   func(ctx context.Context) error
}

// outbox delivers control-surface calls in order on its own goroutine so a
// slow or disconnected surface never blocks the supervisor loop.
type outbox struct {
	logger *slog.Logger
	queue  chan delivery
	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}

	// held keeps the newest coalesced call per method once the queue is full.
	// It is delivered after everything queued ahead of it.
	mu   sync.Mutex
	held []delivery

	closeOnce sync.Once
}

func newOutbox(surface Surface, logger *slog.Logger) *outbox {
	o := &outbox{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if surface != nil {
		o.queue = make(chan delivery, outboxCapacity)
	}
	return o
}

// push queues a call. When the queue is full a status or settings call
// replaces any held call of the same method; other calls are dropped.
func (o *outbox) push(method string, send func(ctx context.Context) error) {
	if o.queue == nil {
		return
	}
	d := delivery{method: method, send: send}
	coalesce := slices.Contains(coalescedMethods, method)

	o.mu.Lock()
	defer o.mu.Unlock()
	if coalesce && o.replaceHeldLocked(d) {
		return
	}
	select {
	case o.queue <- d:
		return
	default:
	}
	if coalesce {
		o.held = append(o.held, d)
		select {
		case o.wake <- struct{}{}:
		default:
		}
		o.logger.Debug("control surface backlog full, holding latest call", logging.String("method", method))
		return
	}
	logging.WarnWithContext(o.logger, "control surface backlog full, dropping call", "surface_backlog_full",
		logging.String("method", method),
		logging.String(logging.FieldImpact, "the control surface may show stale status"),
	)
}

func (o *outbox) replaceHeldLocked(d delivery) bool {
	for i := range o.held {
		if o.held[i].method == d.method {
			o.held[i] = d
			return true
		}
	}
	return false
}

func (o *outbox) run() {
	defer close(o.done)
	if o.queue == nil {
		<-o.stop
		return
	}
	for {
		select {
		case d := <-o.queue:
			o.deliver(d)
		case <-o.wake:
			o.drain()
		case <-o.stop:
			o.drain()
			return
		}
	}
}

// drain delivers everything queued, then the held calls. Calls pushed while
// held calls go out land in the queue behind them.
func (o *outbox) drain() {
	for {
		select {
		case d := <-o.queue:
			o.deliver(d)
			continue
		default:
		}
		o.mu.Lock()
		if len(o.queue) > 0 {
			o.mu.Unlock()
			continue
		}
		held := o.held
		o.held = nil
		o.mu.Unlock()
		if len(held) == 0 {
			return
		}
		for _, d := range held {
			o.deliver(d)
		}
	}
}

func (o *outbox) deliver(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxCallTimeout)
	defer cancel()
	if err := d.send(ctx); err != nil {
		o.logger.Debug("control surface call failed",
			logging.String("method", d.method),
			logging.Error(err),
		)
	}
}

// close drains what is queued and waits up to timeout for it to go out.
func (o *outbox) close(timeout time.Duration) {
	o.closeOnce.Do(func() { close(o.stop) })
	select {
	case <-o.done:
	case <-time.After(timeout):
		o.logger.Warn("control surface calls still pending at exit")
	}
}
