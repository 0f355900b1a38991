package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cdplayer"

// Metrics holds the daemon's Prometheus collectors. All methods are safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	sessionErrors   *prometheus.CounterVec
	sessionState    *prometheus.GaugeVec
	startupDelay    prometheus.Histogram
	trackAdvances   prometheus.Counter
	autoTune        *prometheus.CounterVec

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec

	mu     sync.Mutex
	states map[string]struct{}
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Playback sessions accepted.",
		}),
		sessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Playback sessions that ended with an error, by kind.",
		}, []string{"kind"}),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "1 for the current playback session state.",
		}, []string{"state"}),
		startupDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_startup_delay_seconds",
			Help:      "Time from the relay start command to the stream connecting.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		trackAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_advances_total",
			Help:      "Now-playing changes made by the track scheduler.",
		}),
		autoTune: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autotune_total",
			Help:      "Auto-tune attempts by outcome.",
		}, []string{"outcome"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HTTP API requests.",
		}, []string{"method", "route", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "HTTP API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		states: make(map[string]struct{}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsStarted,
		m.sessionErrors,
		m.sessionState,
		m.startupDelay,
		m.trackAdvances,
		m.autoTune,
		m.apiRequests,
		m.apiDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.sessionsStarted.Inc()
	}
}

func (m *Metrics) SessionFailed(kind string) {
	if m != nil {
		m.sessionErrors.WithLabelValues(kind).Inc()
	}
}

// SetState marks state as current and every previously seen state as not.
func (m *Metrics) SetState(state string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = struct{}{}
	for s := range m.states {
		value := 0.0
		if s == state {
			value = 1
		}
		m.sessionState.WithLabelValues(s).Set(value)
	}
}

func (m *Metrics) ObserveStartupDelay(d time.Duration) {
	if m != nil {
		m.startupDelay.Observe(d.Seconds())
	}
}

func (m *Metrics) TrackAdvanced() {
	if m != nil {
		m.trackAdvances.Inc()
	}
}

func (m *Metrics) AutoTune(outcome string) {
	if m != nil {
		m.autoTune.WithLabelValues(outcome).Inc()
	}
}
