package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cdplayer/internal/config"
	"cdplayer/internal/deps"
	"cdplayer/internal/logging"
	"cdplayer/internal/session"
)

// controller is the part of the daemon the HTTP API drives.
type controller interface {
	Play(ctx context.Context, from int) (session.Snapshot, error)
	Stop(ctx context.Context) (session.Snapshot, error)
	Status(ctx context.Context) Status
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Session      session.Snapshot   `json:"session"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// DependencyStatus reports one external program.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// PlayRequest is the body of POST /api/play.
type PlayRequest struct {
	From int `json:"from"`
}

type apiServer struct {
	bind    string
	token   string
	logger  *slog.Logger
	control controller
	logs    *logging.StreamHub
	router  chi.Router

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	srv := newAPIHandler(d, d.metrics.Middleware, d.metrics.Handler(), cfg.Paths.APIToken, logger)
	srv.logs = d.logStream
	srv.bind = bind
	srv.server = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func newAPIHandler(control controller, metricsMW func(http.Handler) http.Handler, metrics http.Handler, token string, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		token:   strings.TrimSpace(token),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		control: control,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if metricsMW != nil {
		r.Use(metricsMW)
	}
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(srv.token))
		r.Get("/api/status", srv.handleStatus)
		r.Post("/api/play", srv.handlePlay)
		r.Post("/api/stop", srv.handleStop)
		r.Get("/api/logs", srv.handleLogs)
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	srv.router = r
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.control.Status(r.Context())
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		Session:      status.Session,
		Dependencies: convertDependencies(status.Dependencies),
	})
}

func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	req := PlayRequest{From: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.From < 1 {
		s.writeError(w, http.StatusBadRequest, "the start track should be 1 or higher")
		return
	}
	snap, err := s.control.Play(r.Context(), req.From)
	switch {
	case errors.Is(err, session.ErrBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrShuttingDown), errors.Is(err, session.ErrNotRunning):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusAccepted, snap)
	}
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	snap, err := s.control.Stop(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// LogsResponse is the body of GET /api/logs.
type LogsResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

const (
	defaultLogLimit = 200
	logFollowWait   = 25 * time.Second
)

// handleLogs returns buffered events after ?since=N. With ?follow=1 it holds
// the request until an event arrives or the wait elapses.
func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		s.writeError(w, http.StatusNotFound, "log streaming is not enabled")
		return
	}
	query := r.URL.Query()
	since, err := parseUintParam(query.Get("since"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}
	limit := defaultLogLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, logFollowWait)
		defer cancel()
	}
	events, next, err := s.logs.Fetch(ctx, since, limit, follow)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if events == nil {
		events = []logging.LogEvent{}
	}
	s.writeJSON(w, http.StatusOK, LogsResponse{Events: events, Next: next})
}

func parseUintParam(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func convertDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
