package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"cdplayer/internal/daemon"
	"cdplayer/internal/logging"
	"cdplayer/internal/session"
)

const (
	serviceName    = "CDPlayer"
	requestTimeout = 10 * time.Second
)

// Daemon is the daemon surface served over IPC.
type Daemon interface {
	Play(ctx context.Context, from int) (session.Snapshot, error)
	Stop(ctx context.Context) (session.Snapshot, error)
	Shutdown(ctx context.Context) error
	Eject(ctx context.Context) error
	Status(ctx context.Context) daemon.Status
}

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the server is closed.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, requestTimeout)
}

func (s *service) Play(req PlayRequest, resp *PlayResponse) error {
	if req.From < 1 {
		resp.Message = "the start track should be 1 or higher"
		return nil
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	snap, err := s.daemon.Play(ctx, req.From)
	resp.Session = snap
	if errors.Is(err, session.ErrBusy) || errors.Is(err, session.ErrShuttingDown) {
		resp.Message = err.Error()
		return nil
	}
	if err != nil {
		return err
	}
	resp.Started = true
	resp.Message = "playback requested"
	s.logger.Info("playback requested via IPC",
		logging.String(logging.FieldEventType, "ipc_play"),
		logging.Int("from", req.From),
		logging.String(logging.FieldSessionID, snap.SessionID))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	snap, err := s.daemon.Stop(ctx)
	if err != nil {
		return err
	}
	resp.Session = snap
	s.logger.Info("stop requested via IPC", logging.String(logging.FieldEventType, "ipc_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockPath = status.LockPath
	resp.Session = status.Session
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.daemon.Shutdown(ctx); err != nil {
		return err
	}
	resp.Accepted = true
	s.logger.Info("shutdown requested via IPC", logging.String(logging.FieldEventType, "ipc_shutdown"))
	return nil
}

func (s *service) Eject(_ EjectRequest, resp *EjectResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.daemon.Eject(ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Ejected = true
	resp.Message = "disc ejected"
	return nil
}
