package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"pigeonhole/internal/logging"
	"pigeonhole/internal/pipeline"
)

// Server exposes run control via JSON-RPC over a Unix domain socket. It lives
// for the duration of a foreground run so other processes can stop it or
// inspect its progress.
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
func NewServer(ctx context.Context, path string, orch *pipeline.Orchestrator, logger *slog.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("ipc server requires an orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{orch: orch, logger: logger}
	if err := rpcServer.RegisterName("Pigeonhole", srv); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until Close is called.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
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
				s.logger.Warn("accept failed", logging.Error(err))
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path), logging.Error(err))
	}
}

// service implements the RPC surface.
type service struct {
	orch   *pipeline.Orchestrator
	logger *slog.Logger
}

// Stop cancels the active run. Always succeeds; WasRunning reports whether
// anything was in flight.
func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	status := s.orch.Status()
	resp.WasRunning = status.State == pipeline.StateRunning
	s.orch.Stop()
	s.logger.Info("stop requested over control socket",
		logging.Bool("was_running", resp.WasRunning))
	return nil
}

// Status reports the orchestrator snapshot.
func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.orch.Status()
	resp.Running = status.State == pipeline.StateRunning
	resp.State = string(status.State)
	resp.RunID = status.RunID
	resp.MailboxID = status.MailboxID
	if !status.StartedAt.IsZero() {
		resp.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	resp.PID = os.Getpid()
	return nil
}
