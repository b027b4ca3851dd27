// Package control hosts the agent's unix-socket inspection API.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/saimizi/ivi-id-agent/internal/engine"
	"github.com/saimizi/ivi-id-agent/internal/metrics"
	"github.com/saimizi/ivi-id-agent/internal/util"
)

// StatusSource provides the engine view served by the status action.
type StatusSource interface {
	Status() engine.Status
}

// Server hosts the control socket and serves requests.
type Server struct {
	engine         StatusSource
	collector      *metrics.Collector
	storeConnected func() bool
	logger         *util.Logger
	socketPath     string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a control server on the default socket path.
func NewServer(eng StatusSource, collector *metrics.Collector, storeConnected func() bool, logger *util.Logger) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return NewServerWithSocket(eng, collector, storeConnected, logger, path), nil
}

// NewServerWithSocket creates a control server bound to an explicit path.
func NewServerWithSocket(eng StatusSource, collector *metrics.Collector, storeConnected func() bool, logger *util.Logger, path string) *Server {
	return &Server{
		engine:         eng,
		collector:      collector,
		storeConnected: storeConnected,
		logger:         logger,
		socketPath:     path,
	}
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	switch req.Action {
	case ActionStatus:
		s.handleStatus(conn)
	case ActionMetrics:
		s.writeOK(conn, s.collector.Snapshot())
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleStatus(conn net.Conn) {
	engineStatus := s.engine.Status()
	snapshot := StatusSnapshot{
		Rules:     engineStatus.Rules,
		Allocator: engineStatus.Allocator,
	}
	if s.storeConnected != nil {
		snapshot.StoreConnected = s.storeConnected()
	}
	s.writeOK(conn, snapshot)
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
