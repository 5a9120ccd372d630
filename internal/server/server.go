// Package server implements the OmniFS TCP server: listener lifecycle,
// per-connection read loops and the operation dispatcher.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fileverse/omnifs/internal/logger"
	"github.com/fileverse/omnifs/internal/ratelimiter"
	"github.com/fileverse/omnifs/internal/session"
	"github.com/fileverse/omnifs/pkg/metrics"
	"github.com/fileverse/omnifs/pkg/protocol"
	"github.com/fileverse/omnifs/pkg/store"
)

// Config holds the server's network settings.
type Config struct {
	// Host is the bind address. Empty means all interfaces.
	Host string

	// Port is the TCP port to listen on.
	Port int

	// Framing selects the message boundary scheme for all connections.
	Framing protocol.FramingMode

	// MaxMessageSize bounds one request document. 0 means the protocol
	// default.
	MaxMessageSize int

	// MaxConnections caps concurrently served connections. 0 means
	// unlimited. Excess connections wait in the accept queue.
	MaxConnections int

	// IdleTimeout disconnects clients with no request for this duration.
	// 0 disables the deadline.
	IdleTimeout time.Duration

	// RequestRate throttles request processing across all connections,
	// in requests per second. 0 means unlimited.
	RequestRate uint

	// RequestBurst is the throttle's burst capacity. 0 means RequestRate.
	RequestBurst uint
}

// Server accepts connections and serves the OmniFS protocol.
type Server struct {
	cfg      Config
	store    store.Store
	sessions *session.Manager
	metrics  metrics.ServerMetrics
	dispatch *dispatcher
	limiter  *ratelimiter.Limiter

	listener net.Listener

	// shutdown is closed exactly once when a stop is requested, either by
	// Stop or by the shutdown_system operation.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// wg tracks in-flight connection goroutines for graceful drain.
	wg sync.WaitGroup
}

// New creates a server over the given store and session manager.
func New(cfg Config, st store.Store, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		metrics:  metrics.NewServerMetrics(),
		limiter:  ratelimiter.New(cfg.RequestRate, cfg.RequestBurst),
		shutdown: make(chan struct{}),
	}
	s.dispatch = newDispatcher(st, sessions, s.requestShutdown)
	return s
}

// Addr returns the listener address, valid once Serve has started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve listens and accepts connections until the context is cancelled or a
// shutdown is requested. It drains in-flight connections before returning.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("start listener on %s: %w", addr, err)
	}
	s.listener = listener
	logger.Info("server listening on %s", listener.Addr())

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdown:
		}
		s.listener.Close()
	}()

	var sem chan struct{}
	if s.cfg.MaxConnections > 0 {
		sem = make(chan struct{}, s.cfg.MaxConnections)
	}

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			case <-s.shutdown:
			default:
				logger.Debug("accept error: %v", err)
				continue
			}
			s.wg.Wait()
			logger.Info("server stopped")
			return nil
		}

		if sem != nil {
			sem <- struct{}{}
		}
		s.metrics.ConnectionOpened()
		s.wg.Add(1)

		conn := s.newConn(tcpConn)
		go func() {
			defer s.wg.Done()
			defer s.metrics.ConnectionClosed()
			if sem != nil {
				defer func() { <-sem }()
			}
			conn.serve(ctx)
		}()
	}
}

func (s *Server) newConn(tcpConn net.Conn) *conn {
	return &conn{
		server: s,
		conn:   tcpConn,
	}
}

// Stop requests a shutdown. Safe to call multiple times and before Serve.
func (s *Server) Stop() {
	s.requestShutdown()
}

// ShutdownRequested exposes the shutdown signal, closed when either Stop or
// the shutdown_system operation fires.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

func (s *Server) requestShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("shutdown requested")
		close(s.shutdown)
	})
}
