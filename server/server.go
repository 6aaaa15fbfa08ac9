// Package server accepts client connections and runs one dispatcher per
// connection: parallel across connections, fully sequential within one.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/billboardcp/billboard-server/auth"
	"github.com/billboardcp/billboard-server/auth/sessions"
	"github.com/billboardcp/billboard-server/internal/config"
	"github.com/billboardcp/billboard-server/internal/metrics"
	"github.com/billboardcp/billboard-server/protocol"
	"github.com/billboardcp/billboard-server/store"
)

type Server struct {
	addr        string
	sessionTTL  time.Duration
	viewerToken string
	repo        store.Repository
	log         zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Server from configuration and a persistence store.
func New(cfg *config.Config, repo store.Repository, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if repo == nil {
		return nil, errors.New("[server.New] store is required")
	}
	return &Server{
		addr:        cfg.ListenAddr,
		sessionTTL:  cfg.SessionTTL,
		viewerToken: cfg.ViewerToken,
		repo:        repo,
		log:         log,
	}, nil
}

// Listen binds the TCP listener. Split from Serve so callers can learn the
// bound address before serving, which matters when listening on port 0.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "[Server.Listen]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ln.Close()
		return errors.New("[Server.Listen] server already shut down")
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown closes the listener.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("[Server.Serve] Listen not called")
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return errors.Wrap(err, "[Server.Serve] accept")
		}
		metrics.ConnectionsTotal.Inc()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// handleConn owns one connection: its session store, its policy, its
// dispatcher. Everything is torn down when the loop returns.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	sessionStore := sessions.New(s.sessionTTL, sessions.WithExpiryHook(func(sess sessions.Session) {
		metrics.ActiveSessions.Dec()
		metrics.SessionExpiriesTotal.Inc()
		log.Info().Str("username", sess.Username).Msg("session expired")
	}))

	policy, err := auth.NewPolicy(sessionStore, s.viewerToken)
	if err != nil {
		log.Error().Err(err).Msg("policy setup failed")
		return
	}
	dispatcher, err := NewDispatcher(s.repo, sessionStore, policy, log)
	if err != nil {
		log.Error().Err(err).Msg("dispatcher setup failed")
		return
	}

	if err := dispatcher.Serve(protocol.NewCodec(conn)); err != nil {
		log.Error().Err(err).Msg("connection failed")
	}
}

// Shutdown stops accepting and waits for in-flight connections to finish or
// the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			return errors.Wrap(err, "[Server.Shutdown] close listener")
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "[Server.Shutdown]")
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
