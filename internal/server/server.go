// Package server serves the greeting endpoint over plain HTTP or TLS,
// depending on the TLS context it is given.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/twowayssl/internal/logger"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "localhost:8443"

const shutdownTimeout = 5 * time.Second

// Server owns the listener and HTTP server for one TLS context.
type Server struct {
	addr    string
	tc      *tlsctx.Context
	logger  zerolog.Logger
	tracker *tracker
	http    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server listening on addr. A disabled context serves plain
// HTTP.
func New(addr string, tc *tlsctx.Context, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		tc:     tc,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracker = newTracker(s.logger, tc.Enabled())
	s.http = configureHTTPServer(
		otelhttp.NewHandler(logger.Requests(s.logger, Handler()), "twowayssl.server"),
	)
	s.http.ConnState = s.tracker.connState
	s.http.ErrorLog = logger.ErrorLog(s.logger, s.tracker.handshakeFailure)

	return s
}

func configureHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// Serve accepts connections on ln until Shutdown is called. The listener is
// wrapped with TLS when the context is enabled. A failed handshake closes only
// the connection it happened on.
func (s *Server) Serve(ln net.Listener) error {
	if s.tc.Enabled() {
		ln = tls.NewListener(ln, s.tc.TLSConfig())
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("scheme", s.tc.Scheme()).
		Str("policy", s.tc.Policy().String()).
		Msg("server listening")

	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("server shutting down")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the greeting endpoint URL for the bound address.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}
	return fmt.Sprintf("%s://%s%s", s.tc.Scheme(), addr, HelloPath)
}

// Stats returns connection counters.
func (s *Server) Stats() Stats {
	return s.tracker.stats()
}
