// Package server exposes the metrics registry over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/retry"
)

// Config contains settings for the exposition server.
type Config struct {
	Address string
	Port    int

	// ShutdownTimeout bounds graceful shutdown. Zero uses the default.
	ShutdownTimeout time.Duration

	// BindRetry controls retries while the port is in use. Zero value uses defaults.
	BindRetry retry.Config

	Logger zerolog.Logger
}

// DefaultBindRetry retries a busy port for roughly ten seconds.
var DefaultBindRetry = retry.Config{
	MaxRetries:     5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     4 * time.Second,
	Jitter:         0.1,
}

// Server is an HTTP server bound to a single listener.
type Server struct {
	cfg      Config
	http     *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// New creates a Server for handler.
func New(cfg Config, handler http.Handler) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = constants.DefaultShutdownTimeout
	}
	if cfg.BindRetry.MaxRetries == 0 {
		cfg.BindRetry = DefaultBindRetry
	}

	logger := cfg.Logger.With().Str("component", "server").Logger()

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
		logger: logger,
	}
}

// Listen binds the configured address, retrying while it is in use.
func (s *Server) Listen(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port))

	bindRetry := s.cfg.BindRetry
	bindRetry.Notify = func(attempt int, err error, backoff time.Duration) {
		s.logger.Warn().
			Err(err).
			Str("addr", addr).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Address in use, retrying")
	}

	var lc net.ListenConfig
	err := retry.Do(ctx, bindRetry, func() error {
		l, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		s.listener = l
		return nil
	}, func(err error) bool {
		return errors.Is(err, syscall.EADDRINUSE)
	})
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("Listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve handles requests until ctx is done, then shuts down gracefully.
// Listen must have succeeded.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("server is not listening")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
