package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server wraps http.Server with graceful shutdown logic.
type Server struct {
	server          *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// NewServer builds a Server. Long-lived streaming routes such as websockets
// manage their own deadlines, so WriteTimeout only bounds regular handlers.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: defaultReadTimeout,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run listens and blocks until ctx is cancelled or the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server", zap.String("addr", ln.Addr().String()))
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Address turns a bare port ("8084") or ":8084" into a listen address,
// falling back to def when port is blank.
func Address(port, def string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = def
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Method rejects requests whose method differs from expected.
func Method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
