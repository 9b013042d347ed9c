// Package server is the operations HTTP endpoint: Prometheus metrics and a
// liveness probe. It exposes no odds data.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr string
}

// Server serves /metrics and /healthz.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New registers the routes. metrics may be nil, in which case only the
// health probe is served.
func New(cfg Config, metrics http.Handler, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           middleware.Logging(logger)(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"ok","timestamp":%q}`, time.Now().UTC().Format(time.RFC3339))
}
