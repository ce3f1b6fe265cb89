// ABOUTME: Read-only HTTP API for dashboards built on huma and chi
// ABOUTME: Serves stored briefings, sync history, the overview and the generator payload as JSON
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/keenanpereira/pulse/handlers"
)

type Server struct {
	briefings *handlers.BriefingHandlers
	store     handlers.Reader
	analytics *handlers.AnalyticsHandlers
	version   string
	logger    *log.Logger
}

// NewServer builds the API. analyticsHandlers may be nil, in which case the
// overview and payload routes are not registered.
func NewServer(version string, store handlers.Reader, analyticsHandlers *handlers.AnalyticsHandlers, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		briefings: handlers.NewBriefingHandlers(store),
		store:     store,
		analytics: analyticsHandlers,
		version:   version,
		logger:    logger,
	}
}

// Handler returns the chi router with every operation registered.
func (s *Server) Handler() http.Handler {
	mux := chi.NewMux()
	api := humachi.New(mux, huma.DefaultConfig("Pulse API", s.version))
	api.UseMiddleware(s.logRequests)
	s.SetupRoutes(api)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	s.logger.Info("http request",
		"method", ctx.Method(),
		"path", ctx.URL().Path,
		"status", ctx.Status(),
		"duration", time.Since(start),
	)
}
