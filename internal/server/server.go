// Package server exposes the retention stores and execution intents over a
// small HTTP API for the dashboard frontend.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chillman12/dexter3.0/internal/server/handler"
	"github.com/chillman12/dexter3.0/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Dashboard *handler.DashboardHandler
	Execute   *handler.ExecuteHandler // optional; intents are disabled when nil
}

// Server is the HTTP API server for the dexter dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain (logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/v1/health", handlers.Health.HealthCheck)

	// Read-only dashboard views.
	mux.HandleFunc("GET /api/v1/stats", handlers.Dashboard.Stats)
	mux.HandleFunc("GET /api/v1/prices", handlers.Dashboard.Prices)
	mux.HandleFunc("GET /api/v1/opportunities", handlers.Dashboard.Opportunities)
	mux.HandleFunc("GET /api/v1/mev-threats", handlers.Dashboard.MevThreats)
	mux.HandleFunc("GET /api/v1/market-depth/{pair}", handlers.Dashboard.MarketDepth)
	mux.HandleFunc("GET /api/v1/executions", handlers.Dashboard.Executions)

	// Execution intents.
	if handlers.Execute != nil {
		mux.HandleFunc("POST /api/v1/execute", handlers.Execute.ExecuteArbitrage)
		mux.HandleFunc("DELETE /api/v1/execute/{id}", handlers.Execute.CancelExecution)
		mux.HandleFunc("PUT /api/v1/auto-trading", handlers.Execute.ToggleAutoTrading)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
