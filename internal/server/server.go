package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/core/search"
	apperrors "github.com/scoutline/scoutline/internal/errors"
	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/server/handlers"
	servermw "github.com/scoutline/scoutline/internal/server/middleware"
)

// Options carries what the server needs beyond its listen address.
type Options struct {
	Config config.ServerConfig

	// Chat and Search back the /api routes. A nil value leaves the route answering 500.
	Chat   handlers.TurnRunner
	Search search.Searcher

	// AdminToken enables POST /admin/signal when non-empty.
	AdminToken string

	// DisableHealth drops the /health probe routes.
	DisableHealth bool

	// Pprof mounts net/http/pprof under /debug.
	Pprof bool

	// MetricsPort is where /metrics looks for the exporter when it has not reported
	// its own listen port.
	MetricsPort int
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	opts   Options
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	// Inside the metrics layer so recovered panics are counted as 500s.
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    withServerDefaults(opts.Config),
		opts:   opts,
	}

	// Register routes
	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	metrics.SetServerStartTime(time.Now())

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}

func withServerDefaults(cfg config.ServerConfig) config.ServerConfig {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.Port == 0 {
		cfg.Port = 3001
	}
	return cfg
}
