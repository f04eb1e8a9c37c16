package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/server/handlers"
)

const (
	adminSignalPath       = "/admin/signal"
	adminSignalsPerMinute = 10
	adminSignalBurst      = 5
)

func (s *Server) registerRoutes() {
	s.mountOperational(s.router)
	s.router.Route("/api", s.mountAPI)

	if s.opts.Pprof {
		s.router.Mount("/debug", middleware.Profiler())
		s.warn("pprof endpoints enabled", zap.String("path", "/debug/pprof/"))
	}

	if s.opts.AdminToken == "" {
		if logger := observability.ServerLogger; logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin.token set)")
		}
		return
	}
	s.mountAdmin(s.router)
}

// mountOperational registers probes, build info and the metrics proxy.
func (s *Server) mountOperational(r chi.Router) {
	if !s.opts.DisableHealth {
		r.Get("/health", handlers.HealthHandler)
		r.Get("/health/live", handlers.LivenessHandler)
		r.Get("/health/ready", handlers.ReadinessHandler)
		r.Get("/health/startup", handlers.StartupHandler)
	}
	r.Get("/version", handlers.VersionHandler)
	r.Method(http.MethodGet, "/metrics", newMetricsProxy(s.opts.MetricsPort))
}

func (s *Server) mountAPI(r chi.Router) {
	logger := observability.ServerLogger
	r.Method(http.MethodPost, "/chat", &handlers.ChatHandler{Runner: s.opts.Chat, Logger: logger})
	r.Method(http.MethodPost, "/search", &handlers.SearchHandler{Searcher: s.opts.Search, Logger: logger})
}

// mountAdmin exposes signal delivery behind the admin bearer token.
func (s *Server) mountAdmin(r chi.Router) {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: adminSignalsPerMinute,
		RateBurst: adminSignalBurst,
	})
	r.Post(adminSignalPath, handler.ServeHTTP)

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", adminSignalPath),
			zap.Int("rate_per_minute", adminSignalsPerMinute),
			zap.Int("burst", adminSignalBurst))
	}
	s.warn("Admin endpoint enabled; keep this listener off the public internet")
}

func (s *Server) warn(msg string, fields ...zap.Field) {
	if logger := observability.ServerLogger; logger != nil {
		logger.Warn(msg, fields...)
	}
}
