package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/core/search"
	errwrap "github.com/scoutline/scoutline/internal/errors"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/server"
	"github.com/scoutline/scoutline/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing POST /api/chat (server-sent events) and
POST /api/search, plus health, version and metrics endpoints.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload configuration and apply the new log level

Credentials are optional. Without a model key the pipeline falls back to heuristics and
canned text; without a search key searches are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "config load failed")
		}
		applyServeFlags(cmd, cfg)

		logLevel := cfg.Logging.Level
		if cfg.Debug.Enabled {
			logLevel = "debug"
		}
		observability.InitServerLogger(config.AppName, observability.ServerLoggerOptions{
			Level:     logLevel,
			Profile:   cfg.Logging.Profile,
			Namespace: config.AppName,
		})
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			metricsPort := cfg.Metrics.Port
			if metricsPort == 0 {
				metricsPort = observability.DefaultMetricsPort
			}
			if err := observability.InitMetrics(config.AppName, metricsPort); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		p, err := buildPipeline(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("Failed to build chat pipeline", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "pipeline initialization failed")
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Bool("llm_configured", cfg.LLM.Configured()),
			zap.Bool("search_configured", search.Configured(p.Searcher)),
			zap.String("cache_backend", cfg.Cache.Backend))

		if !cfg.LLM.Configured() {
			logger.Warn("LLM API key missing; planning and narration use fallbacks")
		}
		if !search.Configured(p.Searcher) {
			logger.Warn("Search API key missing; searches are skipped")
		}

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("telemetry", handlers.TelemetryChecker{})
		hm.RegisterChecker("llm", handlers.ConfiguredChecker{Name: "llm", Configured: cfg.LLM.Configured})
		hm.RegisterChecker("search", handlers.ConfiguredChecker{Name: "search", Configured: p.searchConfigured})
		if p.Store != nil {
			hm.RegisterChecker("store", handlers.StoreChecker{Store: p.Store})
			purgeExpiredSearches(cmd.Context(), p)
		}

		srv := server.New(server.Options{
			Config:        cfg.Server,
			Chat:          p.Orchestrator(),
			Search:        p.Searcher,
			AdminToken:    cfg.Admin.Token,
			MetricsPort:   cfg.Metrics.Port,
			DisableHealth: !cfg.Health.Enabled,
			Pprof:         cfg.Debug.Enabled && cfg.Debug.PprofEnabled,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: the server stops first, the logger flushes last.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := p.Close(); err != nil {
				logger.Warn("Failed to close store", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			reloaded, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
			if err != nil {
				logger.Error("Failed to reload config", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			// Listeners and the pipeline keep their startup settings; only logging follows
			// the reloaded file.
			if reloaded.Logging.Level != cfg.Logging.Level {
				observability.SetServerLogLevel(reloaded.Logging.Level)
				logger.Info("Log level updated", zap.String("level", reloaded.Logging.Level))
			}
			if reloaded.Server != cfg.Server || reloaded.LLM != cfg.LLM || reloaded.Search != cfg.Search {
				logger.Warn("Server, model and search settings changed; restart to apply them")
			}

			logger.Info("Configuration reloaded successfully")
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// applyServeFlags lets explicit --host/--port win over file and environment settings.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
}

func purgeExpiredSearches(ctx context.Context, p *pipeline) {
	purged, err := p.Store.PurgeExpiredSearches(ctx)
	if err != nil {
		p.Logger.Warn("Failed to purge expired search cache entries", zap.Error(err))
		return
	}
	if purged > 0 {
		p.Logger.Info("Purged expired search cache entries", zap.Int64("count", purged))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 3001, "server port")
}
