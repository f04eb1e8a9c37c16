package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and effective configuration. Secrets are shown only as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		version := crucible.GetVersion()

		logger.Info("=== " + config.AppName + " environment ===")
		logger.Info("")

		logger.Info("Application:")
		logger.Info("  Version:    " + versionInfo.Version)
		logger.Info("  Commit:     " + versionInfo.Commit)
		logger.Info("  Built:      " + versionInfo.BuildDate)
		logger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		logger.Info("")

		logger.Info("Runtime:")
		logger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		logger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		logger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		logger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		logger.Info("")

		cfg, err := loadedConfig()
		if err != nil {
			logger.Warn("Config load failed", zap.Error(err))
			return
		}

		logger.Info("Server:")
		logger.Info(fmt.Sprintf("  Listen:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		logger.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		logger.Info("  Log Level:      " + cfg.Logging.Level)
		logger.Info("  Log Profile:    " + cfg.Logging.Profile)
		logger.Info("  Admin Token:    " + setOrNot(cfg.Admin.Token))
		logger.Info("  Config File:    " + config.DefaultConfigPath())
		logger.Info("")

		logger.Info("Model:")
		logger.Info("  Provider:       " + cfg.LLM.Provider)
		logger.Info("  Base URL:       " + cfg.LLM.BaseURL)
		logger.Info("  API Key:        " + setOrNot(cfg.LLM.APIKey))
		logger.Info("  Orchestrator:   " + cfg.LLM.Models.Orchestrator)
		logger.Info("  Response:       " + cfg.LLM.Models.Response)
		logger.Info(fmt.Sprintf("  No Thinking:    %t", cfg.LLM.DisableThinking))
		if cfg.LLM.PromptsDir != "" {
			logger.Info("  Prompts Dir:    " + cfg.LLM.PromptsDir)
		}
		logger.Info("")

		logger.Info("Search:")
		logger.Info("  Provider:       " + cfg.Search.Provider)
		logger.Info("  Base URL:       " + cfg.Search.BaseURL)
		logger.Info("  API Key:        " + setOrNot(cfg.Search.APIKey))
		logger.Info("  Timeout:        " + cfg.Search.Timeout.String())
		logger.Info("")

		logger.Info("Cache:")
		logger.Info("  Backend:        " + cfg.Cache.Backend)
		logger.Info("  TTL:            " + cfg.Cache.TTL.String())
		if cfg.Cache.Backend == "libsql" {
			logger.Info("  Store:          " + storeLocation(cfg.Store))
		}
		logger.Info("")

		logger.Info("=== End Environment Information ===")
	},
}

func setOrNot(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
