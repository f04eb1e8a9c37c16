package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	errwrap "github.com/scoutline/scoutline/internal/errors"
	"github.com/scoutline/scoutline/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: version metadata, configuration, the prompt set and the
model and search credentials. Missing credentials are reported as warnings because the
pipeline degrades without them.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadedConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded",
			zap.String("search_provider", cfg.Search.Provider),
			zap.String("cache_backend", cfg.Cache.Backend))

		registry, err := prompt.LoadRegistry(cfg.LLM.PromptsDir)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Prompt set failed to load", err)
			return
		}
		logger.Info("✅ Prompts loaded", zap.Int("count", len(registry.List())))

		if cfg.LLM.Configured() {
			logger.Info("✅ Model credentials present", zap.String("base_url", cfg.LLM.BaseURL))
		} else {
			logger.Warn("⚠️  Model credentials missing; heuristics and canned text will be used")
		}
		if cfg.Search.APIKey != "" {
			logger.Info("✅ Search credentials present", zap.String("provider", cfg.Search.Provider))
		} else {
			logger.Warn("⚠️  Search credentials missing; searches will be skipped")
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
