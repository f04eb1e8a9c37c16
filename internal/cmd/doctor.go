package cmd

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/observability"
)

var (
	doctorDialTimeout time.Duration
	doctorInitForce   bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, the search cache and the model and search endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		logger.Info("=== " + config.AppName + " doctor ===")
		logger.Info("")

		const totalChecks = 5
		allChecks := true
		step := 0
		pass := func(msg string, fields ...zap.Field) {
			step++
			logger.Info(fmt.Sprintf("[%d/%d] %s", step, totalChecks, msg), fields...)
		}
		warn := func(msg string, fields ...zap.Field) {
			step++
			allChecks = false
			logger.Warn(fmt.Sprintf("[%d/%d] %s", step, totalChecks, msg), fields...)
		}

		version := crucible.GetVersion()
		pass(fmt.Sprintf("Runtime... ✅ %s %s/%s, gofulmen %s", runtime.Version(), runtime.GOOS, runtime.GOARCH, version.Gofulmen),
			zap.String("go_version", runtime.Version()))

		if configPath := config.DefaultConfigPath(); configPath == "" {
			warn("Config directory... ⚠️  cannot resolve XDG config directory")
		} else if _, err := os.Stat(configPath); err == nil {
			pass("Config file... ✅ "+configPath, zap.String("config_file", configPath))
		} else {
			pass("Config file... ✅ none (defaults and environment; run 'doctor init' to create "+configPath+")",
				zap.String("config_file", configPath))
		}

		cfg, err := loadedConfig()
		if err != nil {
			warn("Configuration... ⚠️  failed to load", zap.Error(err))
			logger.Info("")
			logger.Warn("⚠️  Remaining checks skipped.")
			return
		}

		switch cfg.Cache.Backend {
		case "libsql":
			if err := checkStore(ctx); err != nil {
				warn("Search cache... ⚠️  libsql store unavailable", zap.Error(err))
			} else {
				pass("Search cache... ✅ libsql "+storeLocation(cfg.Store))
			}
		default:
			pass("Search cache... ✅ " + cfg.Cache.Backend)
		}

		switch {
		case !cfg.LLM.Configured():
			warn("Model endpoint... ⚠️  API key not set (set SCOUTLINE_LLM_API_KEY)")
		default:
			if err := dialEndpoint(ctx, cfg.LLM.BaseURL, doctorDialTimeout); err != nil {
				warn("Model endpoint... ⚠️  unreachable: "+cfg.LLM.BaseURL, zap.Error(err))
			} else {
				pass("Model endpoint... ✅ "+cfg.LLM.BaseURL,
					zap.String("orchestrator_model", cfg.LLM.Models.Orchestrator),
					zap.String("response_model", cfg.LLM.Models.Response))
			}
		}

		switch {
		case strings.TrimSpace(cfg.Search.APIKey) == "":
			warn("Search endpoint... ⚠️  API key not set (set SCOUTLINE_SEARCH_API_KEY)")
		default:
			if err := dialEndpoint(ctx, cfg.Search.BaseURL, doctorDialTimeout); err != nil {
				warn("Search endpoint... ⚠️  unreachable: "+cfg.Search.BaseURL, zap.Error(err))
			} else {
				pass("Search endpoint... ✅ " + cfg.Search.BaseURL)
			}
		}

		logger.Info("")
		if allChecks {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			logger.Warn("⚠️  Some checks failed. The server still runs in degraded mode; review the output above.")
		}
		logger.Info("")
		logger.Info("=== End Diagnostics ===")
	},
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return err
	},
}

func checkStore(ctx context.Context) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup
	return db.CheckHealth(ctx)
}

func storeLocation(cfg config.StoreConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return cfg.URL + " (remote)"
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return cfg.Path
	}
	return abs
}

// dialEndpoint opens a TCP connection to the host behind rawURL.
func dialEndpoint(ctx context.Context, rawURL string, timeout time.Duration) error {
	addr, err := endpointAddr(rawURL)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// endpointAddr returns host:port for rawURL, defaulting the port from the scheme.
func endpointAddr(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("endpoint %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

const defaultConfigTemplate = `# scoutline configuration. Environment variables (SCOUTLINE_*) override these values.
server:
  host: localhost
  port: 3001

llm:
  provider: openai-compatible
  base_url: https://open.bigmodel.cn/api/paas/v4
  # api_key: set SCOUTLINE_LLM_API_KEY instead of storing it here
  models:
    orchestrator: glm-4.7-flash
    response: glm-5
  disable_thinking: true

search:
  provider: tavily
  base_url: https://api.tavily.com
  timeout: 15s

cache:
  backend: memory # memory, libsql or none
  ttl: 10m
  cleanup_interval: 15m

logging:
  level: info
  profile: structured

metrics:
  enabled: true
  port: 9090
`

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.Flags().DurationVar(&doctorDialTimeout, "timeout", 5*time.Second, "timeout for endpoint reachability checks")
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
}
