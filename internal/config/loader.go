// Package config provides centralized configuration management for Scoutline.
// Values are layered:
// Layer 1: built-in defaults (setDefaults)
// Layer 2: an optional YAML file (--config, the XDG config dir, or ./config/config.yaml)
// Layer 3: environment variables, including a .env file in the working directory
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the config directory, the binary and the default database file.
const AppName = "scoutline"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SCOUTLINE"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// LoadOptions tunes where Load looks for configuration.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. A missing explicit file is an error.
	ConfigFile string

	// EnvFile is loaded into the process environment before variables are read.
	// Empty means ".env"; a missing file is ignored.
	EnvFile string

	// SkipEnvFile disables .env loading.
	SkipEnvFile bool
}

// envBindings maps config keys to their environment names. The prefixed name comes
// first; unprefixed legacy names follow and are consulted only when it is unset.
var envBindings = map[string][]string{
	"server.host":             {"HOST"},
	"server.port":             {"PORT", "!PORT"},
	"server.read_timeout":     {"READ_TIMEOUT"},
	"server.write_timeout":    {"WRITE_TIMEOUT"},
	"server.idle_timeout":     {"IDLE_TIMEOUT"},
	"server.shutdown_timeout": {"SHUTDOWN_TIMEOUT"},

	"llm.provider":            {"LLM_PROVIDER"},
	"llm.base_url":            {"LLM_BASE_URL", "!GLM4_BASE_URL"},
	"llm.api_key":             {"LLM_API_KEY", "!GLM4_API_KEY"},
	"llm.models.orchestrator": {"LLM_ORCHESTRATOR_MODEL", "!GLM_ORCHESTRATOR_MODEL"},
	"llm.models.response":     {"LLM_RESPONSE_MODEL", "!GLM_RESPONSE_MODEL", "!GLM4_MODEL"},
	"llm.timeout":             {"LLM_TIMEOUT"},
	"llm.prompts_dir":         {"LLM_PROMPTS_DIR"},
	"llm.disable_thinking":    {"LLM_DISABLE_THINKING"},

	"search.provider": {"SEARCH_PROVIDER"},
	"search.api_key":  {"SEARCH_API_KEY", "!TAVILY_API_KEY"},
	"search.base_url": {"SEARCH_BASE_URL"},
	"search.timeout":  {"SEARCH_TIMEOUT"},

	"cache.backend":          {"CACHE_BACKEND"},
	"cache.ttl":              {"CACHE_TTL"},
	"cache.cleanup_interval": {"CACHE_CLEANUP_INTERVAL"},

	"store.driver":     {"DB_DRIVER"},
	"store.path":       {"DB_PATH"},
	"store.url":        {"DB_URL"},
	"store.auth_token": {"DB_AUTH_TOKEN"},

	"logging.level":       {"LOG_LEVEL"},
	"logging.profile":     {"LOG_PROFILE"},
	"metrics.enabled":     {"METRICS_ENABLED"},
	"metrics.port":        {"METRICS_PORT"},
	"health.enabled":      {"HEALTH_ENABLED"},
	"admin.token":         {"ADMIN_TOKEN"},
	"debug.enabled":       {"DEBUG_ENABLED"},
	"debug.pprof_enabled": {"DEBUG_PPROF_ENABLED"},
}

// Load builds the configuration and stores it for GetConfig. It is safe to call
// more than once (e.g., for config reload).
func Load(opts LoadOptions) (*Config, error) {
	if !opts.SkipEnvFile {
		envFile := opts.EnvFile
		if envFile == "" {
			envFile = ".env"
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := normalize(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Model defaults
	v.SetDefault("llm.provider", "openai-compatible")
	v.SetDefault("llm.base_url", "https://open.bigmodel.cn/api/paas/v4")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.models.orchestrator", "glm-4.7-flash")
	v.SetDefault("llm.models.response", "glm-5")
	v.SetDefault("llm.timeout", "0s")
	v.SetDefault("llm.prompts_dir", "")
	v.SetDefault("llm.disable_thinking", true)

	// Search defaults
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.timeout", "15s")

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup_interval", "15m")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "./"+AppName+".db")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	v.SetDefault("admin.token", "")

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, envNames(names)...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// envNames expands binding names. A leading "!" marks a legacy name used as is;
// everything else gets the prefix.
func envNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if legacy, ok := strings.CutPrefix(name, "!"); ok {
			out = append(out, legacy)
			continue
		}
		out = append(out, EnvPrefix+"_"+name)
	}
	return out
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
		return nil
	}

	if dir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(dir) != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// It's OK if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func normalize(cfg *Config) error {
	cfg.Search.Provider = strings.ToLower(strings.TrimSpace(cfg.Search.Provider))
	if cfg.Search.Provider != "" && cfg.Search.Provider != "tavily" {
		return fmt.Errorf("unsupported search provider %q", cfg.Search.Provider)
	}

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch cfg.Cache.Backend {
	case "", "memory":
		cfg.Cache.Backend = "memory"
	case "none", "libsql":
	default:
		return fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	return nil
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
