package config

import (
	"time"

	"github.com/scoutline/scoutline/internal/ailink"
)

// Config represents the complete application configuration. Values are layered as
// built-in defaults, then an optional YAML file, then environment variables.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     ailink.Config `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// ServerConfig is the HTTP listener. Write timeout also bounds chat event streams.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	// Provider selects the search backend. Only "tavily" is supported.
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// Backend is one of none, memory or libsql.
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StoreConfig locates the libsql database used by the libsql cache backend. URL
// selects a remote database and takes precedence over Path.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig selects the server log level (trace, debug, info, warn, error) and
// profile (structured or simple).
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig controls the Prometheus exporter. It listens on Port and is also
// proxied at /metrics on the main listener.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig toggles the /health probe routes.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AdminConfig guards the admin endpoints. An empty token disables them.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// DebugConfig forces debug logging when Enabled. PprofEnabled additionally mounts
// /debug/pprof and must stay off on public listeners.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
