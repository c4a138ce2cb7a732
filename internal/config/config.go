// Package config loads engine configuration from file and environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values. Every key can be overridden with
// a TIMEPIVOT_-prefixed environment variable, dots replaced by
// underscores (e.g. TIMEPIVOT_STORE_BACKEND).
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Synonyms SynonymsConfig `mapstructure:"synonyms"`
	Trust    TrustConfig    `mapstructure:"trust"`
	Index    IndexConfig    `mapstructure:"index"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StoreConfig selects and configures the entity store backend.
type StoreConfig struct {
	// Backend is "memory" or "surrealdb".
	Backend string `mapstructure:"backend"`

	// Seed loads the built-in sample dataset on startup.
	Seed bool `mapstructure:"seed"`

	SurrealURL       string `mapstructure:"surreal_url"`
	SurrealNamespace string `mapstructure:"surreal_namespace"`
	SurrealDatabase  string `mapstructure:"surreal_database"`
	SurrealUser      string `mapstructure:"surreal_user"`
	SurrealPass      string `mapstructure:"surreal_pass"`
	SurrealAuthLevel string `mapstructure:"surreal_auth_level"`
}

// UpstreamConfig configures the raw entity provider.
type UpstreamConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Timeout           time.Duration `mapstructure:"timeout"`
	LogBodies         bool          `mapstructure:"log_bodies"`
}

// SynonymsConfig points at the hot-reloadable role table.
type SynonymsConfig struct {
	// File is a YAML synonym table watched for changes; empty means the
	// built-in table without hot reload.
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

// TrustConfig sets the default trust weight per source class.
type TrustConfig struct {
	Curated       float64 `mapstructure:"curated"`
	Public        float64 `mapstructure:"public"`
	UserSubmitted float64 `mapstructure:"user_submitted"`
}

// IndexConfig tunes edge derivation.
type IndexConfig struct {
	MaxGapYears int64 `mapstructure:"max_gap_years"`
	Workers     int   `mapstructure:"workers"`
}

// LoggingConfig controls the dual text/JSON log output.
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional YAML file plus the
// environment. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TIMEPIVOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.seed", true)
	v.SetDefault("store.surreal_url", "ws://localhost:8000/rpc")
	v.SetDefault("store.surreal_namespace", "timepivot")
	v.SetDefault("store.surreal_database", "entities")
	v.SetDefault("store.surreal_user", "root")
	v.SetDefault("store.surreal_pass", "root")
	v.SetDefault("store.surreal_auth_level", "root")

	v.SetDefault("upstream.enabled", false)
	v.SetDefault("upstream.base_url", "https://www.wikidata.org")
	v.SetDefault("upstream.requests_per_second", 2.0)
	v.SetDefault("upstream.burst", 4)
	v.SetDefault("upstream.cache_ttl", 15*time.Minute)
	v.SetDefault("upstream.timeout", 20*time.Second)
	v.SetDefault("upstream.log_bodies", false)

	v.SetDefault("synonyms.file", "")
	v.SetDefault("synonyms.watch", false)

	v.SetDefault("trust.curated", 0.9)
	v.SetDefault("trust.public", 0.7)
	v.SetDefault("trust.user_submitted", 0.4)

	v.SetDefault("index.max_gap_years", 50)
	v.SetDefault("index.workers", 0)

	v.SetDefault("logging.file", "/tmp/timepivot.log")
	v.SetDefault("logging.level", "INFO")
}

// SlogLevel converts the configured level name to a slog level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(l.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
