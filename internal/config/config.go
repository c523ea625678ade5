// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"spyglass/collector/internal/watcher"
)

// Store backend names accepted in STORE.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the API server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Store selects the entry store backend: memory, badger, or postgres.
	Store string `mapstructure:"STORE"`
	// DatabaseURL is the Postgres DSN; required when STORE=postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BadgerPath is the on-disk location of the badger store; required when STORE=badger.
	BadgerPath string `mapstructure:"BADGER_PATH"`
	// RetentionMaxEntries caps the memory store; oldest entries are evicted past it. 0 means unbounded.
	RetentionMaxEntries int `mapstructure:"RETENTION_MAX_ENTRIES"`
	// JWTPublicKey is the PEM-encoded public key (RSA or ECDSA) verifying API tokens. Empty disables auth.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// Env is the application environment (e.g. "development", "production"). Controls error detail in responses.
	Env string `mapstructure:"APP_ENV"`

	// Export sinks (all optional; empty disables the sink).
	// OTLPEndpoint is the OTLP gRPC collector address (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic entries are exported to.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`
	// LokiURL is the Loki base URL entries are pushed to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// Watcher toggles; all default to enabled.
	WatchRequest    bool `mapstructure:"WATCH_REQUEST"`
	WatchBatch      bool `mapstructure:"WATCH_BATCH"`
	WatchCache      bool `mapstructure:"WATCH_CACHE"`
	WatchQuery      bool `mapstructure:"WATCH_QUERY"`
	WatchMail       bool `mapstructure:"WATCH_MAIL"`
	WatchJob        bool `mapstructure:"WATCH_JOB"`
	WatchGate       bool `mapstructure:"WATCH_GATE"`
	WatchHTTPClient bool `mapstructure:"WATCH_HTTP_CLIENT"`
	WatchRedis      bool `mapstructure:"WATCH_REDIS"`
	WatchLogLine    bool `mapstructure:"WATCH_LOG_LINE"`
	// BatchTrackMemory records a heap delta per batch run.
	BatchTrackMemory bool `mapstructure:"BATCH_TRACK_MEMORY"`
	// QuerySlowMs tags queries at or above this duration with "slow". 0 disables.
	QuerySlowMs int64 `mapstructure:"QUERY_SLOW_MS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BADGER_PATH", "")
	v.SetDefault("RETENTION_MAX_ENTRIES", 10000)
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "spyglass-entries")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("WATCH_REQUEST", true)
	v.SetDefault("WATCH_BATCH", true)
	v.SetDefault("WATCH_CACHE", true)
	v.SetDefault("WATCH_QUERY", true)
	v.SetDefault("WATCH_MAIL", true)
	v.SetDefault("WATCH_JOB", true)
	v.SetDefault("WATCH_GATE", true)
	v.SetDefault("WATCH_HTTP_CLIENT", true)
	v.SetDefault("WATCH_REDIS", true)
	v.SetDefault("WATCH_LOG_LINE", true)
	v.SetDefault("BATCH_TRACK_MEMORY", false)
	v.SetDefault("QUERY_SLOW_MS", 500)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreBadger:
		if cfg.BadgerPath == "" {
			return nil, errors.New("config: BADGER_PATH must be set when STORE=badger")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE %q", cfg.Store)
	}

	if cfg.RetentionMaxEntries < 0 {
		return nil, errors.New("config: RETENTION_MAX_ENTRIES must not be negative")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka exporter is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// WatcherConfig builds the watcher configuration from the flags. The
// API's own routes are excluded from request tracking.
func (c *Config) WatcherConfig() watcher.Config {
	wc := watcher.DefaultConfig()
	wc.Request = c.WatchRequest
	wc.RequestSkipPaths = []string{"/healthz", "/api/"}
	wc.Batch = c.WatchBatch
	wc.BatchOptions = watcher.BatchOptions{TrackMemory: c.BatchTrackMemory}
	wc.Cache = c.WatchCache
	wc.Query = c.WatchQuery
	wc.QueryOptions = watcher.QueryOptions{SlowThresholdMs: c.QuerySlowMs}
	wc.Mail = c.WatchMail
	wc.Job = c.WatchJob
	wc.Gate = c.WatchGate
	wc.HTTPClient = c.WatchHTTPClient
	wc.Redis = c.WatchRedis
	wc.LogLine = c.WatchLogLine
	return wc
}

// PublicKeyPEM returns the configured JWT public key bytes, or nil when
// auth is disabled. Literal "\n" sequences are unescaped so keys can be
// passed through single-line env vars.
func (c *Config) PublicKeyPEM() []byte {
	if c == nil || c.JWTPublicKey == "" {
		return nil
	}
	return []byte(strings.ReplaceAll(c.JWTPublicKey, `\n`, "\n"))
}
