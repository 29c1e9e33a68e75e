package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the client, CLI, and gateway.
type Config struct {
	// Backend API
	APIURL string `env:"AM_API_URL" envDefault:"https://api.answermate.io"`
	APIKey string `env:"AM_API_KEY"`

	// Gateway
	Port     int    `env:"PORT" envDefault:"8090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Retry / resilience
	MaxRetries         int           `env:"MAX_RETRIES" envDefault:"2"`
	RetryBase          time.Duration `env:"RETRY_BASE" envDefault:"500ms"`
	ExponentialBackoff bool          `env:"EXPONENTIAL_BACKOFF" envDefault:"true"`
	AttemptTimeout     time.Duration `env:"ATTEMPT_TIMEOUT" envDefault:"30s"`
	FallbackEnabled    bool          `env:"FALLBACK_ENABLED" envDefault:"true"`

	// Settings refresh
	SettingsRefreshInterval time.Duration `env:"SETTINGS_REFRESH_INTERVAL" envDefault:"5m"`

	// Document cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"bolt"` // "bolt", "memory", "redis" or "postgres"
	CachePath     string        `env:"CACHE_PATH" envDefault:"amclient.db"`
	CacheMaxAge   time.Duration `env:"CACHE_MAX_AGE" envDefault:"24h"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	DBURL         string        `env:"DB_URL"`

	// Background sync (gateway)
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"15m"`
	NATSURL      string        `env:"NATS_URL"` // optional; enables push-triggered sync
	SyncSubject  string        `env:"SYNC_SUBJECT" envDefault:"am.docs.updated"`
}

// apiKeyPrefix is the mandatory prefix of issued API keys.
const apiKeyPrefix = "am_"

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate checks the fields that make the client unusable when wrong.
// A missing or malformed API key is fatal at construction time.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("AM_API_URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("AM_API_KEY is required")
	}
	if !strings.HasPrefix(c.APIKey, apiKeyPrefix) {
		return fmt.Errorf("AM_API_KEY must start with %q", apiKeyPrefix)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	switch c.CacheProvider {
	case "bolt", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: bolt, memory, redis, postgres)", c.CacheProvider)
	}
	return nil
}
