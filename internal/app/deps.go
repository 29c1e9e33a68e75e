package app

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"am-client/internal/client"
	"am-client/internal/config"
	"am-client/internal/docstore"
	"am-client/internal/localrag"
	"am-client/internal/logger"
	"am-client/internal/transport"
)

// Deps bundles common runtime dependencies for the CLI and gateway.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Store  docstore.Store
	Engine *localrag.Engine
	Client *client.Client

	// NATS is non-nil only when NATS_URL is configured.
	NATS *nats.Conn
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Deps{}, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize document cache: %w", err)
	}

	tr, err := transport.NewHTTP(cfg.APIURL, cfg.APIKey, cfg.AttemptTimeout, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize transport: %w", err)
	}

	engine := localrag.New()
	c := client.New(log, tr, store, engine, client.Config{
		MaxRetries:              cfg.MaxRetries,
		RetryBase:               cfg.RetryBase,
		ExponentialBackoff:      cfg.ExponentialBackoff,
		FallbackEnabled:         cfg.FallbackEnabled,
		SettingsRefreshInterval: cfg.SettingsRefreshInterval,
	})

	deps := Deps{
		Config: cfg,
		Log:    log,
		Store:  store,
		Engine: engine,
		Client: c,
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("connected to NATS", "url", cfg.NATSURL)
		deps.NATS = nc
	}

	return deps, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (docstore.Store, error) {
	switch cfg.CacheProvider {
	case "memory":
		log.Info("using in-memory document cache")
		return docstore.NewMemoryStore(docstore.WithMaxAge(cfg.CacheMaxAge)), nil
	case "bolt":
		st, err := docstore.NewBoltStore(cfg.CachePath, log, cfg.CacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt cache: %w", err)
		}
		log.Info("using bolt document cache", "path", cfg.CachePath)
		return st, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when CACHE_PROVIDER=redis")
		}
		st, err := docstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, log, cfg.CacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("using Redis document cache", "addr", cfg.RedisAddr)
		return st, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when CACHE_PROVIDER=postgres")
		}
		st, err := docstore.NewPostgresStore(cfg.DBURL, log, cfg.CacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres cache: %w", err)
		}
		log.Info("using Postgres document cache")
		return st, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: bolt, memory, redis, postgres)", cfg.CacheProvider)
	}
}
