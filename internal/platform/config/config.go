package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	Server   Server
	Redis    RedisConfig
	Token    TokenConfig
	Activity ActivityConfig
	Deletion DeletionConfig
}

// Server captures ops HTTP server and logging configuration.
type Server struct {
	Addr     string `env:"WARDEN_ADDR" envDefault:":8080"`
	LogLevel string `env:"WARDEN_LOG_LEVEL" envDefault:"info"`
}

// RedisConfig describes how to reach the shared store. ClusterAddrs takes
// precedence over URL when set.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ClusterAddrs []string      `env:"REDIS_CLUSTER_ADDRS" envSeparator:","`
	Password     string        `env:"REDIS_PASSWORD"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TokenConfig holds token lifetime policy.
type TokenConfig struct {
	DefaultTTL time.Duration `env:"TOKEN_DEFAULT_TTL" envDefault:"1h"`
	// RevokeFallbackTTL is the marker lifetime used when revoking a jti whose
	// token record is not (or no longer) in the store.
	RevokeFallbackTTL time.Duration `env:"TOKEN_REVOKE_FALLBACK_TTL" envDefault:"1h"`
}

// ActivityConfig holds daily active-user bucket retention.
type ActivityConfig struct {
	BucketTTL time.Duration `env:"ACTIVITY_BUCKET_TTL" envDefault:"2160h"`
}

// DeletionConfig drives the deletion queue worker.
type DeletionConfig struct {
	BatchSize    int           `env:"DELETION_BATCH_SIZE" envDefault:"10"`
	PollInterval time.Duration `env:"DELETION_POLL_INTERVAL" envDefault:"30s"`
}

// Default returns the configuration with every default applied and no
// environment overrides.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", LogLevel: "info"},
		Redis: RedisConfig{
			URL:          "redis://localhost:6379/0",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Token: TokenConfig{
			DefaultTTL:        time.Hour,
			RevokeFallbackTTL: time.Hour,
		},
		Activity: ActivityConfig{BucketTTL: 90 * 24 * time.Hour},
		Deletion: DeletionConfig{BatchSize: 10, PollInterval: 30 * time.Second},
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Token.DefaultTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_DEFAULT_TTL must be positive, got %s", cfg.Token.DefaultTTL)
	}
	if cfg.Deletion.BatchSize <= 0 {
		return Config{}, fmt.Errorf("DELETION_BATCH_SIZE must be positive, got %d", cfg.Deletion.BatchSize)
	}
	return cfg, nil
}
