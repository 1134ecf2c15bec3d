package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`

	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT, default=30m"`
	SessionMaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME, default=12h"`
	SessionPurgeEvery  time.Duration `env:"SESSION_PURGE_EVERY,  default=5m"`

	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT,  default=10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW, default=1m"`
	APIRateLimit   int           `env:"API_RATE_LIMIT,   default=120"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW,  default=1m"`

	Bootstrap BootstrapConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

// BootstrapConfig seeds the initial admin account when no admin exists.
type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME, default=admin"`
	AdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL,    default=admin@portal.local"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=ministry_portal"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Production reports whether the service runs with production hardening:
// secure cookies and suppressed error detail.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	return &cfg, nil
}
