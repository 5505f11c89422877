package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/galliconnect/rideshare/internal/db"
)

const defaultJWTSecret = "change-me-in-production"

type Env struct {
	AppAddr  string `env:"APP_ADDR" envDefault:":8080"`
	GinMode  string `env:"GIN_MODE"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver       string        `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN          string        `env:"DB_DSN" envDefault:"root:@tcp(127.0.0.1:3306)/galli_connect?charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"10m"`
	DBPingTimeout  time.Duration `env:"DB_PING_TIMEOUT" envDefault:"3s"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Dialect returns the validated storage dialect.
func (e Env) Dialect() (db.Dialect, error) {
	return db.ParseDialect(strings.TrimSpace(e.DBDriver))
}

// UsesDefaultSecret reports whether tokens are signed with the built-in development secret.
func (e Env) UsesDefaultSecret() bool {
	return e.JWTSecret == defaultJWTSecret
}

// LoadEnv reads an optional .env file and then the process environment.
func LoadEnv() (Env, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	return ParseEnv()
}

// ParseEnv parses the process environment into Env without touching .env files.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Dialect(); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Env{}, errors.New("parse env: JWT_SECRET must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return Env{}, errors.New("parse env: TOKEN_TTL must be positive")
	}
	return cfg, nil
}
