package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds overrides read from the environment (and a local .env file).
type Env struct {
	Currency          string        `env:"BALANCER_CURRENCY"`
	CurrencyReference string        `env:"BALANCER_CURRENCY_REFERENCE"`
	IDMode            string        `env:"BALANCER_ID_MODE"`
	HookTimeout       time.Duration `env:"BALANCER_HOOK_TIMEOUT" envDefault:"5s"`
	LogLevel          string        `env:"BALANCER_LOG_LEVEL"    envDefault:"warn"`
}

// loadEnv reads .env if present, then parses BALANCER_* variables.
func loadEnv() (Env, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// level maps a log level name to slog.
func (e Env) level() slog.Level {
	switch strings.ToLower(e.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
