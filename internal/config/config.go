// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/govalues/money"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for ledgerd.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	RedisURL        string        `envconfig:"REDIS_URL"`
	Currency        string        `envconfig:"LEDGER_CURRENCY" default:"USD"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	PageLimitMax     int `envconfig:"PAGE_LIMIT_MAX" default:"100"`
	PageLimitDefault int `envconfig:"PAGE_LIMIT_DEFAULT" default:"10"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"0"`

	JWTSecret   string `envconfig:"JWT_HS256_SECRET"`
	JWTIssuer   string `envconfig:"JWT_ISSUER"`
	JWTAudience string `envconfig:"JWT_AUDIENCE"`

	DevSeed bool `envconfig:"DEV_SEED" default:"false"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	curr, err := money.ParseCurr(c.Currency)
	if err != nil {
		return fmt.Errorf("config: LEDGER_CURRENCY: %w", err)
	}
	if curr.Scale() != 2 {
		return fmt.Errorf("config: LEDGER_CURRENCY %s has %d decimal places, want 2", c.Currency, curr.Scale())
	}
	switch {
	case c.PageLimitMax <= 0:
		return errors.New("config: PAGE_LIMIT_MAX must be positive")
	case c.PageLimitDefault <= 0:
		return errors.New("config: PAGE_LIMIT_DEFAULT must be positive")
	case c.PageLimitDefault > c.PageLimitMax:
		return errors.New("config: PAGE_LIMIT_DEFAULT must not exceed PAGE_LIMIT_MAX")
	case c.RateLimitPerMinute < 0:
		return errors.New("config: RATE_LIMIT_PER_MINUTE must not be negative")
	case c.RequestTimeout <= 0:
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. LOG_FORMAT=text selects the text handler; anything else is JSON.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}
	if strings.EqualFold(strings.TrimSpace(c.LogFormat), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
