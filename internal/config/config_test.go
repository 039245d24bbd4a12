package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 100, cfg.PageLimitMax)
	assert.Equal(t, 10, cfg.PageLimitDefault)
	assert.False(t, cfg.DevSeed)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LEDGER_CURRENCY", "gbp")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("DEV_SEED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "GBP", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.DevSeed)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Currency: "USD", PageLimitMax: 100, PageLimitDefault: 10, RequestTimeout: time.Second}
	}
	cases := map[string]func(*Config){
		"unknown currency":   func(c *Config) { c.Currency = "XXQ" },
		"three decimals":     func(c *Config) { c.Currency = "KWD" },
		"zero decimals":      func(c *Config) { c.Currency = "JPY" },
		"zero max":           func(c *Config) { c.PageLimitMax = 0 },
		"default over max":   func(c *Config) { c.PageLimitDefault = 500 },
		"negative rate":      func(c *Config) { c.RateLimitPerMinute = -1 },
		"no request timeout": func(c *Config) { c.RequestTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	c := base()
	require.NoError(t, c.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn"}
	l := cfg.NewLogger(&buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	cfg = Config{LogLevel: "debug", LogFormat: "text"}
	cfg.NewLogger(&buf).Debug("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	assert.True(t, cfg.NewLogger(&buf).Enabled(context.Background(), slog.LevelDebug))
}
