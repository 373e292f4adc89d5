package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Len(t, cfg.Scanner.Pairs, 15)
	assert.Equal(t, 1.0, cfg.Scanner.ThresholdPercent)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.Cooldown.Duration)
	assert.Equal(t, 60, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window.Duration)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"
log_level = "debug"

[scanner]
pairs = ["BTCUSDT", "ETHUSDT"]
threshold_percent = 2.5
interval = "10s"

[notify]
bale_token = "tok"
bale_chat_id = "chat"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Scanner.Pairs)
	assert.Equal(t, 2.5, cfg.Scanner.ThresholdPercent)
	assert.Equal(t, 10*time.Second, cfg.Scanner.Interval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Scanner.Cooldown.Duration)
	assert.Equal(t, "https://apiv2.nobitex.ir", cfg.Nobitex.BaseURL)
	assert.Equal(t, "tok", cfg.Notify.BaleToken)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARBWATCH_MODE", "serve")
	t.Setenv("ARBWATCH_SCANNER_THRESHOLD_PERCENT", "3.5")
	t.Setenv("ARBWATCH_SCANNER_PAIRS", "BTCUSDT, ETHUSDT ,DOGEUSDT")
	t.Setenv("ARBWATCH_SCANNER_INTERVAL", "30s")
	t.Setenv("ARBWATCH_POSTGRES_ENABLED", "true")
	t.Setenv("ARBWATCH_POSTGRES_PASSWORD", "secret")
	t.Setenv("ARBWATCH_SERVER_API_KEY", "hunter2")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 3.5, cfg.Scanner.ThresholdPercent)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "DOGEUSDT"}, cfg.Scanner.Pairs)
	assert.Equal(t, 30*time.Second, cfg.Scanner.Interval.Duration)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, "hunter2", cfg.Server.APIKey)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "backtest" }},
		{"empty pairs", func(c *Config) { c.Scanner.Pairs = nil }},
		{"blank pair", func(c *Config) { c.Scanner.Pairs = []string{"BTCUSDT", " "} }},
		{"zero threshold", func(c *Config) { c.Scanner.ThresholdPercent = 0 }},
		{"zero interval", func(c *Config) { c.Scanner.Interval.Duration = 0 }},
		{"negative cooldown", func(c *Config) { c.Scanner.Cooldown.Duration = -time.Second }},
		{"zero rate limit", func(c *Config) { c.RateLimit.MaxRequests = 0 }},
		{"postgres without host", func(c *Config) {
			c.Postgres.Enabled = true
			c.Postgres.Host = ""
			c.Postgres.DSN = ""
		}},
		{"archive without postgres", func(c *Config) { c.Archive.Enabled = true }},
		{"archive without bucket", func(c *Config) {
			c.Postgres.Enabled = true
			c.Archive.Enabled = true
			c.Archive.Bucket = ""
		}},
		{"bale token without chat id", func(c *Config) { c.Notify.BaleToken = "tok" }},
		{"telegram chat id without token", func(c *Config) { c.Notify.TelegramChatID = "chat" }},
		{"server port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationTOMLRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
