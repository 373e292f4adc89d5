// Package config defines the top-level configuration for the arbwatch
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Nobitex   ExchangeConfig  `toml:"nobitex"`
	Wallex    ExchangeConfig  `toml:"wallex"`
	Scanner   ScannerConfig   `toml:"scanner"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ExchangeConfig holds the REST endpoint for one exchange.
type ExchangeConfig struct {
	BaseURL string `toml:"base_url"`
	// RequestTimeout bounds a single HTTP request to the exchange.
	RequestTimeout duration `toml:"request_timeout"`
}

// ScannerConfig holds the detection loop parameters.
type ScannerConfig struct {
	// Pairs is the list of symbols scanned each tick, valid on both exchanges.
	Pairs []string `toml:"pairs"`
	// ThresholdPercent is the minimum spread percentage that counts as an
	// opportunity. The comparison is inclusive.
	ThresholdPercent float64 `toml:"threshold_percent"`
	// Interval is the sleep between scan ticks.
	Interval duration `toml:"interval"`
	// Cooldown is the minimum time between two notifications for the same
	// symbol.
	Cooldown duration `toml:"cooldown"`
	// MaxConcurrentPairs bounds concurrent pair evaluation within a tick.
	// Values <= 1 mean sequential scanning.
	MaxConcurrentPairs int `toml:"max_concurrent_pairs"`
	// StorePrices enables persisting every successful fetch to the price
	// history table (requires postgres).
	StorePrices bool `toml:"store_prices"`
}

// RateLimitConfig holds the per-exchange outbound request limit.
type RateLimitConfig struct {
	MaxRequests int      `toml:"max_requests"`
	Window      duration `toml:"window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible cold-storage parameters for archiving old
// opportunity and price rows.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// RetentionDays is how long rows stay in Postgres before an archive run
	// moves them to cold storage.
	RetentionDays int `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the API when set; empty disables authentication.
	APIKey string `toml:"api_key"`
	// APIRateLimit is the per-client request budget per minute. Zero disables
	// API rate limiting.
	APIRateLimit int `toml:"api_rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	BaleToken         string   `toml:"bale_token"`
	BaleChatID        string   `toml:"bale_chat_id"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Nobitex: ExchangeConfig{
			BaseURL:        "https://apiv2.nobitex.ir",
			RequestTimeout: duration{10 * time.Second},
		},
		Wallex: ExchangeConfig{
			BaseURL:        "https://api.wallex.ir",
			RequestTimeout: duration{10 * time.Second},
		},
		Scanner: ScannerConfig{
			Pairs: []string{
				"BTCUSDT", "ETHUSDT", "LTCUSDT", "XRPUSDT", "BCHUSDT",
				"BNBUSDT", "XLMUSDT", "ETCUSDT", "TRXUSDT", "DOGEUSDT",
				"UNIUSDT", "DAIUSDT", "LINKUSDT", "DOTUSDT", "AAVEUSDT",
			},
			ThresholdPercent:   1.0,
			Interval:           duration{5 * time.Second},
			Cooldown:           duration{5 * time.Minute},
			MaxConcurrentPairs: 1,
			StorePrices:        true,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 60,
			Window:      duration{60 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbwatch-archive",
			ForcePathStyle: true,
			RetentionDays:  30,
		},
		Server: ServerConfig{
			Enabled:      true,
			Port:         8080,
			APIRateLimit: 120,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Validate checks that the configuration is internally consistent. Fatal
// configuration problems are detected here, before the detection loop starts.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "scan", "serve", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q (expected scan, serve, or full)", c.Mode)
	}

	if c.Nobitex.BaseURL == "" {
		return fmt.Errorf("config: nobitex.base_url is required")
	}
	if c.Wallex.BaseURL == "" {
		return fmt.Errorf("config: wallex.base_url is required")
	}

	if len(c.Scanner.Pairs) == 0 {
		return fmt.Errorf("config: scanner.pairs must not be empty")
	}
	for _, p := range c.Scanner.Pairs {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("config: scanner.pairs contains an empty symbol")
		}
	}
	if c.Scanner.ThresholdPercent <= 0 {
		return fmt.Errorf("config: scanner.threshold_percent must be positive, got %v", c.Scanner.ThresholdPercent)
	}
	if c.Scanner.Interval.Duration <= 0 {
		return fmt.Errorf("config: scanner.interval must be positive, got %v", c.Scanner.Interval.Duration)
	}
	if c.Scanner.Cooldown.Duration < 0 {
		return fmt.Errorf("config: scanner.cooldown must not be negative, got %v", c.Scanner.Cooldown.Duration)
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("config: rate_limit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("config: rate_limit.window must be positive, got %v", c.RateLimit.Window.Duration)
	}

	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres enabled but neither dsn nor host is set")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis enabled but addr is not set")
	}
	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			return fmt.Errorf("config: archive requires postgres to be enabled")
		}
		if c.Archive.Bucket == "" {
			return fmt.Errorf("config: archive.bucket is required")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive.retention_days must be positive, got %d", c.Archive.RetentionDays)
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port %d is out of range", c.Server.Port)
	}

	if (c.Notify.BaleToken == "") != (c.Notify.BaleChatID == "") {
		return fmt.Errorf("config: notify.bale_token and notify.bale_chat_id must be set together")
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		return fmt.Errorf("config: notify.telegram_token and notify.telegram_chat_id must be set together")
	}

	return nil
}
