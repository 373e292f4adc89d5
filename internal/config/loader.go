package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchanges ──
	setStr(&cfg.Nobitex.BaseURL, "ARBWATCH_NOBITEX_BASE_URL")
	setDuration(&cfg.Nobitex.RequestTimeout, "ARBWATCH_NOBITEX_REQUEST_TIMEOUT")
	setStr(&cfg.Wallex.BaseURL, "ARBWATCH_WALLEX_BASE_URL")
	setDuration(&cfg.Wallex.RequestTimeout, "ARBWATCH_WALLEX_REQUEST_TIMEOUT")

	// ── Scanner ──
	setStringSlice(&cfg.Scanner.Pairs, "ARBWATCH_SCANNER_PAIRS")
	setFloat64(&cfg.Scanner.ThresholdPercent, "ARBWATCH_SCANNER_THRESHOLD_PERCENT")
	setDuration(&cfg.Scanner.Interval, "ARBWATCH_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.Cooldown, "ARBWATCH_SCANNER_COOLDOWN")
	setInt(&cfg.Scanner.MaxConcurrentPairs, "ARBWATCH_SCANNER_MAX_CONCURRENT_PAIRS")
	setBool(&cfg.Scanner.StorePrices, "ARBWATCH_SCANNER_STORE_PRICES")

	// ── Rate limit ──
	setInt(&cfg.RateLimit.MaxRequests, "ARBWATCH_RATE_LIMIT_MAX_REQUESTS")
	setDuration(&cfg.RateLimit.Window, "ARBWATCH_RATE_LIMIT_WINDOW")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBWATCH_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ARBWATCH_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "ARBWATCH_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "ARBWATCH_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "ARBWATCH_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "ARBWATCH_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "ARBWATCH_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "ARBWATCH_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "ARBWATCH_ARCHIVE_FORCE_PATH_STYLE")
	setInt(&cfg.Archive.RetentionDays, "ARBWATCH_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBWATCH_SERVER_API_KEY")
	setInt(&cfg.Server.APIRateLimit, "ARBWATCH_SERVER_API_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.BaleToken, "ARBWATCH_NOTIFY_BALE_TOKEN")
	setStr(&cfg.Notify.BaleChatID, "ARBWATCH_NOTIFY_BALE_CHAT_ID")
	setStr(&cfg.Notify.TelegramToken, "ARBWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBWATCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBWATCH_MODE")
	setStr(&cfg.LogLevel, "ARBWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
