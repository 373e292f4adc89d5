package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/cache/redis"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/exchange"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/ratelimit"
	"github.com/alanyoungcy/arbwatch/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. It is constructed by Wire and torn down by the returned cleanup
// function. Optional dependencies (stores, cache, archiver) stay nil when
// their backend is disabled.
type Dependencies struct {
	// Exchange clients, already wrapped with the outbound rate limiter.
	Nobitex domain.PriceSource
	Wallex  domain.PriceSource

	// Stores (nil unless postgres is enabled).
	OppStore   domain.OpportunityStore
	PriceStore domain.PriceHistoryStore

	// Cache (nil unless redis is enabled).
	PriceCache domain.PriceCache

	// Cold storage (nil unless archive is enabled).
	BlobWriter domain.BlobWriter
	BlobLister domain.BlobLister
	Archiver   domain.Archiver

	// Limiter backs both the outbound exchange gate and the API middleware.
	Limiter domain.RateLimiter

	Notifier *notify.Notifier

	// Metrics is always wired; the exposition endpoint only exists in modes
	// that run the HTTP server.
	Metrics *metrics.Metrics
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	deps.Metrics = metrics.New(time.Now())

	// --- Outbound rate limiter and exchange clients ---
	deps.Limiter = ratelimit.New()

	nobitex := exchange.NewNobitexClient(cfg.Nobitex.BaseURL, cfg.Nobitex.RequestTimeout.Duration)
	wallex := exchange.NewWallexClient(cfg.Wallex.BaseURL, cfg.Wallex.RequestTimeout.Duration)
	deps.Nobitex = exchange.NewRateLimitedSource(nobitex, deps.Limiter, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window.Duration)
	deps.Wallex = exchange.NewRateLimitedSource(wallex, deps.Limiter, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window.Duration)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.OppStore = postgres.NewOpportunityStore(pool)
		deps.PriceStore = postgres.NewPriceStore(pool)
	}

	// --- Redis quote cache ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		// Quotes go stale after a few missed scan intervals.
		deps.PriceCache = redis.NewPriceCache(redisClient, 10*cfg.Scanner.Interval.Duration)
	}

	// --- S3-compatible cold storage ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobLister = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.OppStore, deps.PriceStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.BaleToken != "" && cfg.Notify.BaleChatID != "" {
		senders = append(senders, notify.NewBaleSender(cfg.Notify.BaleToken, cfg.Notify.BaleChatID))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
