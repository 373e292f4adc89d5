package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/scanner"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
)

// ScanMode runs only the detection loop. The HTTP API is not started even
// when server.enabled is set.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)
	sc := a.buildScanner(deps)
	g.Go(func() error {
		return ignoreCancel(sc.Run(ctx))
	})
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs only the HTTP API over previously persisted data. No
// exchange requests are made.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)

	return g.Wait()
}

// FullMode runs the detection loop and the HTTP API together. This is the
// default mode.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	sc := a.buildScanner(deps)
	g.Go(func() error {
		return ignoreCancel(sc.Run(ctx))
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, sc)
	}
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// buildScanner assembles the detection loop from the wired dependencies.
func (a *App) buildScanner(deps *Dependencies) *scanner.Scanner {
	sc := scanner.New(scanner.Config{
		Pairs:              a.cfg.Scanner.Pairs,
		ThresholdPercent:   a.cfg.Scanner.ThresholdPercent,
		Interval:           a.cfg.Scanner.Interval.Duration,
		Cooldown:           a.cfg.Scanner.Cooldown.Duration,
		MaxConcurrentPairs: a.cfg.Scanner.MaxConcurrentPairs,
	}, deps.Nobitex, deps.Wallex, deps.Notifier, a.logger)

	if deps.OppStore != nil {
		sc.SetOpportunityStore(deps.OppStore)
	}
	if deps.PriceStore != nil && a.cfg.Scanner.StorePrices {
		sc.SetPriceHistoryStore(deps.PriceStore)
	}
	if deps.PriceCache != nil {
		sc.SetPriceCache(deps.PriceCache)
	}
	if deps.Metrics != nil {
		sc.SetMetrics(deps.Metrics)
	}
	return sc
}

// startHTTPServer adds the API server goroutines to the errgroup. stats may
// be nil when no scanner runs in this mode.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, stats handler.StatsProvider) {
	exchanges := []string{deps.Nobitex.Name(), deps.Wallex.Name()}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, stats),
		Opportunities: handler.NewOpportunityHandler(deps.OppStore, a.logger),
		Prices:        handler.NewPricesHandler(deps.PriceCache, exchanges, a.cfg.Scanner.Pairs, a.logger),
		Archive:       handler.NewArchiveHandler(deps.Archiver, deps.BlobLister, retention, a.logger),
	}
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
	}

	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		APIKey:       a.cfg.Server.APIKey,
		APIRateLimit: a.cfg.Server.APIRateLimit,
		Limiter:      deps.Limiter,
	}, handlers, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds a daily archival pass when cold storage is enabled.
// Manual runs remain available through POST /api/archive/trigger.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				if _, err := deps.Archiver.Archive(ctx, cutoff); err != nil {
					a.logger.ErrorContext(ctx, "scheduled archive failed",
						slog.String("error", err.Error()))
				}
			}
		}
	})
}

// ignoreCancel maps context cancellation to a clean exit so a graceful
// shutdown does not surface as an errgroup failure.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
