package scanner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

// statsLogEvery controls how often (in scans) the periodic statistics line is
// emitted.
const statsLogEvery = 10

// Config configures the Scanner.
type Config struct {
	// Pairs is the symbol universe scanned every tick.
	Pairs []string
	// ThresholdPercent is the inclusive opportunity threshold.
	ThresholdPercent float64
	// Interval is the sleep between scan ticks.
	Interval time.Duration
	// Cooldown is the minimum time between notifications for one symbol.
	Cooldown time.Duration
	// MaxConcurrentPairs bounds concurrent pair evaluation within a tick.
	// Values <= 1 scan sequentially.
	MaxConcurrentPairs int
}

// Scanner drives the detection loop: on each tick it fetches both exchanges'
// quotes for every configured pair, computes spreads, classifies
// opportunities, and dispatches cooldown-gated notifications. Optional
// stores and caches receive quotes and opportunities as side channels; their
// failures never stop the loop.
type Scanner struct {
	cfg      Config
	sourceA  domain.PriceSource
	sourceB  domain.PriceSource
	tracker  *CooldownTracker
	notifier *notify.Notifier
	logger   *slog.Logger

	// Optional collaborators; any of these may be nil.
	oppStore   domain.OpportunityStore
	priceStore domain.PriceHistoryStore
	priceCache domain.PriceCache
	metrics    *metrics.Metrics

	stats *stats
	now   func() time.Time
}

// New creates a Scanner over the two price sources.
func New(cfg Config, sourceA, sourceB domain.PriceSource, notifier *notify.Notifier, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:      cfg,
		sourceA:  sourceA,
		sourceB:  sourceB,
		tracker:  NewCooldownTracker(),
		notifier: notifier,
		logger:   logger.With(slog.String("component", "scanner")),
		stats:    newStats(),
		now:      time.Now,
	}
}

// SetOpportunityStore attaches persistence for detected opportunities.
func (s *Scanner) SetOpportunityStore(store domain.OpportunityStore) { s.oppStore = store }

// SetPriceHistoryStore attaches persistence for fetched quotes.
func (s *Scanner) SetPriceHistoryStore(store domain.PriceHistoryStore) { s.priceStore = store }

// SetPriceCache attaches the latest-quote cache.
func (s *Scanner) SetPriceCache(cache domain.PriceCache) { s.priceCache = cache }

// SetMetrics attaches Prometheus instrumentation.
func (s *Scanner) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Stats returns a snapshot of the detection-loop counters.
func (s *Scanner) Stats() domain.ScanStats {
	return s.stats.snapshot()
}

// Run executes the detection loop until ctx is cancelled. Cancellation is
// observed at tick boundaries: an in-flight scan completes, a best-effort
// shutdown notification is sent, final statistics are logged, and Run
// returns ctx.Err().
func (s *Scanner) Run(ctx context.Context) error {
	start := s.now()
	s.stats.markStarted(start)

	s.logger.InfoContext(ctx, "scanner starting",
		slog.Int("pairs", len(s.cfg.Pairs)),
		slog.Float64("threshold_pct", s.cfg.ThresholdPercent),
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("cooldown", s.cfg.Cooldown),
	)

	s.sendStartupNotification(ctx, start)

	// First scan runs immediately; the ticker paces the rest.
	s.scanTick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.stats.setState(domain.ScanStateSleeping)
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.scanTick(ctx)
		}
	}
}

// scanTick evaluates every configured pair once and updates statistics.
func (s *Scanner) scanTick(ctx context.Context) {
	s.stats.setState(domain.ScanStateScanning)

	g := new(errgroup.Group)
	limit := s.cfg.MaxConcurrentPairs
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, symbol := range s.cfg.Pairs {
		g.Go(func() error {
			s.scanPair(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	count := s.stats.recordScan(s.now())
	if s.metrics != nil {
		s.metrics.RecordScan()
	}
	if count%statsLogEvery == 0 {
		s.logPeriodicStats(ctx)
	}
}

// scanPair fetches both quotes for one symbol and runs them through spread
// computation, classification, and notification. Any fetch failure skips the
// pair for this tick; nothing here is fatal to the loop.
func (s *Scanner) scanPair(ctx context.Context, symbol string) {
	quoteA, okA := s.fetch(ctx, s.sourceA, symbol)
	quoteB, okB := s.fetch(ctx, s.sourceB, symbol)
	if !okA || !okB {
		return
	}

	sr, ok := ComputeSpread(quoteA, quoteB)
	if !ok {
		return
	}
	if s.metrics != nil {
		s.metrics.SetSpread(symbol, sr.SpreadPct)
	}

	opp, ok := Classify(sr, s.cfg.ThresholdPercent)
	if !ok {
		return
	}

	s.stats.addOpportunity()
	if s.metrics != nil {
		s.metrics.RecordOpportunity(symbol)
	}
	s.logger.InfoContext(ctx, "opportunity detected",
		slog.String("symbol", opp.Symbol),
		slog.String("buy_exchange", opp.BuyExchange),
		slog.String("sell_exchange", opp.SellExchange),
		slog.Float64("spread_pct", opp.SpreadPct),
	)

	opp.Notified = s.dispatchAlert(ctx, opp)

	if s.oppStore != nil {
		if err := s.oppStore.Insert(ctx, opp); err != nil {
			s.logger.WarnContext(ctx, "store opportunity failed",
				slog.String("symbol", opp.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}

// fetch retrieves one quote and feeds the side channels. It returns ok=false
// for any failure, after recording it in the statistics.
func (s *Scanner) fetch(ctx context.Context, source domain.PriceSource, symbol string) (domain.PriceQuote, bool) {
	started := s.now()
	quote, err := source.LatestPrice(ctx, symbol)
	elapsed := s.now().Sub(started)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.stats.addRateLimited()
			if s.metrics != nil {
				s.metrics.ObserveRequest(source.Name(), metrics.OutcomeRateLimited, elapsed)
			}
			s.logger.DebugContext(ctx, "fetch rate limited",
				slog.String("exchange", source.Name()),
				slog.String("symbol", symbol),
			)
		} else {
			s.stats.addTransientError()
			if s.metrics != nil {
				s.metrics.ObserveRequest(source.Name(), metrics.OutcomeError, elapsed)
			}
			s.logger.WarnContext(ctx, "fetch failed",
				slog.String("exchange", source.Name()),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
		return domain.PriceQuote{}, false
	}

	if s.metrics != nil {
		s.metrics.ObserveRequest(source.Name(), metrics.OutcomeSuccess, elapsed)
		s.metrics.SetPrice(quote.Exchange, quote.Symbol, quote.Price)
	}

	if s.priceCache != nil {
		if err := s.priceCache.SetQuote(ctx, quote); err != nil {
			s.logger.WarnContext(ctx, "cache quote failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.priceStore != nil {
		point := domain.PricePoint{
			Symbol:    quote.Symbol,
			Exchange:  quote.Exchange,
			Price:     quote.Price,
			Timestamp: quote.Timestamp,
		}
		if err := s.priceStore.Insert(ctx, point); err != nil {
			s.logger.WarnContext(ctx, "store price failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	return quote, true
}

// dispatchAlert sends the opportunity notification if the cooldown permits.
// The cooldown ledger is only updated after a successful dispatch, so a
// failed delivery may re-trigger on the next tick.
func (s *Scanner) dispatchAlert(ctx context.Context, opp domain.Opportunity) bool {
	if s.notifier == nil || !s.notifier.Configured() {
		return false
	}

	now := s.now()
	if !s.tracker.ShouldNotify(opp.Symbol, now, s.cfg.Cooldown) {
		s.logger.DebugContext(ctx, "notification suppressed by cooldown",
			slog.String("symbol", opp.Symbol),
		)
		return false
	}

	title, message := notify.FormatOpportunity(opp)
	if err := s.notifier.Notify(ctx, notify.EventOpportunity, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			slog.String("symbol", opp.Symbol),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.tracker.MarkNotified(opp.Symbol, now)
	s.stats.addNotification()
	if s.metrics != nil {
		s.metrics.RecordNotification()
	}
	return true
}

func (s *Scanner) sendStartupNotification(ctx context.Context, now time.Time) {
	if s.notifier == nil || !s.notifier.Configured() {
		return
	}
	title, message := notify.FormatStartup(len(s.cfg.Pairs), s.cfg.ThresholdPercent, s.cfg.Interval, now)
	if err := s.notifier.Notify(ctx, notify.EventStartup, title, message); err != nil {
		s.logger.Warn("startup notification failed", slog.String("error", err.Error()))
	}
}

// shutdown finishes the loop: best-effort shutdown notification and final
// statistics. The parent context is already cancelled at this point, so the
// notification gets its own short deadline.
func (s *Scanner) shutdown() {
	s.stats.setState(domain.ScanStateShuttingDown)

	final := s.stats.snapshot()
	now := s.now()

	if s.notifier != nil && s.notifier.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		title, message := notify.FormatShutdown(final, now)
		if err := s.notifier.Notify(ctx, notify.EventShutdown, title, message); err != nil {
			s.logger.Warn("shutdown notification failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("scanner stopped",
		slog.Duration("uptime", final.Uptime(now)),
		slog.Int64("scan_count", final.ScanCount),
		slog.Int64("opportunities_found", final.OpportunitiesFound),
		slog.Int64("notifications_sent", final.NotificationsSent),
		slog.Int64("transient_errors", final.TransientErrors),
	)

	s.stats.setState(domain.ScanStateStopped)
}

func (s *Scanner) logPeriodicStats(ctx context.Context) {
	snap := s.stats.snapshot()
	s.logger.InfoContext(ctx, "scan statistics",
		slog.Duration("uptime", snap.Uptime(s.now())),
		slog.Int64("scan_count", snap.ScanCount),
		slog.Int64("opportunities_found", snap.OpportunitiesFound),
		slog.Int64("transient_errors", snap.TransientErrors),
		slog.Int64("rate_limited", snap.RateLimited),
	)
}
