package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

type stubSource struct {
	name string

	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) LatestPrice(_ context.Context, symbol string) (domain.PriceQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return domain.PriceQuote{}, s.err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%s: %s: %w", s.name, symbol, domain.ErrNotFound)
	}
	return domain.PriceQuote{
		Exchange:  s.name,
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type recordingSender struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(_ context.Context, _, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingSender) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type memOppStore struct {
	mu   sync.Mutex
	opps []domain.Opportunity
}

func (m *memOppStore) Insert(_ context.Context, opp domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opps = append(m.opps, opp)
	return nil
}

func (m *memOppStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Opportunity(nil), m.opps...), nil
}

func (m *memOppStore) ListBySymbol(context.Context, string, int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *memOppStore) ListBefore(context.Context, time.Time) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *memOppStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *memOppStore) all() []domain.Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Opportunity(nil), m.opps...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	scanner *Scanner
	nobitex *stubSource
	wallex  *stubSource
	sender  *recordingSender
	store   *memOppStore
	clock   time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		nobitex: &stubSource{name: "nobitex", prices: map[string]float64{}},
		wallex:  &stubSource{name: "wallex", prices: map[string]float64{}},
		sender:  &recordingSender{},
		store:   &memOppStore{},
		clock:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	notifier := notify.NewNotifier([]notify.Sender{f.sender}, nil, testLogger())
	f.scanner = New(cfg, f.nobitex, f.wallex, notifier, testLogger())
	f.scanner.SetOpportunityStore(f.store)
	f.scanner.now = func() time.Time { return f.clock }
	return f
}

func defaultConfig() Config {
	return Config{
		Pairs:            []string{"BTCUSDT"},
		ThresholdPercent: 1.0,
		Interval:         5 * time.Second,
		Cooldown:         5 * time.Minute,
	}
}

func TestScannerDetectsAndNotifies(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 102

	f.scanner.scanTick(context.Background())

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.ScanCount)
	assert.Equal(t, int64(1), stats.OpportunitiesFound)
	assert.Equal(t, int64(1), stats.NotificationsSent)

	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Buy on NOBITEX at 100.00")
	assert.Contains(t, sent[0], "Sell on WALLEX at 102.00")
	assert.Contains(t, sent[0], "Spread: 2.00%")

	opps := f.store.all()
	require.Len(t, opps, 1)
	assert.Equal(t, "nobitex", opps[0].BuyExchange)
	assert.Equal(t, "wallex", opps[0].SellExchange)
	assert.True(t, opps[0].Notified)
}

func TestScannerBelowThreshold(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 100.5

	f.scanner.scanTick(context.Background())

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.ScanCount)
	assert.Zero(t, stats.OpportunitiesFound)
	assert.Empty(t, f.sender.sent())
	assert.Empty(t, f.store.all())
}

func TestScannerCooldownSuppressesRepeats(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 102

	ctx := context.Background()

	f.scanner.scanTick(ctx)
	f.clock = f.clock.Add(5 * time.Second)
	f.scanner.scanTick(ctx)

	stats := f.scanner.Stats()
	assert.Equal(t, int64(2), stats.OpportunitiesFound, "detection keeps counting")
	assert.Equal(t, int64(1), stats.NotificationsSent, "second alert suppressed")
	require.Len(t, f.store.all(), 2)
	assert.False(t, f.store.all()[1].Notified)

	f.clock = f.clock.Add(5 * time.Minute)
	f.scanner.scanTick(ctx)

	assert.Equal(t, int64(2), f.scanner.Stats().NotificationsSent, "alert allowed after cooldown")
	assert.Len(t, f.sender.sent(), 2)
}

func TestScannerSkipsPairOnFetchFailure(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.setErr(errors.New("wallex: request failed: connection refused"))

	f.scanner.scanTick(context.Background())

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.ScanCount, "scan still counted")
	assert.Equal(t, int64(1), stats.TransientErrors)
	assert.Zero(t, stats.OpportunitiesFound)
	assert.Empty(t, f.store.all())
}

func TestScannerCountsRateLimitedSeparately(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.setErr(fmt.Errorf("wallex: %w", domain.ErrRateLimited))

	f.scanner.scanTick(context.Background())

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.RateLimited)
	assert.Zero(t, stats.TransientErrors)
}

func TestScannerRetriesAfterFailedDispatch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 102
	f.sender.setErr(errors.New("bale: status 502"))

	ctx := context.Background()
	f.scanner.scanTick(ctx)

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.OpportunitiesFound)
	assert.Zero(t, stats.NotificationsSent)
	require.Len(t, f.store.all(), 1)
	assert.False(t, f.store.all()[0].Notified, "failed dispatch is not marked notified")

	// The failed dispatch did not touch the cooldown ledger, so the next
	// detection retries immediately.
	f.sender.setErr(nil)
	f.clock = f.clock.Add(5 * time.Second)
	f.scanner.scanTick(ctx)

	assert.Equal(t, int64(1), f.scanner.Stats().NotificationsSent)
	assert.Len(t, f.sender.sent(), 1)
}

func TestScannerMultiplePairsConcurrently(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pairs = []string{"BTCUSDT", "ETHUSDT", "DOGEUSDT"}
	cfg.MaxConcurrentPairs = 3

	f := newFixture(t, cfg)
	f.nobitex.prices = map[string]float64{"BTCUSDT": 100, "ETHUSDT": 50, "DOGEUSDT": 1}
	f.wallex.prices = map[string]float64{"BTCUSDT": 102, "ETHUSDT": 50.1, "DOGEUSDT": 1.05}

	f.scanner.scanTick(context.Background())

	stats := f.scanner.Stats()
	assert.Equal(t, int64(1), stats.ScanCount)
	assert.Equal(t, int64(2), stats.OpportunitiesFound, "BTC at 2% and DOGE at 5%; ETH at 0.2% stays below")
}

func TestScannerRunStopsOnCancel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Interval = 10 * time.Millisecond

	f := newFixture(t, cfg)
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 100.1
	f.scanner.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scanner.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.scanner.Stats().ScanCount >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, domain.ScanStateStopped, f.scanner.Stats().State)
}

func TestScannerPublishesMetrics(t *testing.T) {
	f := newFixture(t, defaultConfig())
	m := metrics.New(time.Now())
	f.scanner.SetMetrics(m)
	f.nobitex.prices["BTCUSDT"] = 100
	f.wallex.prices["BTCUSDT"] = 102

	f.scanner.scanTick(context.Background())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `arbwatch_scans_total 1`)
	assert.Contains(t, body, `arbwatch_exchange_requests_total{exchange="nobitex",outcome="success"} 1`)
	assert.Contains(t, body, `arbwatch_exchange_requests_total{exchange="wallex",outcome="success"} 1`)
	assert.Contains(t, body, `arbwatch_price{exchange="nobitex",symbol="BTCUSDT"} 100`)
	assert.Contains(t, body, `arbwatch_price{exchange="wallex",symbol="BTCUSDT"} 102`)
	assert.Contains(t, body, `arbwatch_spread_percent{symbol="BTCUSDT"} 2`)
	assert.Contains(t, body, `arbwatch_opportunities_total{symbol="BTCUSDT"} 1`)
	assert.Contains(t, body, `arbwatch_notifications_total 1`)
}
