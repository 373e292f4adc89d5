package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeOppStore struct {
	recent   []domain.Opportunity
	bySymbol map[string][]domain.Opportunity
}

func (f *fakeOppStore) Insert(context.Context, domain.Opportunity) error { return nil }

func (f *fakeOppStore) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	if limit > 0 && limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeOppStore) ListBySymbol(_ context.Context, symbol string, _ int) ([]domain.Opportunity, error) {
	return f.bySymbol[symbol], nil
}

func (f *fakeOppStore) ListBefore(context.Context, time.Time) ([]domain.Opportunity, error) {
	return nil, nil
}

func (f *fakeOppStore) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeCache struct {
	quotes map[string]domain.PriceQuote // keyed exchange+"/"+symbol
}

func (f *fakeCache) SetQuote(context.Context, domain.PriceQuote) error { return nil }

func (f *fakeCache) GetQuote(_ context.Context, exchange, symbol string) (domain.PriceQuote, error) {
	q, ok := f.quotes[exchange+"/"+symbol]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	return q, nil
}

type fakeStats struct{ snap domain.ScanStats }

func (f *fakeStats) Stats() domain.ScanStats { return f.snap }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestGetStatus(t *testing.T) {
	t.Run("with scanner stats", func(t *testing.T) {
		stats := &fakeStats{snap: domain.ScanStats{
			State:     domain.ScanStateSleeping,
			StartedAt: time.Now().Add(-time.Minute),
			ScanCount: 12,
		}}
		h := NewStatusHandler("full", stats)
		rec := httptest.NewRecorder()
		h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "full", body["mode"])
		require.Contains(t, body, "scanner")
		scanner := body["scanner"].(map[string]any)
		assert.Equal(t, float64(12), scanner["scan_count"])
	})

	t.Run("serve mode has no scanner block", func(t *testing.T) {
		h := NewStatusHandler("serve", nil)
		rec := httptest.NewRecorder()
		h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decodeBody(t, rec), "scanner")
	})
}

func TestListOpportunities(t *testing.T) {
	store := &fakeOppStore{
		recent: []domain.Opportunity{
			{ID: "a", Symbol: "BTCUSDT"},
			{ID: "b", Symbol: "ETHUSDT"},
		},
		bySymbol: map[string][]domain.Opportunity{
			"ETHUSDT": {{ID: "b", Symbol: "ETHUSDT"}},
		},
	}
	h := NewOpportunityHandler(store, testLogger())

	t.Run("recent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	})

	t.Run("filtered by symbol", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities?symbol=ETHUSDT", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("limit applies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities?limit=1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
	})

	t.Run("persistence disabled", func(t *testing.T) {
		h := NewOpportunityHandler(nil, testLogger())
		rec := httptest.NewRecorder()
		h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestListPrices(t *testing.T) {
	cache := &fakeCache{quotes: map[string]domain.PriceQuote{
		"nobitex/BTCUSDT": {Exchange: "nobitex", Symbol: "BTCUSDT", Price: 43100},
		"wallex/BTCUSDT":  {Exchange: "wallex", Symbol: "BTCUSDT", Price: 43950},
		"nobitex/ETHUSDT": {Exchange: "nobitex", Symbol: "ETHUSDT", Price: 2500},
	}}
	h := NewPricesHandler(cache, []string{"nobitex", "wallex"}, []string{"BTCUSDT", "ETHUSDT"}, testLogger())

	t.Run("all pairs, missing combinations omitted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(3), decodeBody(t, rec)["count"])
	})

	t.Run("filtered by symbol", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices?symbol=BTCUSDT", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	})

	t.Run("cache disabled", func(t *testing.T) {
		h := NewPricesHandler(nil, nil, nil, testLogger())
		rec := httptest.NewRecorder()
		h.ListPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type fakeArchiver struct {
	result domain.ArchiveResult
	gotCut time.Time
}

func (f *fakeArchiver) Archive(_ context.Context, before time.Time) (domain.ArchiveResult, error) {
	f.gotCut = before
	return f.result, nil
}

func TestTriggerArchive(t *testing.T) {
	arch := &fakeArchiver{result: domain.ArchiveResult{
		OpportunitiesWritten: 4,
		RowsDeleted:          9,
	}}
	h := NewArchiveHandler(arch, nil, 30*24*time.Hour, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerArchive(rec, httptest.NewRequest(http.MethodPost, "/api/archive/trigger", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(4), body["opportunities_written"])
	assert.Equal(t, float64(9), body["rows_deleted"])
	assert.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), arch.gotCut, time.Minute)
}

func TestArchiveDisabled(t *testing.T) {
	h := NewArchiveHandler(nil, nil, 0, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerArchive(rec, httptest.NewRequest(http.MethodPost, "/api/archive/trigger", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/archive", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
