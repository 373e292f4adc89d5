package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsExposition(t *testing.T) {
	m := New(time.Now().Add(-time.Minute))
	m.ObserveRequest("nobitex", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveRequest("wallex", OutcomeError, 2*time.Second)
	m.SetPrice("nobitex", "BTCUSDT", 43100)
	m.SetSpread("BTCUSDT", 1.97)
	m.RecordOpportunity("BTCUSDT")
	m.RecordNotification()
	m.RecordScan()

	body := scrape(t, m)
	assert.Contains(t, body, `arbwatch_exchange_requests_total{exchange="nobitex",outcome="success"} 1`)
	assert.Contains(t, body, `arbwatch_exchange_requests_total{exchange="wallex",outcome="error"} 1`)
	assert.Contains(t, body, `arbwatch_exchange_response_seconds_count{exchange="nobitex"} 1`)
	assert.Contains(t, body, `arbwatch_price{exchange="nobitex",symbol="BTCUSDT"} 43100`)
	assert.Contains(t, body, `arbwatch_spread_percent{symbol="BTCUSDT"} 1.97`)
	assert.Contains(t, body, `arbwatch_opportunities_total{symbol="BTCUSDT"} 1`)
	assert.Contains(t, body, `arbwatch_notifications_total 1`)
	assert.Contains(t, body, `arbwatch_scans_total 1`)
	assert.Contains(t, body, "arbwatch_uptime_seconds")
}

func TestRateLimitedFetchSkipsLatency(t *testing.T) {
	m := New(time.Now())
	m.ObserveRequest("nobitex", OutcomeRateLimited, 0)

	body := scrape(t, m)
	assert.Contains(t, body, `arbwatch_exchange_requests_total{exchange="nobitex",outcome="rate_limited"} 1`)
	assert.NotContains(t, body, `arbwatch_exchange_response_seconds_count{exchange="nobitex"}`)
}

func TestInstancesDoNotShareRegistries(t *testing.T) {
	a := New(time.Now())
	b := New(time.Now())
	a.RecordScan()

	assert.Contains(t, scrape(t, a), `arbwatch_scans_total 1`)
	assert.Contains(t, scrape(t, b), `arbwatch_scans_total 0`)
}
