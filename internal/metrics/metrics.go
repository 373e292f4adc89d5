// Package metrics exposes the service's Prometheus instrumentation: exchange
// request outcomes and latencies, the latest price and spread per symbol, and
// the scan loop counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arbwatch"

// Request outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Metrics owns its own registry so multiple instances (tests, mainly) never
// collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	exchangeRequests *prometheus.CounterVec
	exchangeLatency  *prometheus.HistogramVec
	price            *prometheus.GaugeVec
	spread           *prometheus.GaugeVec
	opportunities    *prometheus.CounterVec
	notifications    prometheus.Counter
	scans            prometheus.Counter
}

// New creates and registers the full metric set. start feeds the uptime
// gauge.
func New(start time.Time) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchangeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_requests_total",
			Help:      "Price fetches per exchange and outcome.",
		}, []string{"exchange", "outcome"}),
		exchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_response_seconds",
			Help:      "Exchange request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"exchange"}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price",
			Help:      "Latest fetched price per exchange and symbol.",
		}, []string{"exchange", "symbol"}),
		spread: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spread_percent",
			Help:      "Latest cross-exchange spread per symbol.",
		}, []string{"symbol"}),
		opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Detected arbitrage opportunities per symbol.",
		}, []string{"symbol"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Successfully dispatched opportunity alerts.",
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scan cycles.",
		}),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the service started.",
	}, func() float64 {
		return time.Since(start).Seconds()
	})

	m.registry.MustRegister(
		m.exchangeRequests, m.exchangeLatency,
		m.price, m.spread,
		m.opportunities, m.notifications, m.scans,
		uptime,
	)
	return m
}

// ObserveRequest records one price fetch. Latency is only observed for
// requests that actually went out, so rate-limited fetches count but do not
// skew the histogram.
func (m *Metrics) ObserveRequest(exchange, outcome string, elapsed time.Duration) {
	m.exchangeRequests.WithLabelValues(exchange, outcome).Inc()
	if outcome != OutcomeRateLimited {
		m.exchangeLatency.WithLabelValues(exchange).Observe(elapsed.Seconds())
	}
}

// SetPrice publishes the latest fetched price.
func (m *Metrics) SetPrice(exchange, symbol string, price float64) {
	m.price.WithLabelValues(exchange, symbol).Set(price)
}

// SetSpread publishes the latest computed spread for a symbol.
func (m *Metrics) SetSpread(symbol string, pct float64) {
	m.spread.WithLabelValues(symbol).Set(pct)
}

// RecordOpportunity counts a detected opportunity.
func (m *Metrics) RecordOpportunity(symbol string) {
	m.opportunities.WithLabelValues(symbol).Inc()
}

// RecordNotification counts a successfully dispatched alert.
func (m *Metrics) RecordNotification() {
	m.notifications.Inc()
}

// RecordScan counts a completed scan cycle.
func (m *Metrics) RecordScan() {
	m.scans.Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
