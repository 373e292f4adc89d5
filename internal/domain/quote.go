// Package domain defines the core types and interfaces of the arbwatch
// service: price quotes, spread results, opportunities, and the store/cache
// contracts implemented by the adapters.
package domain

import "time"

// PriceQuote is a single top-of-book price observation for one symbol on one
// exchange. Quotes are created per fetch, used within the same scan tick, and
// never persisted in this form.
type PriceQuote struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the quote carries a usable price. Exchanges
// occasionally return empty trade lists or zero prices; such quotes must not
// enter spread computation.
func (q PriceQuote) Valid() bool {
	return q.Price > 0 && q.Exchange != "" && q.Symbol != ""
}

// SpreadResult is the directional price spread between the same symbol on two
// exchanges. BuyExchange is always the lower-priced side and the spread
// percentage is computed relative to that lower price.
type SpreadResult struct {
	Symbol       string
	BuyExchange  string
	SellExchange string
	BuyPrice     float64
	SellPrice    float64
	SpreadPct    float64
	Timestamp    time.Time
}

// Opportunity is a SpreadResult that met the configured threshold. The
// threshold comparison is boundary inclusive: a spread exactly equal to the
// threshold is an opportunity.
type Opportunity struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	BuyExchange  string  `json:"buy_exchange"`
	SellExchange string  `json:"sell_exchange"`
	BuyPrice     float64 `json:"buy_price"`
	SellPrice    float64 `json:"sell_price"`
	SpreadPct    float64 `json:"spread_pct"`
	// ProfitAmount is the absolute price difference for a single unit trade.
	ProfitAmount float64   `json:"profit_amount"`
	DetectedAt   time.Time `json:"detected_at"`
	// Notified records whether an alert was actually delivered for this
	// occurrence (cooldown or sender failure can leave it false).
	Notified bool `json:"notified"`
}
