// Package scanner implements the arbitrage detection core: spread
// computation, opportunity classification, notification cooldown, and the
// periodic scan loop that drives them.
package scanner

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ComputeSpread computes the directional spread between two quotes for the
// same symbol from different exchanges. The buy side is the lower-priced
// exchange and the spread percentage is relative to that lower price, so the
// result is symmetric under swapping the argument order. It returns ok=false
// when either quote is invalid or the quotes do not describe the same symbol.
func ComputeSpread(a, b domain.PriceQuote) (domain.SpreadResult, bool) {
	if !a.Valid() || !b.Valid() || a.Symbol != b.Symbol || a.Exchange == b.Exchange {
		return domain.SpreadResult{}, false
	}

	buy, sell := a, b
	if b.Price < a.Price {
		buy, sell = b, a
	}

	ts := a.Timestamp
	if b.Timestamp.After(ts) {
		ts = b.Timestamp
	}

	return domain.SpreadResult{
		Symbol:       a.Symbol,
		BuyExchange:  buy.Exchange,
		SellExchange: sell.Exchange,
		BuyPrice:     buy.Price,
		SellPrice:    sell.Price,
		SpreadPct:    (sell.Price - buy.Price) / buy.Price * 100,
		Timestamp:    ts,
	}, true
}

// Classify applies the opportunity threshold to a spread result. The
// comparison is boundary inclusive: a spread exactly equal to the threshold
// is an opportunity. Classify has no side effects.
func Classify(sr domain.SpreadResult, thresholdPct float64) (domain.Opportunity, bool) {
	if sr.SpreadPct < thresholdPct {
		return domain.Opportunity{}, false
	}

	detectedAt := sr.Timestamp
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	return domain.Opportunity{
		ID:           uuid.Must(uuid.NewRandom()).String(),
		Symbol:       sr.Symbol,
		BuyExchange:  sr.BuyExchange,
		SellExchange: sr.SellExchange,
		BuyPrice:     sr.BuyPrice,
		SellPrice:    sr.SellPrice,
		SpreadPct:    sr.SpreadPct,
		ProfitAmount: sr.SellPrice - sr.BuyPrice,
		DetectedAt:   detectedAt,
	}, true
}
