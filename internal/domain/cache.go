package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest observed quote per exchange and symbol so the
// HTTP API can serve current prices without touching the exchanges.
type PriceCache interface {
	SetQuote(ctx context.Context, quote PriceQuote) error
	// GetQuote returns ErrNotFound when no quote has been cached yet.
	GetQuote(ctx context.Context, exchange, symbol string) (PriceQuote, error)
}

// RateLimiter is a non-blocking request gate. Allow reports whether a request
// under the given key is permitted within the window; a denied request does
// not consume a slot. Callers decide how to react to denial.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PriceSource is the uniform fetch capability each exchange client provides.
// Implementations return ErrRateLimited when the outbound limiter denies the
// request, ErrInvalidQuote for non-positive or missing prices, and wrapped
// transport errors otherwise.
type PriceSource interface {
	Name() string
	LatestPrice(ctx context.Context, symbol string) (PriceQuote, error)
}
