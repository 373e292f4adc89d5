package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// RateLimitedSource wraps a PriceSource with an outbound request gate. The
// limiter is consulted before the underlying HTTP request is issued; a denial
// surfaces as domain.ErrRateLimited without touching the network.
type RateLimitedSource struct {
	source  domain.PriceSource
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
}

// NewRateLimitedSource wraps source with the given limiter parameters.
func NewRateLimitedSource(source domain.PriceSource, limiter domain.RateLimiter, limit int, window time.Duration) *RateLimitedSource {
	return &RateLimitedSource{
		source:  source,
		limiter: limiter,
		limit:   limit,
		window:  window,
	}
}

// Name returns the wrapped exchange identifier.
func (s *RateLimitedSource) Name() string { return s.source.Name() }

// LatestPrice checks the rate limiter and delegates to the wrapped source.
func (s *RateLimitedSource) LatestPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	allowed, err := s.limiter.Allow(ctx, s.source.Name(), s.limit, s.window)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%s: rate limiter: %w", s.source.Name(), err)
	}
	if !allowed {
		return domain.PriceQuote{}, fmt.Errorf("%s: fetch %s: %w", s.source.Name(), symbol, domain.ErrRateLimited)
	}
	return s.source.LatestPrice(ctx, symbol)
}

// Compile-time interface check.
var _ domain.PriceSource = (*RateLimitedSource)(nil)
