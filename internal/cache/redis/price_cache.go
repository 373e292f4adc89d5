package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each quote is
// stored as a hash at key "quote:{exchange}:{symbol}" with fields "price" and
// "ts" (Unix nanosecond timestamp). Entries expire after the TTL so the API
// never serves quotes from a scanner that stopped running.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.PriceCache = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache backed by the given Client. A ttl of zero
// keeps entries forever.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(exchange, symbol string) string {
	return "quote:" + exchange + ":" + symbol
}

// SetQuote stores the latest quote for its exchange and symbol.
func (pc *PriceCache) SetQuote(ctx context.Context, quote domain.PriceQuote) error {
	key := quoteKey(quote.Exchange, quote.Symbol)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(quote.Price, 'f', -1, 64),
		"ts":    strconv.FormatInt(quote.Timestamp.UnixNano(), 10),
	}

	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s/%s: %w", quote.Exchange, quote.Symbol, err)
	}
	return nil
}

// GetQuote retrieves the latest quote for an exchange and symbol. It returns
// domain.ErrNotFound when no quote has been cached or the entry expired.
func (pc *PriceCache) GetQuote(ctx context.Context, exchange, symbol string) (domain.PriceQuote, error) {
	key := quoteKey(exchange, symbol)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote %s/%s: %w", exchange, symbol, err)
	}
	if len(vals) == 0 {
		return domain.PriceQuote{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote price %s/%s: %w", exchange, symbol, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote ts %s/%s: %w", exchange, symbol, err)
	}

	return domain.PriceQuote{
		Exchange:  exchange,
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Unix(0, tsNano).UTC(),
	}, nil
}
