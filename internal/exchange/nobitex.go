// Package exchange implements REST clients for the Nobitex and Wallex
// exchanges and the rate-limited price source adapter the scanner consumes.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// NobitexClient is the REST client for the Nobitex exchange API.
type NobitexClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNobitexClient creates a Nobitex REST client.
//
// baseURL is the API root, e.g. "https://apiv2.nobitex.ir".
func NewNobitexClient(baseURL string, timeout time.Duration) *NobitexClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NobitexClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the exchange identifier.
func (c *NobitexClient) Name() string { return "nobitex" }

type nobitexTrade struct {
	Price string `json:"price"`
	Time  int64  `json:"time"`
}

type nobitexTradesResponse struct {
	Status string         `json:"status"`
	Trades []nobitexTrade `json:"trades"`
}

// LatestPrice returns the price of the most recent trade for symbol.
func (c *NobitexClient) LatestPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/v2/trades/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: create request for %s: %w", symbol, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: fetch trades for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.PriceQuote{}, fmt.Errorf("nobitex: unexpected status %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var parsed nobitexTradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: decode trades for %s: %w", symbol, err)
	}
	if parsed.Status != "ok" {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: api status %q for %s: %w", parsed.Status, symbol, domain.ErrInvalidQuote)
	}
	if len(parsed.Trades) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: no trades for %s: %w", symbol, domain.ErrInvalidQuote)
	}

	// The first entry is the most recent trade.
	price, err := strconv.ParseFloat(parsed.Trades[0].Price, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: parse price %q for %s: %w", parsed.Trades[0].Price, symbol, domain.ErrInvalidQuote)
	}
	if price <= 0 {
		return domain.PriceQuote{}, fmt.Errorf("nobitex: non-positive price %v for %s: %w", price, symbol, domain.ErrInvalidQuote)
	}

	return domain.PriceQuote{
		Exchange:  c.Name(),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*NobitexClient)(nil)
