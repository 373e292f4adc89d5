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

// WallexClient is the REST client for the Wallex exchange API.
type WallexClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWallexClient creates a Wallex REST client.
//
// baseURL is the API root, e.g. "https://api.wallex.ir".
func NewWallexClient(baseURL string, timeout time.Duration) *WallexClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WallexClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the exchange identifier.
func (c *WallexClient) Name() string { return "wallex" }

type wallexTrade struct {
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Timestamp string `json:"timestamp"`
}

type wallexTradesResponse struct {
	Success bool `json:"success"`
	Result  struct {
		LatestTrades []wallexTrade `json:"latestTrades"`
	} `json:"result"`
}

// LatestPrice returns the price of the most recent trade for symbol.
func (c *WallexClient) LatestPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/v1/trades?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("wallex: create request for %s: %w", symbol, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("wallex: fetch trades for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.PriceQuote{}, fmt.Errorf("wallex: unexpected status %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var parsed wallexTradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("wallex: decode trades for %s: %w", symbol, err)
	}
	if !parsed.Success {
		return domain.PriceQuote{}, fmt.Errorf("wallex: api reported failure for %s: %w", symbol, domain.ErrInvalidQuote)
	}
	if len(parsed.Result.LatestTrades) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("wallex: no trades for %s: %w", symbol, domain.ErrInvalidQuote)
	}

	price, err := strconv.ParseFloat(parsed.Result.LatestTrades[0].Price, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("wallex: parse price %q for %s: %w", parsed.Result.LatestTrades[0].Price, symbol, domain.ErrInvalidQuote)
	}
	if price <= 0 {
		return domain.PriceQuote{}, fmt.Errorf("wallex: non-positive price %v for %s: %w", price, symbol, domain.ErrInvalidQuote)
	}

	return domain.PriceQuote{
		Exchange:  c.Name(),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*WallexClient)(nil)
