package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PricesHandler serves the latest cached quotes per exchange and symbol.
type PricesHandler struct {
	cache     domain.PriceCache
	exchanges []string
	pairs     []string
	logger    *slog.Logger
}

// NewPricesHandler creates a PricesHandler over the quote cache. cache may be
// nil when caching is disabled; requests then get a 503.
func NewPricesHandler(cache domain.PriceCache, exchanges, pairs []string, logger *slog.Logger) *PricesHandler {
	return &PricesHandler{
		cache:     cache,
		exchanges: exchanges,
		pairs:     pairs,
		logger:    logger.With(slog.String("handler", "prices")),
	}
}

// ListPrices returns the latest cached quote for every exchange/symbol
// combination, optionally filtered by symbol. Combinations with no cached
// quote are omitted.
// GET /api/prices?symbol=BTCUSDT
func (h *PricesHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "quote cache is disabled")
		return
	}

	pairs := h.pairs
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		pairs = []string{symbol}
	}

	quotes := []domain.PriceQuote{}
	for _, symbol := range pairs {
		for _, exchange := range h.exchanges {
			quote, err := h.cache.GetQuote(r.Context(), exchange, symbol)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				h.logger.ErrorContext(r.Context(), "get quote failed",
					slog.String("exchange", exchange),
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusInternalServerError, "failed to read quotes")
				return
			}
			quotes = append(quotes, quote)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prices": quotes,
		"count":  len(quotes),
	})
}
