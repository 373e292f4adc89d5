package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// OpportunityHandler serves detected arbitrage opportunities from the store.
type OpportunityHandler struct {
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. store may be nil when
// persistence is disabled; requests then get a 503.
func NewOpportunityHandler(store domain.OpportunityStore, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "opportunity")),
	}
}

// ListOpportunities returns recent opportunities, optionally filtered by
// symbol.
// GET /api/opportunities?symbol=BTCUSDT&limit=50
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	limit := parseLimit(r, 50, 500)
	symbol := r.URL.Query().Get("symbol")

	var (
		opps []domain.Opportunity
		err  error
	)
	if symbol != "" {
		opps, err = h.store.ListBySymbol(r.Context(), symbol, limit)
	} else {
		opps, err = h.store.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
	})
}
