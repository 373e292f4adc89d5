package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// StatsProvider exposes a snapshot of the detection-loop counters.
type StatsProvider interface {
	Stats() domain.ScanStats
}

// StatusHandler serves the service mode and scanner statistics.
type StatusHandler struct {
	mode  string
	stats StatsProvider
}

// NewStatusHandler creates a StatusHandler. stats may be nil when the service
// runs in serve mode without a scanner.
func NewStatusHandler(mode string, stats StatsProvider) *StatusHandler {
	return &StatusHandler{mode: mode, stats: stats}
}

// GetStatus responds with the current mode and, when a scanner is running,
// its statistics snapshot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"mode":      h.mode,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.stats != nil {
		snap := h.stats.Stats()
		body["scanner"] = snap
		body["uptime_seconds"] = int64(snap.Uptime(time.Now()).Seconds())
	}
	writeJSON(w, http.StatusOK, body)
}
