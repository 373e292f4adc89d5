package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ArchiveHandler triggers archival runs and lists existing archive objects.
type ArchiveHandler struct {
	archiver  domain.Archiver
	lister    domain.BlobLister
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. archiver and lister may be nil
// when cold storage is disabled; requests then get a 503.
func NewArchiveHandler(archiver domain.Archiver, lister domain.BlobLister, retention time.Duration, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiver:  archiver,
		lister:    lister,
		retention: retention,
		logger:    logger.With(slog.String("handler", "archive")),
	}
}

// TriggerArchive runs an archival pass for all rows older than the retention
// window and responds with the run summary.
// POST /api/archive/trigger
func (h *ArchiveHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "archival is disabled")
		return
	}

	cutoff := time.Now().UTC().Add(-h.retention)
	result, err := h.archiver.Archive(r.Context(), cutoff)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive run failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "archive run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListArchives returns metadata for the stored archive objects.
// GET /api/archive
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeError(w, http.StatusServiceUnavailable, "archival is disabled")
		return
	}

	infos, err := h.lister.List(r.Context(), "archive/")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archives": infos,
		"count":    len(infos),
	})
}
