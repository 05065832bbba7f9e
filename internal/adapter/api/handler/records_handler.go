package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/statwatch-io/statwatch/internal/domain"
)

const maxRecordsLimit = 500

// knownKinds lists the kind values a records query may filter on. The
// forwarded and compact report kinds are accepted as aliases that select
// the same status-report table.
var knownKinds = map[domain.VariantKind]struct{}{
	domain.KindStatusReport:    {},
	domain.KindForwardedReport: {},
	domain.KindCompactReport8:  {},
	domain.KindCompactReport9:  {},
	domain.KindAlert:           {},
	domain.KindBulletin:        {},
	domain.KindPlainMessage:    {},
}

// RecordsHandler serves archived records.
// GET /records?kind={kind}&group={group}&callsign={callsign}&limit={limit}
type RecordsHandler struct {
	archive domain.ArchiveRepository
	logger  *slog.Logger
}

// NewRecordsHandler creates a new RecordsHandler.
func NewRecordsHandler(archive domain.ArchiveRepository, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{archive: archive, logger: logger}
}

func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter := domain.RecordFilter{
		Group:    r.URL.Query().Get("group"),
		Callsign: r.URL.Query().Get("callsign"),
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		if _, ok := knownKinds[domain.VariantKind(kind)]; !ok {
			http.Error(w, "unknown kind: "+kind, http.StatusBadRequest)
			return
		}
		filter.Kind = domain.VariantKind(kind)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		if limit > maxRecordsLimit {
			limit = maxRecordsLimit
		}
		filter.Limit = limit
	}

	entries, err := h.archive.Recent(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query archive", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.ArchiveEntry{}
	}

	respondWithJSON(w, h.logger, http.StatusOK, entries)
}
