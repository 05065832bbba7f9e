package api

import (
	"log/slog"
	"net/http"

	"github.com/statwatch-io/statwatch/internal/adapter/api/handler"
	"github.com/statwatch-io/statwatch/internal/adapter/api/middleware"
	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/pkg/config"
)

// NewListenerRouter creates and configures the HTTP router for the capture
// service: frame submission plus liveness.
func NewListenerRouter(
	cfg *config.Config,
	logger *slog.Logger,
	capturer handler.FrameCapturer,
	m *metrics.ListenerMetrics,
) http.Handler {
	mux := http.NewServeMux()

	framesHandler := handler.NewFramesHandler(capturer, logger, cfg.MaxFrameSize, m)

	authMiddleware := middleware.Auth(cfg.APIKey, logger)

	mux.Handle("POST /frames", authMiddleware(framesHandler))

	mux.HandleFunc("GET /healthz", healthz)

	return mux
}

// NewArchiverRouter creates and configures the HTTP router for the archive
// service: record queries, grid resolution and the live event stream.
//
// The /events endpoint stays outside the API-key check: the browser
// EventSource API cannot set request headers.
func NewArchiverRouter(
	cfg *config.Config,
	logger *slog.Logger,
	archive domain.ArchiveRepository,
	broker *handler.SSEBroker,
) http.Handler {
	mux := http.NewServeMux()

	recordsHandler := handler.NewRecordsHandler(archive, logger)
	gridsHandler := handler.NewGridsHandler(cfg.StationGrid, logger)

	authMiddleware := middleware.Auth(cfg.APIKey, logger)

	mux.Handle("GET /records", authMiddleware(recordsHandler))
	mux.Handle("GET /grids/{locator}", authMiddleware(gridsHandler))
	mux.Handle("GET /events", broker)

	mux.HandleFunc("GET /healthz", healthz)

	return mux
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
