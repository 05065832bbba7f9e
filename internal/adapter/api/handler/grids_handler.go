package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/statwatch-io/statwatch/internal/grid"
)

// gridResponse is the projection of one Maidenhead locator. MGRS and UTM
// are omitted where the projection is undefined (polar latitudes), and
// DistanceKM is present only when the station grid is configured.
type gridResponse struct {
	Locator    string   `json:"locator"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	MGRS       string   `json:"mgrs,omitempty"`
	UTM        string   `json:"utm,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// GridsHandler resolves Maidenhead locators to coordinates.
// GET /grids/{locator}
type GridsHandler struct {
	stationGrid string
	logger      *slog.Logger
}

// NewGridsHandler creates a new GridsHandler. stationGrid is the operator's
// own locator and may be empty.
func NewGridsHandler(stationGrid string, logger *slog.Logger) *GridsHandler {
	return &GridsHandler{stationGrid: stationGrid, logger: logger}
}

func (h *GridsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	locator := strings.ToUpper(r.PathValue("locator"))

	lat, lon, err := grid.Center(locator)
	if err != nil {
		http.Error(w, "not a Maidenhead locator: "+locator, http.StatusBadRequest)
		return
	}

	resp := gridResponse{
		Locator:   locator,
		Latitude:  lat,
		Longitude: lon,
	}

	if mgrs, err := grid.MGRS(lat, lon); err == nil {
		resp.MGRS = mgrs
	}
	if utm, err := grid.UTM(lat, lon); err == nil {
		resp.UTM = utm
	}

	if h.stationGrid != "" {
		if homeLat, homeLon, err := grid.Center(h.stationGrid); err == nil {
			km := grid.Distance(homeLat, homeLon, lat, lon)
			resp.DistanceKM = &km
		}
	}

	respondWithJSON(w, h.logger, http.StatusOK, resp)
}
