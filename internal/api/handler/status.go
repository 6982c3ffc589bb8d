package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
)

// AccessibilitySource provides reconciled accessibility data to the API.
type AccessibilitySource interface {
	GetSnapshot(ctx context.Context) (*accessibility.Snapshot, error)
	StationServiceAlerts(ctx context.Context, stopID string) ([]accessibility.ServiceAlert, error)
}

// StatusHandler serves the reconciled accessibility view.
type StatusHandler struct {
	source AccessibilitySource
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(source AccessibilitySource) *StatusHandler {
	return &StatusHandler{source: source}
}

// GetStatus handles GET /v1/accessibility/status - the full facility mapping
// plus per-station aggregates consumed by the dashboard map.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.source.GetSnapshot(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, r, "Accessibility data is temporarily unavailable.")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AccessibilityStatusResponse{
		Facilities: snapshot.Facilities,
		Stations:   snapshot.Stations,
		FetchedAt:  models.Timestamp(snapshot.FetchedAt),
	})
}

// GetStationAlerts handles GET /v1/stations/{stationID}/alerts - high-impact
// service disruptions on the routes serving a station.
func (h *StatusHandler) GetStationAlerts(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")
	if stationID == "" {
		response.BadRequest(w, r, "Station ID is required.", nil)
		return
	}

	alerts, err := h.source.StationServiceAlerts(r.Context(), stationID)
	if err != nil {
		response.ServiceUnavailable(w, r, "Service alert data is temporarily unavailable.")
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationAlertsResponse{
		StationID: stationID,
		Alerts:    alerts,
	})
}
