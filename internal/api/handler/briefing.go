package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
	"github.com/stepfree/stepfree/internal/briefing"
)

// ReportGenerator produces rider-facing station briefings. Generation never
// fails hard; failures come back as sentinel-prefixed strings.
type ReportGenerator interface {
	GenerateStationReport(ctx context.Context, stationID string) string
}

// BriefingHandler serves generated station briefings.
type BriefingHandler struct {
	generator ReportGenerator
	source    AccessibilitySource
}

// NewBriefingHandler creates a new BriefingHandler.
func NewBriefingHandler(generator ReportGenerator, source AccessibilitySource) *BriefingHandler {
	return &BriefingHandler{generator: generator, source: source}
}

// GetBriefing handles GET /v1/stations/{stationID}/briefing - a generated
// natural-language accessibility briefing for one station. A failed
// generation still returns 200 with the failure flagged; the dashboard owns
// how to render it.
func (h *BriefingHandler) GetBriefing(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")
	if stationID == "" {
		response.BadRequest(w, r, "Station ID is required.", nil)
		return
	}

	stationName := stationID
	if snapshot, err := h.source.GetSnapshot(r.Context()); err == nil {
		stationName = snapshot.StationName(stationID)
	}

	report := h.generator.GenerateStationReport(r.Context(), stationID)

	response.JSON(w, r, http.StatusOK, models.BriefingResponse{
		StationID:   stationID,
		StationName: stationName,
		Report:      report,
		Failed:      briefing.IsErrorReport(report),
		GeneratedAt: models.Timestamp(time.Now()),
	})
}
