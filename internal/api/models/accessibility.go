package models

import "github.com/stepfree/stepfree/internal/accessibility"

// AccessibilityStatusResponse is the dashboard contract: the full reconciled
// facility mapping plus per-station aggregates.
type AccessibilityStatusResponse struct {
	Facilities map[string]*accessibility.Facility `json:"facilities"`
	Stations   []*accessibility.Station           `json:"stations"`
	FetchedAt  Timestamp                          `json:"fetched_at"`
}

// StationAlertsResponse lists the high-impact service disruptions relevant to
// one station.
type StationAlertsResponse struct {
	StationID string                       `json:"station_id"`
	Alerts    []accessibility.ServiceAlert `json:"alerts"`
}

// BriefingResponse carries a generated station briefing. Failed reports are
// flagged so the dashboard can render an error state instead of prose.
type BriefingResponse struct {
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	Report      string    `json:"report"`
	Failed      bool      `json:"failed"`
	GeneratedAt Timestamp `json:"generated_at"`
}
