package mbta

import (
	"encoding/json"
	"fmt"
)

// UpstreamError indicates a non-2xx response or transport-level failure from the
// MBTA API. A broken fetch aborts the snapshot refresh visibly rather than
// producing partial data, so callers let this propagate.
type UpstreamError struct {
	StatusCode int
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mbta upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Facility is a single accessibility conveyance (elevator, escalator, ramp,
// portable boarding lift) flattened from a JSON:API facility resource.
type Facility struct {
	ID        string
	Type      string
	LongName  string
	ShortName string

	// StopID is the owning station, from the facility's stop relationship.
	// Empty when the relationship is absent.
	StopID string
}

// Stop is a station record included alongside facilities via include=stop.
type Stop struct {
	ID   string
	Name string

	// Latitude/Longitude are nil when the upstream record has no coordinates.
	Latitude  *float64
	Longitude *float64

	// WheelchairBoarding is the GTFS flag: 0 unknown, 1 accessible, 2 inaccessible.
	WheelchairBoarding int
}

// ActivePeriod is a time range during which an alert is in effect.
// Start and End are ISO-8601 strings as delivered by the API; either may be nil.
type ActivePeriod struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// InformedEntity is an alert's structured reference to an affected resource.
// Only the fields present in the upstream entity are populated.
type InformedEntity struct {
	Facility string `json:"facility,omitempty"`
	Stop     string `json:"stop,omitempty"`
	Route    string `json:"route,omitempty"`
}

// Alert is a flattened alert resource.
type Alert struct {
	ID               string
	Header           string
	Description      string
	Severity         int
	Cause            string
	Effect           string
	UpdatedAt        string
	ActivePeriods    []ActivePeriod
	InformedEntities []InformedEntity
}

// FacilityIDs returns every facility identifier referenced by the alert's
// informed-entity list.
func (a *Alert) FacilityIDs() []string {
	var ids []string
	for _, e := range a.InformedEntities {
		if e.Facility != "" {
			ids = append(ids, e.Facility)
		}
	}
	return ids
}

// NamesStop reports whether the alert's informed-entity list references the
// given stop directly.
func (a *Alert) NamesStop(stopID string) bool {
	for _, e := range a.InformedEntities {
		if e.Stop == stopID {
			return true
		}
	}
	return false
}

// FacilitiesResponse is the raw result of a facilities fetch: the facility
// collection plus the stop records embedded via include=stop.
type FacilitiesResponse struct {
	Facilities []Facility
	Stops      []Stop
}

// AlertsResponse is the raw result of an alerts fetch.
type AlertsResponse struct {
	Alerts []Alert
}

// JSON:API envelope. Attributes are decoded per resource type.

type document struct {
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
}

type resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data *relationshipData `json:"data"`
}

type relationshipData struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// relatedID returns the id of a named to-one relationship, or "".
func (r *resource) relatedID(name string) string {
	rel, ok := r.Relationships[name]
	if !ok || rel.Data == nil {
		return ""
	}
	return rel.Data.ID
}

type facilityAttributes struct {
	Type      string `json:"type"`
	LongName  string `json:"long_name"`
	ShortName string `json:"short_name"`
}

type stopAttributes struct {
	Name               string   `json:"name"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	WheelchairBoarding int      `json:"wheelchair_boarding"`
}

type alertAttributes struct {
	Header         string           `json:"header"`
	Description    *string          `json:"description"`
	Severity       int              `json:"severity"`
	Cause          string           `json:"cause"`
	Effect         string           `json:"effect"`
	UpdatedAt      string           `json:"updated_at"`
	ActivePeriod   []ActivePeriod   `json:"active_period"`
	InformedEntity []InformedEntity `json:"informed_entity"`
}
