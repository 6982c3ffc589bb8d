package accessibility

import (
	"time"

	"github.com/stepfree/stepfree/internal/transit/mbta"
)

// FacilityType is the kind of accessibility conveyance.
type FacilityType string

const (
	FacilityElevator     FacilityType = "ELEVATOR"
	FacilityEscalator    FacilityType = "ESCALATOR"
	FacilityRamp         FacilityType = "RAMP"
	FacilityPortableLift FacilityType = "PORTABLE_BOARDING_LIFT"
)

// FacilityTypes returns the tracked facility types in rendering order.
func FacilityTypes() []FacilityType {
	return []FacilityType{FacilityElevator, FacilityEscalator, FacilityRamp, FacilityPortableLift}
}

// FacilityStatus is the reconciled operational state of a facility.
type FacilityStatus string

const (
	StatusOperational  FacilityStatus = "OPERATIONAL"
	StatusOutOfService FacilityStatus = "OUT_OF_SERVICE"
)

// WheelchairBoarding is the GTFS station-level accessibility classification,
// independent of individual facility status.
type WheelchairBoarding int

const (
	WheelchairUnknown      WheelchairBoarding = 0
	WheelchairAccessible   WheelchairBoarding = 1
	WheelchairInaccessible WheelchairBoarding = 2
)

// AlertSummary is the reduced form of an accessibility alert attached to an
// out-of-service facility.
type AlertSummary struct {
	ID          string `json:"id"`
	Header      string `json:"header"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
	Cause       string `json:"cause"`
	Effect      string `json:"effect"`
	UpdatedAt   string `json:"updated_at"`

	ActivePeriods []mbta.ActivePeriod `json:"active_period"`

	// OutageStart is the first active period's start timestamp, empty when
	// the alert carries no active periods.
	OutageStart string `json:"outage_start,omitempty"`
}

// Facility is one reconciled accessibility conveyance. Records are rebuilt
// from scratch on every reconciliation pass; there is no identity beyond the
// upstream facility id.
type Facility struct {
	ID          string         `json:"id"`
	Type        FacilityType   `json:"type"`
	Name        string         `json:"name"`
	ShortName   string         `json:"short_name"`
	StopID      string         `json:"stop_id"`
	StationName string         `json:"station_name"`
	Status      FacilityStatus `json:"status"`

	// Alert is nil for operational facilities. At most one alert is attached;
	// when several alerts reference the same facility the last one in input
	// order wins.
	Alert *AlertSummary `json:"alert"`
}

// Station is a per-station aggregate for map-facing output.
type Station struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Operational  int     `json:"n_operational"`
	OutOfService int     `json:"n_out_of_service"`

	WheelchairBoarding WheelchairBoarding `json:"wheelchair_boarding"`
}

// StopInfo is the station lookup record built from the stops embedded in a
// facilities response.
type StopInfo struct {
	Name               string
	Latitude           *float64
	Longitude          *float64
	WheelchairBoarding WheelchairBoarding
}

// ServiceAlert is a route-level disruption relevant to a station, reduced to
// the fields the briefing needs. Distinct from AlertSummary, which is scoped
// to a single facility.
type ServiceAlert struct {
	Header      string `json:"header"`
	Effect      string `json:"effect"`
	Description string `json:"description"`
}

// Snapshot is the full reconciled accessibility view, rebuilt on every
// refresh. Facilities and Stations form the dashboard contract; Stops is the
// raw station lookup kept for briefing composition.
type Snapshot struct {
	Facilities map[string]*Facility `json:"facilities"`
	Stations   []*Station           `json:"stations"`
	FetchedAt  time.Time            `json:"fetched_at"`

	Stops map[string]StopInfo `json:"-"`
}

// StationFacilities returns the facilities mapped to a stop, in stable order
// by facility id.
func (s *Snapshot) StationFacilities(stopID string) []*Facility {
	var facilities []*Facility
	for _, f := range s.Facilities {
		if f.StopID == stopID {
			facilities = append(facilities, f)
		}
	}
	sortFacilities(facilities)
	return facilities
}

// StationName resolves a stop's display name, falling back to the stop id
// when the stop never appeared in the facilities response.
func (s *Snapshot) StationName(stopID string) string {
	if info, ok := s.Stops[stopID]; ok && info.Name != "" {
		return info.Name
	}
	return stopID
}

// WheelchairBoardingFor returns the station-level accessibility flag, or
// WheelchairUnknown for stops outside the snapshot.
func (s *Snapshot) WheelchairBoardingFor(stopID string) WheelchairBoarding {
	if info, ok := s.Stops[stopID]; ok {
		return info.WheelchairBoarding
	}
	return WheelchairUnknown
}
