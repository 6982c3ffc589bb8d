// Package accessibility reconciles facility inventory against active alerts
// into a per-facility and per-station accessibility status view.
package accessibility

import (
	"sort"

	"github.com/stepfree/stepfree/internal/transit/mbta"
)

// unknownName is the placeholder for missing upstream display names.
const unknownName = "Unknown"

// BuildStopLookup indexes the stop records embedded in a facilities response
// by stop id.
func BuildStopLookup(facilities *mbta.FacilitiesResponse) map[string]StopInfo {
	stops := make(map[string]StopInfo, len(facilities.Stops))
	for _, stop := range facilities.Stops {
		name := stop.Name
		if name == "" {
			name = unknownName
		}
		stops[stop.ID] = StopInfo{
			Name:               name,
			Latitude:           stop.Latitude,
			Longitude:          stop.Longitude,
			WheelchairBoarding: WheelchairBoarding(stop.WheelchairBoarding),
		}
	}
	return stops
}

// Reconcile joins facility inventory with accessibility alerts into a mapping
// of facility id to reconciled Facility. Every facility starts OPERATIONAL
// with no alert; each alert marks every inventory facility it references
// OUT_OF_SERVICE and attaches its summary. When multiple alerts reference the
// same facility the last alert in input order wins. That tie-break is
// deliberate: accessibility alerts rarely overlap per facility, and the
// overwrite order is stable and observable in tests.
func Reconcile(facilities *mbta.FacilitiesResponse, alerts *mbta.AlertsResponse) map[string]*Facility {
	stops := BuildStopLookup(facilities)

	reconciled := make(map[string]*Facility, len(facilities.Facilities))
	for _, f := range facilities.Facilities {
		stationName := unknownName
		if info, ok := stops[f.StopID]; ok {
			stationName = info.Name
		}
		reconciled[f.ID] = &Facility{
			ID:          f.ID,
			Type:        FacilityType(f.Type),
			Name:        f.LongName,
			ShortName:   f.ShortName,
			StopID:      f.StopID,
			StationName: stationName,
			Status:      StatusOperational,
			Alert:       nil,
		}
	}

	for i := range alerts.Alerts {
		alert := &alerts.Alerts[i]
		summary := newAlertSummary(alert)
		for _, facilityID := range alert.FacilityIDs() {
			facility, ok := reconciled[facilityID]
			if !ok {
				continue
			}
			facility.Status = StatusOutOfService
			facility.Alert = summary
		}
	}

	return reconciled
}

// AggregateStations groups reconciled facilities by station and counts
// operational versus out-of-service per station. Stations lacking coordinates
// are excluded: the dashboard cannot place them on the map.
func AggregateStations(facilities map[string]*Facility, stops map[string]StopInfo) []*Station {
	type counts struct {
		operational  int
		outOfService int
	}
	perStop := make(map[string]*counts)
	for _, f := range facilities {
		c, ok := perStop[f.StopID]
		if !ok {
			c = &counts{}
			perStop[f.StopID] = c
		}
		if f.Status == StatusOperational {
			c.operational++
		} else {
			c.outOfService++
		}
	}

	stations := make([]*Station, 0, len(stops))
	for stopID, info := range stops {
		if info.Latitude == nil || info.Longitude == nil {
			continue
		}
		station := &Station{
			ID:                 stopID,
			Name:               info.Name,
			Lat:                *info.Latitude,
			Lon:                *info.Longitude,
			WheelchairBoarding: info.WheelchairBoarding,
		}
		if c, ok := perStop[stopID]; ok {
			station.Operational = c.operational
			station.OutOfService = c.outOfService
		}
		stations = append(stations, station)
	}

	sort.Slice(stations, func(i, j int) bool {
		return stations[i].ID < stations[j].ID
	})

	return stations
}

// newAlertSummary reduces an alert to the summary attached to affected
// facilities. Outage start derives from the first active period.
func newAlertSummary(alert *mbta.Alert) *AlertSummary {
	outageStart := ""
	if len(alert.ActivePeriods) > 0 && alert.ActivePeriods[0].Start != nil {
		outageStart = *alert.ActivePeriods[0].Start
	}

	return &AlertSummary{
		ID:            alert.ID,
		Header:        alert.Header,
		Description:   alert.Description,
		Severity:      alert.Severity,
		Cause:         alert.Cause,
		Effect:        alert.Effect,
		UpdatedAt:     alert.UpdatedAt,
		ActivePeriods: alert.ActivePeriods,
		OutageStart:   outageStart,
	}
}

func sortFacilities(facilities []*Facility) {
	sort.Slice(facilities, func(i, j int) bool {
		return facilities[i].ID < facilities[j].ID
	})
}
