package mbta_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/transit/mbta"
)

const facilitiesPayload = `{
	"data": [
		{
			"id": "876",
			"type": "facility",
			"attributes": {"type": "ELEVATOR", "long_name": "Chinatown Elevator 876", "short_name": "Elevator 876"},
			"relationships": {"stop": {"data": {"id": "place-chncl", "type": "stop"}}}
		},
		{
			"id": "451",
			"type": "facility",
			"attributes": {"type": "ESCALATOR", "long_name": "Back Bay Escalator 451", "short_name": "Escalator 451"},
			"relationships": {"stop": {"data": {"id": "place-bbsta", "type": "stop"}}}
		}
	],
	"included": [
		{
			"id": "place-chncl",
			"type": "stop",
			"attributes": {"name": "Chinatown", "latitude": 42.352547, "longitude": -71.062752, "wheelchair_boarding": 1}
		},
		{
			"id": "place-bbsta",
			"type": "stop",
			"attributes": {"name": "Back Bay", "latitude": null, "longitude": null, "wheelchair_boarding": 2}
		}
	]
}`

const alertsPayload = `{
	"data": [
		{
			"id": "alert-1",
			"type": "alert",
			"attributes": {
				"header": "Elevator 876 unavailable",
				"description": "Use Elevator 877 instead.",
				"severity": 7,
				"cause": "MAINTENANCE",
				"effect": "ELEVATOR_CLOSURE",
				"updated_at": "2025-06-01T08:00:00-04:00",
				"active_period": [{"start": "2025-05-30T09:00:00-04:00", "end": null}],
				"informed_entity": [{"facility": "876", "stop": "place-chncl"}]
			}
		},
		{
			"id": "alert-2",
			"type": "alert",
			"attributes": {
				"header": "Shuttle buses replacing service",
				"description": null,
				"severity": 5,
				"cause": "CONSTRUCTION",
				"effect": "SHUTTLE",
				"updated_at": "2025-06-01T09:00:00-04:00",
				"active_period": [],
				"informed_entity": [{"route": "Orange"}]
			}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *mbta.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return mbta.NewClient(mbta.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})
}

func TestGetFacilities(t *testing.T) {
	var gotQuery, gotKey, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-api-key")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "/facilities", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.api+json")
		_, _ = w.Write([]byte(facilitiesPayload))
	})

	resp, err := client.GetFacilities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/vnd.api+json", gotAccept)
	assert.Contains(t, gotQuery, "filter%5Btype%5D=ELEVATOR%2CESCALATOR%2CRAMP%2CPORTABLE_BOARDING_LIFT")
	assert.Contains(t, gotQuery, "include=stop")

	require.Len(t, resp.Facilities, 2)
	assert.Equal(t, "876", resp.Facilities[0].ID)
	assert.Equal(t, "ELEVATOR", resp.Facilities[0].Type)
	assert.Equal(t, "Chinatown Elevator 876", resp.Facilities[0].LongName)
	assert.Equal(t, "place-chncl", resp.Facilities[0].StopID)

	require.Len(t, resp.Stops, 2)
	chinatown := resp.Stops[0]
	assert.Equal(t, "Chinatown", chinatown.Name)
	require.NotNil(t, chinatown.Latitude)
	assert.InDelta(t, 42.352547, *chinatown.Latitude, 1e-9)
	assert.Equal(t, 1, chinatown.WheelchairBoarding)

	backBay := resp.Stops[1]
	assert.Nil(t, backBay.Latitude)
	assert.Nil(t, backBay.Longitude)
	assert.Equal(t, 2, backBay.WheelchairBoarding)
}

func TestGetAccessibilityAlerts(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/alerts", r.URL.Path)
		_, _ = w.Write([]byte(alertsPayload))
	})

	resp, err := client.GetAccessibilityAlerts(context.Background())
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "filter%5Bactivity%5D=USING_WHEELCHAIR%2CUSING_ESCALATOR")

	require.Len(t, resp.Alerts, 2)
	first := resp.Alerts[0]
	assert.Equal(t, "alert-1", first.ID)
	assert.Equal(t, "Use Elevator 877 instead.", first.Description)
	assert.Equal(t, []string{"876"}, first.FacilityIDs())
	assert.True(t, first.NamesStop("place-chncl"))
	assert.False(t, first.NamesStop("place-bbsta"))
	require.Len(t, first.ActivePeriods, 1)
	require.NotNil(t, first.ActivePeriods[0].Start)
	assert.Equal(t, "2025-05-30T09:00:00-04:00", *first.ActivePeriods[0].Start)

	// Null description flattens to empty.
	assert.Equal(t, "", resp.Alerts[1].Description)
	assert.Empty(t, resp.Alerts[1].FacilityIDs())
}

func TestGetRoutesServing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/routes", r.URL.Path)
		assert.Equal(t, "place-chncl", r.URL.Query().Get("filter[stop]"))
		_, _ = w.Write([]byte(`{"data": [{"id": "Orange", "type": "route", "attributes": {}}, {"id": "11", "type": "route", "attributes": {}}]}`))
	})

	routes, err := client.GetRoutesServing(context.Background(), "place-chncl")
	require.NoError(t, err)
	assert.Equal(t, []string{"Orange", "11"}, routes)
}

func TestGetAlertsForRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Orange,11", r.URL.Query().Get("filter[route]"))
		_, _ = w.Write([]byte(alertsPayload))
	})

	resp, err := client.GetAlertsForRoutes(context.Background(), []string{"Orange", "11"})
	require.NoError(t, err)
	assert.Len(t, resp.Alerts, 2)
}

func TestGetAlertsForRoutes_EmptyRouteSet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued for an empty route set")
	})

	_, err := client.GetAlertsForRoutes(context.Background(), nil)
	require.Error(t, err)
}

func TestUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.GetFacilities(context.Background())
	require.Error(t, err)

	var upstreamErr *mbta.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusForbidden, upstreamErr.StatusCode)
}

func TestAnonymousAccessOmitsKeyHeader(t *testing.T) {
	var sawKeyHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawKeyHeader = r.Header["X-Api-Key"]
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(server.Close)

	client := mbta.NewClient(mbta.ClientConfig{
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetFacilities(context.Background())
	require.NoError(t, err)
	assert.False(t, sawKeyHeader)
}
