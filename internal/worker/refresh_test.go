package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/provider/resilience"
	"github.com/stepfree/stepfree/internal/transit/mbta"
	"github.com/stepfree/stepfree/internal/worker"
)

type stubClient struct {
	err   error
	calls atomic.Int32
}

func (c *stubClient) GetFacilities(_ context.Context) (*mbta.FacilitiesResponse, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	lat, lon := 42.352547, -71.062752
	return &mbta.FacilitiesResponse{
		Facilities: []mbta.Facility{
			{ID: "876", Type: "ELEVATOR", LongName: "Chinatown Elevator 876", StopID: "place-chncl"},
		},
		Stops: []mbta.Stop{
			{ID: "place-chncl", Name: "Chinatown", Latitude: &lat, Longitude: &lon},
		},
	}, nil
}

func (c *stubClient) GetAccessibilityAlerts(_ context.Context) (*mbta.AlertsResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &mbta.AlertsResponse{Alerts: []mbta.Alert{{
		ID:               "alert-1",
		InformedEntities: []mbta.InformedEntity{{Facility: "876"}},
	}}}, nil
}

func (c *stubClient) GetRoutesServing(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (c *stubClient) GetAlertsForRoutes(_ context.Context, _ []string) (*mbta.AlertsResponse, error) {
	return &mbta.AlertsResponse{}, nil
}

func (c *stubClient) Name() string { return "stub" }

func newJob(client *stubClient, registry *resilience.Registry) *worker.RefreshJob {
	service := accessibility.NewService(accessibility.ServiceConfig{
		Client: client,
		Logger: zerolog.Nop(),
	})

	return worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Interval:        time.Second,
			Timeout:         time.Second,
			MaxRetryElapsed: 50 * time.Millisecond,
		},
		Logger:   zerolog.Nop(),
		Service:  service,
		Registry: registry,
	})
}

func TestRefreshJobRun(t *testing.T) {
	client := &stubClient{}
	registry := resilience.NewRegistry()
	registry.Register("stub", resilience.NewClient(resilience.DefaultClientConfig("stub")))

	job := newJob(client, registry)

	err := job.Run(context.Background())
	require.NoError(t, err)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRefreshes)
	assert.Equal(t, int64(1), metrics.SuccessfulRefreshes)
	assert.Equal(t, int64(0), metrics.FailedRefreshes)
	assert.Equal(t, 1, metrics.LastFacilityCount)
	assert.Equal(t, 1, metrics.LastOutageCount)

	health := registry.GetHealth("stub")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
}

func TestRefreshJobRun_RetriesThenFails(t *testing.T) {
	client := &stubClient{err: errors.New("upstream down")}
	job := newJob(client, nil)

	err := job.Run(context.Background())
	require.Error(t, err)

	// The retry window allows more than one attempt before giving up.
	assert.GreaterOrEqual(t, client.calls.Load(), int32(2))

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRefreshes)
	assert.Equal(t, int64(1), metrics.FailedRefreshes)
}

func TestRefreshJobRun_CanceledContext(t *testing.T) {
	client := &stubClient{err: errors.New("upstream down")}
	job := newJob(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := job.Run(ctx)
	require.Error(t, err)
}

func TestRefreshJobInterval(t *testing.T) {
	job := newJob(&stubClient{}, nil)
	assert.Equal(t, time.Second, job.Interval())

	defaulted := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop()})
	assert.Equal(t, 60*time.Second, defaulted.Interval())
}
