package accessibility

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/transit/mbta"
)

// Client is the transit API surface the service depends on.
type Client interface {
	// GetFacilities fetches facility inventory with embedded stop records.
	GetFacilities(ctx context.Context) (*mbta.FacilitiesResponse, error)

	// GetAccessibilityAlerts fetches alerts affecting elevator/escalator users.
	GetAccessibilityAlerts(ctx context.Context) (*mbta.AlertsResponse, error)

	// GetRoutesServing returns identifiers of routes serving a stop.
	GetRoutesServing(ctx context.Context, stopID string) ([]string, error)

	// GetAlertsForRoutes fetches alerts scoped to the given routes.
	// Must not be called with an empty route set.
	GetAlertsForRoutes(ctx context.Context, routeIDs []string) (*mbta.AlertsResponse, error)

	// Name returns the provider name for logging.
	Name() string
}

// highImpactEffects is the fixed set of service-alert effects worth briefing a
// rider on. Facility outages are covered by reconciliation and per-trip delay
// alerts are too transient to surface.
var highImpactEffects = map[string]struct{}{
	"SHUTTLE":        {},
	"SUSPENSION":     {},
	"DETOUR":         {},
	"SERVICE_CHANGE": {},
	"STOP_CLOSURE":   {},
	"STOP_MOVE":      {},
	"STATION_ISSUE":  {},
}

// ServiceConfig holds configuration for the accessibility service.
type ServiceConfig struct {
	// Client is the transit data provider.
	Client Client

	// Logger for service operations.
	Logger zerolog.Logger

	// SnapshotTTL is how long a reconciled snapshot stays fresh
	// (default: 1 minute). This bounds staleness against upstream.
	SnapshotTTL time.Duration

	// StaleIfErrorTTL allows serving a stale snapshot on upstream errors
	// (default: 10 minutes).
	StaleIfErrorTTL time.Duration
}

// Service produces reconciled accessibility snapshots and station-scoped
// service alerts. Every refresh rebuilds the full facility graph from two
// fresh fetches; nothing persists across refreshes except the cached result.
type Service struct {
	client          Client
	logger          zerolog.Logger
	snapshotTTL     time.Duration
	staleIfErrorTTL time.Duration

	mu        sync.RWMutex
	snapshot  *Snapshot
	expiresAt time.Time
}

// NewService creates a new accessibility service.
func NewService(cfg ServiceConfig) *Service {
	snapshotTTL := cfg.SnapshotTTL
	if snapshotTTL == 0 {
		snapshotTTL = time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 10 * time.Minute
	}

	return &Service{
		client:          cfg.Client,
		logger:          cfg.Logger,
		snapshotTTL:     snapshotTTL,
		staleIfErrorTTL: staleIfErrorTTL,
	}
}

// ProviderName returns the underlying transit provider's name.
func (s *Service) ProviderName() string {
	return s.client.Name()
}

// GetSnapshot returns the current reconciled snapshot, refreshing it from the
// transit API when the cached one has expired.
func (s *Service) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Now().Before(s.expiresAt) {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.refreshSnapshot(ctx)
}

// Refresh forces a snapshot rebuild regardless of cache freshness. The worker
// poll loop calls this on its tick.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
	return s.refreshSnapshot(ctx)
}

func (s *Service) refreshSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock
	if s.snapshot != nil && time.Now().Before(s.expiresAt) {
		return s.snapshot, nil
	}

	s.logger.Debug().
		Str("provider", s.client.Name()).
		Msg("rebuilding accessibility snapshot")

	facilities, err := s.client.GetFacilities(ctx)
	if err != nil {
		return s.staleOrError(fmt.Errorf("fetching facilities: %w", err))
	}

	alerts, err := s.client.GetAccessibilityAlerts(ctx)
	if err != nil {
		return s.staleOrError(fmt.Errorf("fetching accessibility alerts: %w", err))
	}

	stops := BuildStopLookup(facilities)
	reconciled := Reconcile(facilities, alerts)

	snapshot := &Snapshot{
		Facilities: reconciled,
		Stations:   AggregateStations(reconciled, stops),
		Stops:      stops,
		FetchedAt:  time.Now(),
	}

	s.snapshot = snapshot
	s.expiresAt = snapshot.FetchedAt.Add(s.snapshotTTL)

	outOfService := 0
	for _, f := range reconciled {
		if f.Status == StatusOutOfService {
			outOfService++
		}
	}
	s.logger.Info().
		Int("facilities", len(reconciled)).
		Int("out_of_service", outOfService).
		Int("stations", len(snapshot.Stations)).
		Msg("accessibility snapshot refreshed")

	return snapshot, nil
}

// staleOrError serves the previous snapshot when it is still within the
// stale-if-error window, otherwise propagates the upstream failure.
func (s *Service) staleOrError(err error) (*Snapshot, error) {
	if s.snapshot != nil && time.Now().Before(s.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Warn().
			Err(err).
			Time("fetched_at", s.snapshot.FetchedAt).
			Msg("serving stale accessibility snapshot due to upstream error")
		return s.snapshot, nil
	}
	s.logger.Error().Err(err).Msg("accessibility snapshot refresh failed")
	return nil, err
}

// StationServiceAlerts returns the high-impact service disruptions relevant to
// a station: alerts on its serving routes, filtered to the fixed effect set,
// with STATION_ISSUE alerts additionally required to name the station directly
// (they are frequently scoped to a different station on the same route).
func (s *Service) StationServiceAlerts(ctx context.Context, stopID string) ([]ServiceAlert, error) {
	routeIDs, err := s.client.GetRoutesServing(ctx, stopID)
	if err != nil {
		return nil, fmt.Errorf("resolving routes for stop %s: %w", stopID, err)
	}
	if len(routeIDs) == 0 {
		// An unfiltered alert fetch would return an unbounded set.
		return []ServiceAlert{}, nil
	}

	alerts, err := s.client.GetAlertsForRoutes(ctx, routeIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching alerts for routes: %w", err)
	}

	return FilterServiceAlerts(alerts, stopID), nil
}

// FilterServiceAlerts reduces a route-scoped alert collection to the
// high-impact alerts relevant to the given stop.
func FilterServiceAlerts(alerts *mbta.AlertsResponse, stopID string) []ServiceAlert {
	filtered := make([]ServiceAlert, 0, len(alerts.Alerts))
	for i := range alerts.Alerts {
		alert := &alerts.Alerts[i]
		if _, ok := highImpactEffects[alert.Effect]; !ok {
			continue
		}
		if alert.Effect == "STATION_ISSUE" && !alert.NamesStop(stopID) {
			continue
		}
		filtered = append(filtered, ServiceAlert{
			Header:      alert.Header,
			Effect:      alert.Effect,
			Description: strings.TrimSpace(alert.Description),
		})
	}
	return filtered
}
