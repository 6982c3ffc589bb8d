package worker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/provider/resilience"
)

// RefreshJob keeps the accessibility snapshot warm so API requests rarely pay
// for an upstream fetch. The transit client carries no retry of its own;
// backoff policy for transient upstream failures lives in this job.
type RefreshJob struct {
	config   RefreshConfig
	logger   zerolog.Logger
	service  *accessibility.Service
	registry *resilience.Registry

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRefreshes      int64
	SuccessfulRefreshes int64
	FailedRefreshes     int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	LastFacilityCount   int
	LastOutageCount     int
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Service *accessibility.Service

	// Registry records per-tick provider outcomes for the ops endpoints.
	// Optional.
	Registry *resilience.Registry
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		logger:   cfg.Logger,
		service:  cfg.Service,
		registry: cfg.Registry,
		metrics:  &RefreshMetrics{},
	}
}

// Interval returns the configured tick interval.
func (j *RefreshJob) Interval() time.Duration {
	return j.config.Interval
}

// Run executes one refresh tick: rebuild the snapshot, retrying transient
// failures with exponential backoff until the retry window closes.
func (j *RefreshJob) Run(ctx context.Context) error {
	start := time.Now()

	var snapshot *accessibility.Snapshot
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()

		var err error
		snapshot, err = j.service.Refresh(attemptCtx)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = j.config.MaxRetryElapsed
	policy := backoff.WithContext(bo, ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		j.logger.Warn().
			Err(err).
			Dur("retry_in", next).
			Msg("snapshot refresh attempt failed")
	})

	duration := time.Since(start)

	if err != nil {
		j.recordFailure(duration)
		if j.registry != nil {
			j.registry.RecordFailure(j.service.ProviderName(), err)
		}
		j.logger.Error().
			Err(err).
			Dur("duration", duration).
			Msg("snapshot refresh failed")
		return err
	}

	outages := 0
	for _, f := range snapshot.Facilities {
		if f.Status == accessibility.StatusOutOfService {
			outages++
		}
	}

	j.recordSuccess(duration, len(snapshot.Facilities), outages)
	if j.registry != nil {
		j.registry.RecordSuccess(j.service.ProviderName())
	}

	j.logger.Info().
		Dur("duration", duration).
		Int("facilities", len(snapshot.Facilities)).
		Int("out_of_service", outages).
		Int("stations", len(snapshot.Stations)).
		Msg("snapshot refresh completed")

	return nil
}

func (j *RefreshJob) recordSuccess(duration time.Duration, facilities, outages int) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRefreshes++
	j.metrics.LastRefreshAt = time.Now()
	j.metrics.LastRefreshDuration = duration
	j.metrics.LastFacilityCount = facilities
	j.metrics.LastOutageCount = outages
}

func (j *RefreshJob) recordFailure(duration time.Duration) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	j.metrics.TotalRefreshes++
	j.metrics.FailedRefreshes++
	j.metrics.LastRefreshAt = time.Now()
	j.metrics.LastRefreshDuration = duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRefreshes: j.metrics.SuccessfulRefreshes,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		LastFacilityCount:   j.metrics.LastFacilityCount,
		LastOutageCount:     j.metrics.LastOutageCount,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefreshes,
		"failed_refreshes":      m.FailedRefreshes,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"last_facility_count":   m.LastFacilityCount,
		"last_outage_count":     m.LastOutageCount,
	}
}
