// Package worker provides the background snapshot refresh job for stepfree.
package worker

import "time"

// RefreshConfig holds configuration for the snapshot refresh job.
type RefreshConfig struct {
	// Interval between refresh ticks.
	// Default: 60 seconds
	Interval time.Duration

	// Timeout is the timeout for one refresh attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetryElapsed bounds the retry window for one tick. The transit
	// client never retries internally, so backoff lives here.
	// Default: 2 minutes
	MaxRetryElapsed time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:        60 * time.Second,
		Timeout:         30 * time.Second,
		MaxRetryElapsed: 2 * time.Minute,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	defaults := DefaultRefreshConfig()
	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxRetryElapsed == 0 {
		c.MaxRetryElapsed = defaults.MaxRetryElapsed
	}
	return c
}
