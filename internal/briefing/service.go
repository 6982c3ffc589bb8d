package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/generation"
)

// ErrorSentinel prefixes report text that represents a failure rather than a
// generated briefing. Display layers match on it to render a visible error
// instead of crashing the surrounding page.
const ErrorSentinel = "__error__"

// SnapshotSource provides the reconciled accessibility data the briefing is
// built from.
type SnapshotSource interface {
	// GetSnapshot returns the current reconciled accessibility snapshot.
	GetSnapshot(ctx context.Context) (*accessibility.Snapshot, error)

	// StationServiceAlerts returns filtered route-level disruptions for a
	// station.
	StationServiceAlerts(ctx context.Context, stopID string) ([]accessibility.ServiceAlert, error)
}

// ServiceConfig holds configuration for the briefing service.
type ServiceConfig struct {
	// Source provides reconciled accessibility data.
	Source SnapshotSource

	// Generator is the text-generation backend.
	Generator generation.Generator

	// Composer builds prompts; defaults to a wall-clock composer.
	Composer *Composer

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service generates rider-facing station briefings. It never returns an
// error: every failure degrades to a sentinel-prefixed string so the caller
// can always render something.
type Service struct {
	source    SnapshotSource
	generator generation.Generator
	composer  *Composer
	logger    zerolog.Logger
}

// NewService creates a new briefing service.
func NewService(cfg ServiceConfig) *Service {
	composer := cfg.Composer
	if composer == nil {
		composer = NewComposer()
	}

	return &Service{
		source:    cfg.Source,
		generator: cfg.Generator,
		composer:  composer,
		logger:    cfg.Logger,
	}
}

// GenerateStationReport builds and generates the briefing for one station.
// A station with no tracked facilities still gets a briefing; the prompt
// simply says so. Failures at any step return a sentinel string, never an
// error.
func (s *Service) GenerateStationReport(ctx context.Context, stationID string) string {
	snapshot, err := s.source.GetSnapshot(ctx)
	if err != nil {
		return s.errorReport("loading accessibility snapshot", err)
	}

	serviceAlerts, err := s.source.StationServiceAlerts(ctx, stationID)
	if err != nil {
		return s.errorReport("fetching service alerts", err)
	}

	prompt := s.composer.BuildPrompt(
		snapshot.StationName(stationID),
		snapshot.StationFacilities(stationID),
		serviceAlerts,
		snapshot.WheelchairBoardingFor(stationID),
	)

	report, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return s.errorReport("generating report", err)
	}

	return report
}

func (s *Service) errorReport(stage string, err error) string {
	s.logger.Error().
		Err(err).
		Str("backend", s.generator.Name()).
		Str("stage", stage).
		Msg("briefing generation failed")
	return fmt.Sprintf("%s: %s: %s", ErrorSentinel, stage, err)
}

// IsErrorReport reports whether a briefing string is a sentinel failure
// rather than generated text.
func IsErrorReport(report string) bool {
	return strings.HasPrefix(report, ErrorSentinel+":")
}
