// Package main provides the entrypoint for the stepfree snapshot worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/provider/resilience"
	"github.com/stepfree/stepfree/internal/transit/mbta"
	"github.com/stepfree/stepfree/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stepfree-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting stepfree worker")

	// Worker also exposes a health endpoint for the container platform.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	interval := 60 * time.Second
	if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Str("value", raw).Msg("invalid REFRESH_INTERVAL")
		}
		interval = parsed
	}

	registry := resilience.NewRegistry()
	mbtaHTTP := resilience.NewClient(resilience.DefaultClientConfig(mbta.ProviderName))
	registry.Register(mbta.ProviderName, mbtaHTTP)

	mbtaClient := mbta.NewClient(mbta.ClientConfig{
		APIKey:     os.Getenv("MBTA_API_KEY"),
		BaseURL:    os.Getenv("MBTA_BASE_URL"),
		HTTPClient: mbtaHTTP,
		Logger:     log,
	})

	accessibilityService := accessibility.NewService(accessibility.ServiceConfig{
		Client: mbtaClient,
		Logger: log,
	})

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Interval: interval},
		Logger:   log,
		Service:  accessibilityService,
		Registry: registry,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Poll loop: refresh immediately on start, then on every tick.
	go func() {
		log.Info().Dur("interval", job.Interval()).Msg("snapshot poll loop started")

		if err := job.Run(ctx); err != nil {
			log.Error().Err(err).Msg("initial snapshot refresh failed")
		}

		ticker := time.NewTicker(job.Interval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("poll loop stopped")
				return
			case <-ticker.C:
				if err := job.Run(ctx); err != nil {
					log.Error().Err(err).Msg("snapshot refresh failed")
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
