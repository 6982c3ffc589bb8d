// Package main provides a console report of current accessibility status:
// a station-grouped outage listing, plus an optional generated briefing for a
// single station.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/accessibility"
	"github.com/stepfree/stepfree/internal/briefing"
	"github.com/stepfree/stepfree/internal/generation/ollama"
	"github.com/stepfree/stepfree/internal/transit/mbta"
)

const divider = "============================================================"

func main() {
	stationID := flag.String("station", "", "generate a briefing for this station id (e.g. place-chncl)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mbta.NewClient(mbta.ClientConfig{
		APIKey:  os.Getenv("MBTA_API_KEY"),
		BaseURL: os.Getenv("MBTA_BASE_URL"),
		Logger:  log,
	})

	service := accessibility.NewService(accessibility.ServiceConfig{
		Client: client,
		Logger: log,
	})

	fmt.Println("Fetching MBTA accessibility data...")
	fmt.Println()

	snapshot, err := service.GetSnapshot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch accessibility data")
	}

	printSummary(snapshot)

	if *stationID == "" {
		return
	}

	generator := ollama.NewClient(ollama.ClientConfig{
		BaseURL: os.Getenv("OLLAMA_BASE_URL"),
		Model:   os.Getenv("OLLAMA_MODEL"),
		Logger:  log,
	})

	briefingService := briefing.NewService(briefing.ServiceConfig{
		Source:    service,
		Generator: generator,
		Logger:    log,
	})

	fmt.Println()
	fmt.Println(divider)
	fmt.Printf("BRIEFING: %s\n", snapshot.StationName(*stationID))
	fmt.Println(divider)

	report := briefingService.GenerateStationReport(ctx, *stationID)
	if briefing.IsErrorReport(report) {
		fmt.Printf("briefing unavailable: %s\n", strings.TrimPrefix(report, briefing.ErrorSentinel+": "))
		os.Exit(1)
	}
	fmt.Println(report)
}

func printSummary(snapshot *accessibility.Snapshot) {
	total := len(snapshot.Facilities)
	outOfService := 0
	for _, f := range snapshot.Facilities {
		if f.Status == accessibility.StatusOutOfService {
			outOfService++
		}
	}

	fmt.Println(divider)
	fmt.Println("MBTA ACCESSIBILITY STATUS")
	fmt.Println(divider)
	fmt.Printf("Total facilities: %d\n", total)
	fmt.Printf("Operational: %d\n", total-outOfService)
	fmt.Printf("Out of service: %d\n", outOfService)
	fmt.Println(divider)

	// Group outages by station
	outagesByStation := make(map[string][]*accessibility.Facility)
	for _, f := range snapshot.Facilities {
		if f.Status == accessibility.StatusOutOfService {
			outagesByStation[f.StationName] = append(outagesByStation[f.StationName], f)
		}
	}

	if len(outagesByStation) == 0 {
		fmt.Println()
		fmt.Println("No current outages!")
		return
	}

	stations := make([]string, 0, len(outagesByStation))
	for station := range outagesByStation {
		stations = append(stations, station)
	}
	sort.Strings(stations)

	fmt.Println()
	fmt.Println("CURRENT OUTAGES:")
	fmt.Println(strings.Repeat("-", 60))
	for _, station := range stations {
		fmt.Printf("\n%s:\n", station)
		outages := outagesByStation[station]
		sort.Slice(outages, func(i, j int) bool { return outages[i].ID < outages[j].ID })
		for _, f := range outages {
			severity := "?"
			if f.Alert != nil {
				severity = fmt.Sprintf("%d", f.Alert.Severity)
			}
			fmt.Printf("  [%s] %s: %s\n", severity, f.Type, f.ShortName)
			if f.Alert != nil && f.Alert.Cause != "" {
				fmt.Printf("      Cause: %s\n", f.Alert.Cause)
			}
		}
	}
}
