// Package main provides the entrypoint for the AQIMonitor dataset builder.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/builder"
	"github.com/aqimonitor/aqimonitor/internal/config"
	"github.com/aqimonitor/aqimonitor/internal/store"
)

// Version is set at compile time via ldflags.
var Version = "dev"

const dateLayout = "2006-01-02"

func main() {
	citiesPath := flag.String("cities", "cities.csv", "CSV file of reference cities (city,state,lat,lon)")
	storePath := flag.String("store", "aqidata.txt", "Observation dataset file to append to")
	startDate := flag.String("start", "", "First day of the range (YYYY-MM-DD)")
	endDate := flag.String("end", "", "Last day of the range, inclusive (YYYY-MM-DD)")
	flag.Parse()

	config.LoadEnv()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "aqimonitor-builder").
		Str("version", Version).
		Logger()

	if *startDate == "" || *endDate == "" {
		log.Fatal().Msg("-start and -end are required")
	}
	start, err := time.Parse(dateLayout, *startDate)
	if err != nil {
		log.Fatal().Err(err).Str("start", *startDate).Msg("invalid start date")
	}
	end, err := time.Parse(dateLayout, *endDate)
	if err != nil {
		log.Fatal().Err(err).Str("end", *endDate).Msg("invalid end date")
	}

	cfg, err := config.BuilderFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	cities, err := builder.LoadCitiesFile(*citiesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *citiesPath).Msg("failed to load cities")
	}
	if len(cities) == 0 {
		log.Fatal().Str("path", *citiesPath).Msg("no cities to ingest")
	}

	client := airnow.NewClient(airnow.ClientConfig{
		APIKey:           cfg.AirNowAPIKey,
		BaseURL:          cfg.AirNowURL,
		Logger:           log,
		RateLimitBackoff: cfg.RateLimitBackoff,
		MaxAttempts:      cfg.MaxAttempts,
	})

	b := builder.New(builder.Config{
		Store:       store.Open(*storePath),
		Fetcher:     client,
		Logger:      log,
		PacingDelay: cfg.PacingDelay,
	})

	// A long build should stop cleanly on Ctrl-C; rows flushed so far stay
	// in the dataset.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("cities", len(cities)).
		Str("start", *startDate).
		Str("end", *endDate).
		Str("store", *storePath).
		Msg("starting dataset build")

	result, err := b.Build(ctx, cities, start, end)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("build interrupted")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("build failed")
	}

	log.Info().
		Int("cities", result.Cities).
		Int("slots", result.Slots).
		Int("failed_slots", result.FailedSlots).
		Int("rows_written", result.RowsWritten).
		Dur("duration", result.Duration).
		Msg("dataset build complete")
}
