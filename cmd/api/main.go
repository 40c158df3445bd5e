// Package main provides the entrypoint for the AQIMonitor API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/api"
	"github.com/aqimonitor/aqimonitor/internal/api/middleware"
	"github.com/aqimonitor/aqimonitor/internal/config"
	"github.com/aqimonitor/aqimonitor/internal/current"
	"github.com/aqimonitor/aqimonitor/internal/geocode/nominatim"
	"github.com/aqimonitor/aqimonitor/internal/history"
	"github.com/aqimonitor/aqimonitor/internal/store"
	"github.com/aqimonitor/aqimonitor/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqimonitor-api"

	config.LoadEnv()
	cfg := config.APIFromEnv()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("store_path", cfg.StorePath).
		Msg("starting AQIMonitor API")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Open the observation dataset. A missing file is not fatal; queries
	// return 404 and readiness reports degraded until a build runs.
	datasetStore := store.Open(cfg.StorePath)
	if exists, existsErr := datasetStore.Exists(); existsErr != nil || !exists {
		log.Warn().Str("path", cfg.StorePath).Msg("observation dataset not found")
	}

	historyService := history.NewService(history.ServiceConfig{
		Store:  datasetStore,
		Logger: log,
	})
	log.Info().Msg("history service initialized")

	// Live lookups need the upstream API key; without it the current
	// endpoint degrades to 503s while history keeps working.
	if cfg.AirNowAPIKey == "" {
		log.Warn().Msg("AIRNOW_API_KEY not set - current observation endpoint will fail")
	}

	airnowClient := airnow.NewClient(airnow.ClientConfig{
		APIKey:  cfg.AirNowAPIKey,
		BaseURL: cfg.AirNowURL,
		Logger:  log,
	})
	geocoder := nominatim.NewClient(nominatim.ClientConfig{})
	currentService := current.NewService(current.ServiceConfig{
		Geocoder: geocoder,
		Fetcher:  airnowClient,
		Logger:   log,
	})
	log.Info().Msg("current observation service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		HistoryService: historyService,
		CurrentService: currentService,
		ReadyCheck: func() error {
			exists, err := datasetStore.Exists()
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("observation dataset %s missing", cfg.StorePath)
			}
			return nil
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
