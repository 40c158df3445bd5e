// Package config provides process configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/builder"
)

// ErrMissingAPIKey is returned when AIRNOW_API_KEY is not set.
var ErrMissingAPIKey = errors.New("AIRNOW_API_KEY is required")

// LoadEnv loads a .env file into the process environment if one exists.
// A missing file is not an error; real environment variables always win.
func LoadEnv() {
	_ = godotenv.Load()
}

// APIConfig holds configuration for the API server binary.
type APIConfig struct {
	Port         string
	Environment  string
	StorePath    string
	AirNowAPIKey string
	AirNowURL    string
	OTLPEndpoint string
	OTelEnabled  bool
}

// APIFromEnv creates an APIConfig from environment variables.
func APIFromEnv() APIConfig {
	return APIConfig{
		Port:         getEnvOrDefault("APP_PORT", "8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		StorePath:    getEnvOrDefault("AQI_STORE_PATH", "aqidata.txt"),
		AirNowAPIKey: os.Getenv("AIRNOW_API_KEY"),
		AirNowURL:    getEnvOrDefault("AIRNOW_BASE_URL", airnow.DefaultBaseURL),
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
	}
}

// BuilderConfig holds configuration for the dataset builder binary.
// The date range and file paths come from flags; everything tied to the
// upstream API comes from the environment.
type BuilderConfig struct {
	AirNowAPIKey     string
	AirNowURL        string
	PacingDelay      time.Duration
	RateLimitBackoff time.Duration
	MaxAttempts      int
}

// BuilderFromEnv creates a BuilderConfig from environment variables.
// Returns ErrMissingAPIKey when no upstream API key is configured.
func BuilderFromEnv() (BuilderConfig, error) {
	apiKey := os.Getenv("AIRNOW_API_KEY")
	if apiKey == "" {
		return BuilderConfig{}, ErrMissingAPIKey
	}

	pacing := getDurationOrDefault("AQI_PACING_DELAY", builder.DefaultPacingDelay)
	backoff := getDurationOrDefault("AQI_RATE_LIMIT_BACKOFF", airnow.DefaultRateLimitBackoff)
	attempts := getIntOrDefault("AQI_MAX_ATTEMPTS", airnow.DefaultMaxAttempts)

	return BuilderConfig{
		AirNowAPIKey:     apiKey,
		AirNowURL:        getEnvOrDefault("AIRNOW_BASE_URL", airnow.DefaultBaseURL),
		PacingDelay:      pacing,
		RateLimitBackoff: backoff,
		MaxAttempts:      attempts,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
