// Package current provides the single-shot current observation lookup:
// geocode a city name, fetch the live observations, and pick out the PM2.5
// and ozone readings. Nothing here is persisted and there is no retry loop;
// that is the historical ingest's job.
package current

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/geocode"
	"github.com/aqimonitor/aqimonitor/internal/observation"
)

// Service errors.
var (
	ErrEmptyCity    = errors.New("city must not be empty")
	ErrCityNotFound = errors.New("city not found")
	ErrNoData       = errors.New("no current observations for city")
)

// Fetcher fetches current pollutant entries for a location.
type Fetcher interface {
	Current(ctx context.Context, lat, lon float64) ([]airnow.Entry, error)
}

// Reading is one parameter's current value.
type Reading struct {
	AQI      int    `json:"aqi"`
	Category string `json:"category"`
}

// Snapshot is the current air quality at a city. A nil Reading means the
// upstream reported nothing for that parameter.
type Snapshot struct {
	City      string    `json:"city"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	FetchedAt time.Time `json:"fetchedAt"`
	PM25      *Reading  `json:"pm25,omitempty"`
	O3        *Reading  `json:"o3,omitempty"`
}

// ServiceConfig holds configuration for the current observation service.
type ServiceConfig struct {
	// Geocoder resolves city names to coordinates.
	Geocoder geocode.Geocoder

	// Fetcher retrieves current observations.
	Fetcher Fetcher

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves a city and fetches its current observations.
type Service struct {
	geocoder geocode.Geocoder
	fetcher  Fetcher
	logger   zerolog.Logger
}

// NewService creates a current observation service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		geocoder: cfg.Geocoder,
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger,
	}
}

// Snapshot fetches the current observations for a city by name.
func (s *Service) Snapshot(ctx context.Context, city string) (*Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrEmptyCity
	}

	loc, err := s.geocoder.Geocode(ctx, city)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, fmt.Errorf("resolve city %q: %w", city, err)
	}

	entries, err := s.fetcher.Current(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return nil, fmt.Errorf("fetch current observations for %q: %w", city, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoData
	}

	snapshot := &Snapshot{
		City:      city,
		Lat:       loc.Lat,
		Lon:       loc.Lon,
		FetchedAt: time.Now(),
	}
	for _, e := range entries {
		reading := &Reading{AQI: e.AQI, Category: e.Category}
		switch {
		case strings.EqualFold(e.ParameterName, string(observation.ParameterPM25)):
			snapshot.PM25 = reading
		case strings.EqualFold(e.ParameterName, string(observation.ParameterO3)):
			snapshot.O3 = reading
		}
	}

	s.logger.Debug().Str("city", city).
		Float64("lat", loc.Lat).Float64("lon", loc.Lon).
		Msg("current observations fetched")
	return snapshot, nil
}
