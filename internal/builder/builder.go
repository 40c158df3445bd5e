// Package builder drives historical AQI ingestion: for each configured city,
// day, and hour it queries the upstream source and appends the decoded
// observations to the historical store.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/observation"
	"github.com/aqimonitor/aqimonitor/internal/store"
)

// DefaultPacingDelay is the wait between upstream calls. It is independent
// of the retry backoff and keeps the steady-state request rate under the
// upstream limit.
const DefaultPacingDelay = 1500 * time.Millisecond

// HistoricalFetcher fetches pollutant entries for one city/time slot.
// A (nil, nil) return means no data for the slot, which is not an error.
type HistoricalFetcher interface {
	Historical(ctx context.Context, lat, lon float64, date string, hour int) ([]airnow.Entry, error)
}

// Config holds configuration for the dataset builder.
type Config struct {
	// Store is the historical store to append to.
	Store *store.Store

	// Fetcher retrieves observations from the external AQI source.
	Fetcher HistoricalFetcher

	// Logger for progress reporting.
	Logger zerolog.Logger

	// PacingDelay is the wait between upstream calls
	// (default: DefaultPacingDelay).
	PacingDelay time.Duration
}

// Builder runs the ingestion loop. It is strictly sequential: one
// outstanding upstream request at a time, ordered by (city, day, hour), so
// retry backoff and pacing never compound across slots.
type Builder struct {
	store       *store.Store
	fetcher     HistoricalFetcher
	logger      zerolog.Logger
	pacingDelay time.Duration
}

// New creates a dataset builder.
func New(cfg Config) *Builder {
	pacingDelay := cfg.PacingDelay
	if pacingDelay == 0 {
		pacingDelay = DefaultPacingDelay
	}
	return &Builder{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		logger:      cfg.Logger,
		pacingDelay: pacingDelay,
	}
}

// Result summarizes one builder run.
type Result struct {
	Cities      int
	Slots       int
	FailedSlots int
	RowsWritten int
	Duration    time.Duration
}

// Build ingests every (city, day, hour) slot between startDate and endDate
// inclusive. Rows are flushed durably after every slot that produced data,
// so a crash mid-run never loses already flushed rows. A slot whose fetch
// fails terminally is logged and skipped; the run continues. Re-running over
// an already covered range appends duplicate rows by design, which the
// query engine resolves with its last-write-wins fold.
func (b *Builder) Build(ctx context.Context, cities []CityReference, startDate, endDate time.Time) (*Result, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	appender, err := b.store.OpenAppender()
	if err != nil {
		return nil, err
	}
	defer appender.Close()

	start := time.Now()
	result := &Result{Cities: len(cities)}

	for _, city := range cities {
		cityRows := 0
		b.logger.Info().Str("city", city.City).Str("state", city.State).Msg("ingesting city")

		for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
			date := day.Format("2006-01-02")

			for hour := 0; hour < 24; hour++ {
				if err := ctx.Err(); err != nil {
					return result, err
				}
				result.Slots++

				rows, err := b.ingestSlot(ctx, appender, city, date, hour)
				if err != nil {
					if ctx.Err() != nil {
						return result, ctx.Err()
					}
					result.FailedSlots++
					b.logger.Warn().Err(err).
						Str("city", city.City).Str("date", date).Int("hour", hour).
						Msg("slot failed, continuing")
				}
				result.RowsWritten += rows
				cityRows += rows

				if err := b.pace(ctx); err != nil {
					return result, err
				}
			}
		}

		b.logger.Info().Str("city", city.City).Int("rows", cityRows).Msg("city ingested")
	}

	result.Duration = time.Since(start)
	b.logger.Info().
		Int("cities", result.Cities).
		Int("slots", result.Slots).
		Int("failed_slots", result.FailedSlots).
		Int("rows", result.RowsWritten).
		Dur("duration", result.Duration).
		Msg("build complete")
	return result, nil
}

// ingestSlot fetches one slot and appends its rows, flushing before return
// so the rows survive a crash in a later slot.
func (b *Builder) ingestSlot(ctx context.Context, appender *store.Appender, city CityReference, date string, hour int) (int, error) {
	entries, err := b.fetcher.Historical(ctx, city.Lat, city.Lon, date, hour)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	observations := make([]observation.Observation, 0, len(entries))
	for _, e := range entries {
		observations = append(observations, toObservation(city, date, hour, e))
	}

	if err := appender.Append(observations...); err != nil {
		return 0, err
	}
	if err := appender.Flush(); err != nil {
		return 0, err
	}
	return len(observations), nil
}

// toObservation converts an upstream entry to a store row. The stored hour
// is the upstream's own observed hour when it reported one; the requested
// hour is only a fallback. The two can diverge, and queries rely on the
// stored value.
func toObservation(city CityReference, date string, hour int, e airnow.Entry) observation.Observation {
	observedHour := e.ObservedHour
	if observedHour == "" {
		observedHour = fmt.Sprintf("%02d", hour)
	}
	return observation.Observation{
		City:      city.City,
		State:     city.State,
		Date:      date,
		Hour:      observedHour,
		Parameter: e.ParameterName,
		AQI:       e.AQI,
		Category:  e.Category,
	}
}

// pace blocks for the inter-request delay, honoring cancellation.
func (b *Builder) pace(ctx context.Context) error {
	timer := time.NewTimer(b.pacingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
