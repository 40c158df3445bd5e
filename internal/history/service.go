package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/observation"
)

const (
	dateLayout = "2006-01-02"

	// labelLayout is the time-axis label format, date plus two-digit hour.
	labelLayout = "2006-01-02 15"
)

// Scanner provides sequential access to stored observations.
type Scanner interface {
	Scan(fn func(observation.Observation) bool) error
}

// ServiceConfig holds configuration for the query service.
type ServiceConfig struct {
	// Store is the historical store to scan.
	Store Scanner

	// Logger for query diagnostics.
	Logger zerolog.Logger
}

// Service answers point and range queries. It is stateless and safe for
// concurrent use as long as no writer runs against the store at the same
// time; builds are offline and queries interactive, so the two never
// overlap. Every query is one linear scan.
type Service struct {
	store  Scanner
	logger zerolog.Logger
}

// NewService creates a query service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store:  cfg.Store,
		logger: cfg.Logger,
	}
}

// QueryAt looks up the observations for an exact (city, date, hour).
//
// Duplicate rows for the same key are resolved with an explicit fold over
// the scan: later rows overwrite earlier ones per parameter, so re-ingested
// ranges surface their most recently appended values. Returns ErrNoData
// when no row matched at all.
func (s *Service) QueryAt(city, date string, hour int) (*PointResult, error) {
	if err := validateCity(city); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := validateHour(hour); err != nil {
		return nil, err
	}

	hourStr := fmt.Sprintf("%02d", hour)
	latest := make(map[string]Reading)
	matched := false

	err := s.store.Scan(func(o observation.Observation) bool {
		if !strings.EqualFold(o.City, city) || o.Date != date || o.Hour != hourStr {
			return true
		}
		matched = true
		latest[strings.ToUpper(o.Parameter)] = Reading{AQI: o.AQI, Category: o.Category}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("point query: %w", err)
	}
	if !matched {
		return nil, ErrNoData
	}

	result := &PointResult{City: city, Date: date, Hour: hourStr}
	if r, ok := latest[strings.ToUpper(string(observation.ParameterPM25))]; ok {
		result.PM25 = &r
	}
	if r, ok := latest[strings.ToUpper(string(observation.ParameterO3))]; ok {
		result.O3 = &r
	}
	return result, nil
}

// QueryRange builds a complete hourly time series between the start and end
// timestamps inclusive. The axis is generated unconditionally; data is then
// folded onto it in file order, later rows overwriting earlier ones per
// (timestamp, parameter), consistent with QueryAt. Returns ErrNoData when
// every position of both series is absent, which is distinct from the
// rejected-input case of an inverted interval.
func (s *Service) QueryRange(city, startDate string, startHour int, endDate string, endHour int) (*TimeSeries, error) {
	if err := validateCity(city); err != nil {
		return nil, err
	}
	if err := validateDate(startDate); err != nil {
		return nil, err
	}
	if err := validateDate(endDate); err != nil {
		return nil, err
	}
	if err := validateHour(startHour); err != nil {
		return nil, err
	}
	if err := validateHour(endHour); err != nil {
		return nil, err
	}

	start := mustTimestamp(startDate, startHour)
	end := mustTimestamp(endDate, endHour)
	if end.Before(start) {
		return nil, invalidf("end %s %02d precedes start %s %02d", endDate, endHour, startDate, startHour)
	}

	// The fixed time axis, independent of what data exists.
	n := int(end.Sub(start)/time.Hour) + 1
	labels := make([]string, 0, n)
	index := make(map[string]int, n)
	for cur := start; !cur.After(end); cur = cur.Add(time.Hour) {
		index[cur.Format(labelLayout)] = len(labels)
		labels = append(labels, cur.Format(labelLayout))
	}

	series := &TimeSeries{
		City:   city,
		Labels: labels,
		PM25:   make([]*int, len(labels)),
		O3:     make([]*int, len(labels)),
	}

	err := s.store.Scan(func(o observation.Observation) bool {
		if !strings.EqualFold(o.City, city) {
			return true
		}
		pos, ok := index[o.Date+" "+o.Hour]
		if !ok {
			return true
		}
		aqi := o.AQI
		switch {
		case o.IsParameter(observation.ParameterPM25):
			series.PM25[pos] = &aqi
		case o.IsParameter(observation.ParameterO3):
			series.O3[pos] = &aqi
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}

	if !series.hasData() {
		return nil, ErrNoData
	}
	return series, nil
}

func (ts *TimeSeries) hasData() bool {
	for i := range ts.Labels {
		if ts.PM25[i] != nil || ts.O3[i] != nil {
			return true
		}
	}
	return false
}

func validateCity(city string) error {
	if strings.TrimSpace(city) == "" {
		return invalidf("city must not be empty")
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return invalidf("date %q is not in YYYY-MM-DD form", date)
	}
	return nil
}

func validateHour(hour int) error {
	if hour < 0 || hour > 23 {
		return invalidf("hour %d is outside 0-23", hour)
	}
	return nil
}

// mustTimestamp combines a validated date and hour into a time.Time.
func mustTimestamp(date string, hour int) time.Time {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		panic(fmt.Sprintf("timestamp from unvalidated date %q: %v", date, err))
	}
	return t.Add(time.Duration(hour) * time.Hour)
}
