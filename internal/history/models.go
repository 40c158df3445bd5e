// Package history answers point and range queries against the historical
// store, reconstructing a regular hourly time axis from its sparse rows.
package history

import (
	"errors"
	"fmt"
)

// ErrNoData is the non-error outcome for a valid query that matched no
// observations. Callers distinguish it from rejected input.
var ErrNoData = errors.New("no matching observations")

// InvalidQueryError rejects a query before any store scan happens.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// invalidf builds an InvalidQueryError from a format string.
func invalidf(format string, args ...any) *InvalidQueryError {
	return &InvalidQueryError{Reason: fmt.Sprintf(format, args...)}
}

// Reading is one parameter's value at a point in time.
type Reading struct {
	AQI      int    `json:"aqi"`
	Category string `json:"category"`
}

// PointResult is the outcome of a point query. A nil Reading means the
// store holds no row for that parameter at the requested time.
type PointResult struct {
	City string   `json:"city"`
	Date string   `json:"date"`
	Hour string   `json:"hour"`
	PM25 *Reading `json:"pm25,omitempty"`
	O3   *Reading `json:"o3,omitempty"`
}

// TimeSeries is the outcome of a range query: a full hourly axis with one
// optional value per parameter per position. PM25 and O3 run parallel to
// Labels; nil marks an hour with no matching observation.
type TimeSeries struct {
	City   string   `json:"city"`
	Labels []string `json:"labels"`
	PM25   []*int   `json:"pm25"`
	O3     []*int   `json:"o3"`
}
