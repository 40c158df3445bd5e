// Package observation defines the AQI observation record and its on-disk codec.
package observation

import "strings"

// Parameter represents a pollutant parameter code.
type Parameter string

const (
	ParameterPM25 Parameter = "PM2.5"
	ParameterO3   Parameter = "O3"
)

// Observation is one pollutant reading at a city, date, and hour.
// Date is always YYYY-MM-DD and Hour is always two-digit zero-padded text;
// both are kept as strings because that is their stored form and queries
// compare them literally.
type Observation struct {
	City      string
	State     string
	Date      string
	Hour      string
	Parameter string
	AQI       int // -1 means no value reported
	Category  string
}

// IsParameter reports whether the observation's parameter matches p,
// ignoring case. Parameters other than the known codes pass through the
// system verbatim and are matched the same way.
func (o Observation) IsParameter(p Parameter) bool {
	return strings.EqualFold(o.Parameter, string(p))
}
