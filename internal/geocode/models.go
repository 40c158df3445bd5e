// Package geocode defines the geocoding collaborator interface.
package geocode

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the geocoder has no match for a city name.
var ErrNotFound = errors.New("city not found")

// Location is a geographic coordinate pair.
type Location struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Location, error)
}
