package builder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CityReference is one row of the builder's city list: a city name paired
// with its state and coordinates. The list is read once at startup and is
// immutable for the run.
type CityReference struct {
	City  string
	State string
	Lat   float64
	Lon   float64
}

// LoadCities parses a city reference list in city,state,lat,lon form.
// The first line is a header and is skipped, as are rows with fewer than
// four fields or unparseable coordinates.
func LoadCities(r io.Reader) ([]CityReference, error) {
	var cities []CityReference

	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		parts := strings.Split(sc.Text(), ",")
		if len(parts) < 4 {
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		cities = append(cities, CityReference{
			City:  strings.TrimSpace(parts[0]),
			State: strings.TrimSpace(parts[1]),
			Lat:   lat,
			Lon:   lon,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read city list: %w", err)
	}
	return cities, nil
}

// LoadCitiesFile reads a city reference list from a file.
func LoadCitiesFile(path string) ([]CityReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city list %s: %w", path, err)
	}
	defer f.Close()
	return LoadCities(f)
}
