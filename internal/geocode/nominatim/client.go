// Package nominatim provides a geocoding client for the OpenStreetMap
// Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aqimonitor/aqimonitor/internal/geocode"
	"github.com/aqimonitor/aqimonitor/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the Nominatim search endpoint base URL.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// ProviderName identifies this provider.
	ProviderName = "nominatim"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a resilient client
	// with defaults is created.
	HTTPClient HTTPDoer

	// Timeout for individual requests (default: 10s).
	Timeout time.Duration
}

// Client is a Nominatim geocoding client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a city name to coordinates. Nominatim requires a
// User-Agent identifying the caller.
func (c *Client) Geocode(ctx context.Context, city string) (geocode.Location, error) {
	reqURL := fmt.Sprintf("%s/search?city=%s&format=json&limit=1", c.baseURL, url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return geocode.Location{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "aqimonitor/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geocode.Location{}, fmt.Errorf("geocode %q: %w", city, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geocode.Location{}, fmt.Errorf("geocode %q: unexpected status %d", city, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geocode.Location{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return geocode.Location{}, geocode.ErrNotFound
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return geocode.Location{}, fmt.Errorf("geocode %q: malformed coordinates in response", city)
	}

	return geocode.Location{Lat: lat, Lon: lon}, nil
}
