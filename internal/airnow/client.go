// Package airnow provides a client for the AirNow observation API.
package airnow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the base URL for the AirNow API.
	DefaultBaseURL = "https://www.airnowapi.org"

	// ProviderName identifies this provider.
	ProviderName = "airnow"

	// DefaultSearchRadiusMiles is the search radius passed to the API.
	DefaultSearchRadiusMiles = 25

	// DefaultRateLimitBackoff is how long to wait after a rate-limit
	// response before retrying. AirNow throttles aggressively; the wait is
	// deliberately on the order of minutes.
	DefaultRateLimitBackoff = 2 * time.Minute

	// DefaultMaxAttempts bounds the total attempts per historical slot,
	// including the first.
	DefaultMaxAttempts = 5
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the AirNow client.
type ClientConfig struct {
	// APIKey is the static AirNow API credential (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client for request execution. If nil, a plain
	// http.Client with a 10s timeout is used. The historical fetch supplies
	// its own retry policy, so the injected client should not retry.
	HTTPClient HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger

	// RateLimitBackoff overrides the wait after a rate-limit response.
	RateLimitBackoff time.Duration

	// MaxAttempts overrides the per-slot attempt bound.
	MaxAttempts int
}

// Client is an AirNow API client.
type Client struct {
	apiKey           string
	baseURL          string
	httpClient       HTTPDoer
	logger           zerolog.Logger
	rateLimitBackoff time.Duration
	maxAttempts      int
}

// NewClient creates a new AirNow client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	rateLimitBackoff := cfg.RateLimitBackoff
	if rateLimitBackoff == 0 {
		rateLimitBackoff = DefaultRateLimitBackoff
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Client{
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		httpClient:       httpClient,
		logger:           cfg.Logger,
		rateLimitBackoff: rateLimitBackoff,
		maxAttempts:      maxAttempts,
	}
}

// Entry is one pollutant entry from an AirNow observation response.
type Entry struct {
	ParameterName string
	AQI           int
	Category      string

	// ObservedHour is the two-digit hour the upstream reports for the
	// observation, or empty when it reported none. It can disagree with the
	// hour that was requested; the stored row uses this value when present.
	ObservedHour string
}

// API response shape. Category is nested; AQI may be absent.
type apiEntry struct {
	DateObserved  string `json:"DateObserved"`
	HourObserved  *int   `json:"HourObserved"`
	ParameterName string `json:"ParameterName"`
	AQI           *int   `json:"AQI"`
	Category      struct {
		Name string `json:"Name"`
	} `json:"Category"`
}

// Historical fetches pollutant observations for one (lat, lon, date, hour)
// slot. The request timestamp always carries a literal -0000 offset: the
// upstream is queried as if the given hour were UTC regardless of the city's
// real time zone, a known simplification that queries downstream depend on.
//
// Rate-limit responses are retried after a fixed long backoff, up to the
// configured attempt bound. Every other failure, and exhausted retries,
// degrade to (nil, nil): one failed slot never aborts a builder run. The
// only error returned is context cancellation.
func (c *Client) Historical(ctx context.Context, lat, lon float64, date string, hour int) ([]Entry, error) {
	reqURL := fmt.Sprintf(
		"%s/aq/observation/latLong/historical/?format=application/json&latitude=%.4f&longitude=%.4f&date=%sT%02d-0000&distance=%d&API_KEY=%s",
		c.baseURL, lat, lon, date, hour, DefaultSearchRadiusMiles, url.QueryEscape(c.apiKey),
	)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.rateLimitBackoff), uint64(c.maxAttempts-1)),
		ctx,
	)

	var entries []Entry
	attempt := 0

	operation := func() error {
		attempt++
		result, status, err := c.fetch(ctx, reqURL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			// Network and I/O failures are terminal for this slot.
			c.logger.Warn().Err(err).Str("date", date).Int("hour", hour).
				Msg("airnow request failed, skipping slot")
			entries = nil
			return nil
		case status == http.StatusTooManyRequests:
			c.logger.Warn().Str("date", date).Int("hour", hour).
				Int("attempt", attempt).Int("max_attempts", c.maxAttempts).
				Dur("backoff", c.rateLimitBackoff).
				Msg("airnow rate limited, backing off")
			return fmt.Errorf("rate limited (attempt %d/%d)", attempt, c.maxAttempts)
		case status != http.StatusOK:
			c.logger.Warn().Int("status", status).Str("date", date).Int("hour", hour).
				Msg("airnow returned non-success status, skipping slot")
			entries = nil
			return nil
		default:
			entries = result
			return nil
		}
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn().Str("date", date).Int("hour", hour).
			Msg("airnow retries exhausted, skipping slot")
		return nil, nil
	}
	return entries, nil
}

// Current fetches the current observations for a location. Unlike the
// historical fetch there is no retry loop; a non-success status yields
// (nil, nil) and transport errors surface to the caller.
func (c *Client) Current(ctx context.Context, lat, lon float64) ([]Entry, error) {
	reqURL := fmt.Sprintf(
		"%s/aq/observation/latLong/current/?format=application/json&latitude=%.4f&longitude=%.4f&distance=%d&API_KEY=%s",
		c.baseURL, lat, lon, DefaultSearchRadiusMiles, url.QueryEscape(c.apiKey),
	)

	entries, status, err := c.fetch(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch current observations: %w", err)
	}
	if status != http.StatusOK {
		c.logger.Warn().Int("status", status).Msg("airnow returned non-success status for current observations")
		return nil, nil
	}
	return entries, nil
}

// fetch executes one request and decodes the body when the status is 200.
func (c *Client) fetch(ctx context.Context, reqURL string) ([]Entry, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "aqimonitor/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var raw []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, toEntry(&e))
	}
	return entries, resp.StatusCode, nil
}

// toEntry converts an API entry to the domain shape, deriving the observed
// hour from the explicit HourObserved field when present, or from an ISO
// DateObserved timestamp otherwise.
func toEntry(e *apiEntry) Entry {
	observedHour := ""
	if e.HourObserved != nil && *e.HourObserved >= 0 && *e.HourObserved <= 23 {
		observedHour = fmt.Sprintf("%02d", *e.HourObserved)
	} else if idx := strings.Index(e.DateObserved, "T"); idx >= 0 && len(e.DateObserved) >= idx+3 {
		observedHour = e.DateObserved[idx+1 : idx+3]
	}

	aqi := -1
	if e.AQI != nil {
		aqi = *e.AQI
	}

	return Entry{
		ParameterName: e.ParameterName,
		AQI:           aqi,
		Category:      e.Category.Name,
		ObservedHour:  observedHour,
	}
}
