// Package resilience provides a resilient HTTP client for external provider
// calls that tolerate generic retry semantics (the geocoder and the current
// observation endpoint). The historical ingest path has its own, stricter
// retry policy and does not use this client.
package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the wrapped provider for circuit breaker naming.
	Name string

	// Timeout for individual HTTP calls. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 3.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval. Default: 200ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval. Default: 5s.
	MaxInterval time.Duration

	// BreakerTimeout is how long the breaker stays open before probing
	// again. Default: 60s.
	BreakerTimeout time.Duration
}

// Client wraps http.Client with a circuit breaker and exponential-backoff
// retries on transport errors and 5xx responses.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// Do executes req, retrying transport errors and 5xx responses with
// exponential backoff. An open circuit breaker short-circuits immediately
// with ErrCircuitOpen. The caller owns the returned response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.httpClient.Do(req.Clone(ctx))
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				// 5xx counts as a failure so the breaker can trip.
				return r, &serverError{status: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				resp.Body.Close()
			}
			return err
		}
		lastResp = resp
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return lastResp, nil
}

// State exposes the breaker state, mainly for readiness reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return "server error: " + http.StatusText(e.status)
}
