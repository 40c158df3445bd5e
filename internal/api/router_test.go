package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqimonitor/aqimonitor/internal/airnow"
	"github.com/aqimonitor/aqimonitor/internal/api"
	"github.com/aqimonitor/aqimonitor/internal/api/models"
	"github.com/aqimonitor/aqimonitor/internal/current"
	"github.com/aqimonitor/aqimonitor/internal/geocode"
	"github.com/aqimonitor/aqimonitor/internal/history"
	"github.com/aqimonitor/aqimonitor/internal/observation"
)

// sliceScanner serves observations from memory in place of the flat file.
type sliceScanner struct {
	rows []observation.Observation
	err  error
}

func (s *sliceScanner) Scan(fn func(observation.Observation) bool) error {
	if s.err != nil {
		return s.err
	}
	for _, o := range s.rows {
		if !fn(o) {
			return nil
		}
	}
	return nil
}

type stubGeocoder struct {
	loc geocode.Location
	err error
}

func (g *stubGeocoder) Geocode(context.Context, string) (geocode.Location, error) {
	return g.loc, g.err
}

type stubFetcher struct {
	entries []airnow.Entry
	err     error
}

func (f *stubFetcher) Current(context.Context, float64, float64) ([]airnow.Entry, error) {
	return f.entries, f.err
}

func testRows() []observation.Observation {
	return []observation.Observation{
		{City: "Chicago", State: "IL", Date: "2024-03-01", Hour: "08", Parameter: "PM2.5", AQI: 42, Category: "Good"},
		{City: "Chicago", State: "IL", Date: "2024-03-01", Hour: "08", Parameter: "O3", AQI: 31, Category: "Good"},
		{City: "Chicago", State: "IL", Date: "2024-03-01", Hour: "09", Parameter: "PM2.5", AQI: 55, Category: "Moderate"},
	}
}

func newTestRouter(scanner history.Scanner, fetcher current.Fetcher) http.Handler {
	logger := zerolog.New(io.Discard)
	historyService := history.NewService(history.ServiceConfig{
		Store:  scanner,
		Logger: logger,
	})
	currentService := current.NewService(current.ServiceConfig{
		Geocoder: &stubGeocoder{loc: geocode.Location{Lat: 41.88, Lon: -87.63}},
		Fetcher:  fetcher,
		Logger:   logger,
	})
	return api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "2024-01-01T00:00:00Z",
		Logger:         logger,
		HistoryService: historyService,
		CurrentService: currentService,
	})
}

func defaultTestRouter() http.Handler {
	return newTestRouter(&sliceScanner{rows: testRows()}, &stubFetcher{entries: []airnow.Entry{
		{ParameterName: "PM2.5", AQI: 42, Category: "Good"},
		{ParameterName: "O3", AQI: 31, Category: "Good"},
	}})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck_DatasetMissing(t *testing.T) {
	logger := zerolog.New(io.Discard)
	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		HistoryService: history.NewService(history.ServiceConfig{
			Store:  &sliceScanner{},
			Logger: logger,
		}),
		CurrentService: current.NewService(current.ServiceConfig{
			Geocoder: &stubGeocoder{},
			Fetcher:  &stubFetcher{},
			Logger:   logger,
		}),
		ReadyCheck: func() error { return errors.New("dataset file missing") },
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusDegraded, health.Status)
}

func TestRouter_PointQuery(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history/point?city=chicago&date=2024-03-01&hour=8", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result history.PointResult
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	require.NotNil(t, result.PM25)
	assert.Equal(t, 42, result.PM25.AQI)
	require.NotNil(t, result.O3)
	assert.Equal(t, 31, result.O3.AQI)
	assert.Equal(t, "08", result.Hour)
}

func TestRouter_PointQuery_NoData(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history/point?city=denver&date=2024-03-01&hour=8", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
	assert.NotEmpty(t, problem.TraceID)
}

func TestRouter_PointQuery_InvalidHour(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history/point?city=chicago&date=2024-03-01&hour=eight", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "hour", problem.Errors[0].Field)
}

func TestRouter_PointQuery_HourOutOfRange(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history/point?city=chicago&date=2024-03-01&hour=24", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
}

func TestRouter_PointQuery_ScanFailure(t *testing.T) {
	router := newTestRouter(&sliceScanner{err: errors.New("disk gone")}, &stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/v1/history/point?city=chicago&date=2024-03-01&hour=8", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeInternal, problem.Type)
}

func TestRouter_RangeQuery(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet,
		"/v1/history/range?city=chicago&start_date=2024-03-01&start_hour=8&end_date=2024-03-01&end_hour=10", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var series history.TimeSeries
	err := json.Unmarshal(w.Body.Bytes(), &series)
	require.NoError(t, err)

	require.Len(t, series.Labels, 3)
	assert.Equal(t, "2024-03-01 08", series.Labels[0])
	require.Len(t, series.PM25, 3)
	require.NotNil(t, series.PM25[0])
	assert.Equal(t, 42, *series.PM25[0])
	require.NotNil(t, series.PM25[1])
	assert.Equal(t, 55, *series.PM25[1])
	assert.Nil(t, series.PM25[2])
	assert.Nil(t, series.O3[1])
}

func TestRouter_RangeQuery_InvertedInterval(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet,
		"/v1/history/range?city=chicago&start_date=2024-03-02&start_hour=0&end_date=2024-03-01&end_hour=0", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
}

func TestRouter_RangeQuery_MissingHour(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet,
		"/v1/history/range?city=chicago&start_date=2024-03-01&end_date=2024-03-01&end_hour=10", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "start_hour", problem.Errors[0].Field)
}

func TestRouter_Current(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/current?city=Chicago", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var snapshot current.Snapshot
	err := json.Unmarshal(w.Body.Bytes(), &snapshot)
	require.NoError(t, err)

	assert.Equal(t, "Chicago", snapshot.City)
	require.NotNil(t, snapshot.PM25)
	assert.Equal(t, 42, snapshot.PM25.AQI)
}

func TestRouter_Current_MissingCity(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/current", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "city", problem.Errors[0].Field)
}

func TestRouter_Current_NoObservations(t *testing.T) {
	router := newTestRouter(&sliceScanner{}, &stubFetcher{entries: nil})

	req := httptest.NewRequest(http.MethodGet, "/v1/current?city=Chicago", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Current_UpstreamFailure(t *testing.T) {
	router := newTestRouter(&sliceScanner{}, &stubFetcher{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/v1/current?city=Chicago", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeUnavailable, problem.Type)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := defaultTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
