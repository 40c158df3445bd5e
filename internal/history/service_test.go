package history_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqimonitor/aqimonitor/internal/history"
	"github.com/aqimonitor/aqimonitor/internal/observation"
)

// sliceScanner serves observations from memory in a fixed order,
// standing in for the file store.
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

func row(city, date, hour, param string, aqi int, category string) observation.Observation {
	return observation.Observation{
		City: city, State: "Illinois", Date: date, Hour: hour,
		Parameter: param, AQI: aqi, Category: category,
	}
}

func newService(rows ...observation.Observation) *history.Service {
	return history.NewService(history.ServiceConfig{
		Store:  &sliceScanner{rows: rows},
		Logger: zerolog.Nop(),
	})
}

func TestQueryAt_ReturnsBothParameters(t *testing.T) {
	svc := newService(
		row("Chicago", "2025-06-09", "02", "PM2.5", 42, "Moderate"),
		row("Chicago", "2025-06-09", "02", "O3", 31, "Good"),
		row("Chicago", "2025-06-09", "03", "PM2.5", 99, "Moderate"),
	)

	result, err := svc.QueryAt("Chicago", "2025-06-09", 2)
	require.NoError(t, err)

	require.NotNil(t, result.PM25)
	assert.Equal(t, history.Reading{AQI: 42, Category: "Moderate"}, *result.PM25)
	require.NotNil(t, result.O3)
	assert.Equal(t, history.Reading{AQI: 31, Category: "Good"}, *result.O3)
	assert.Equal(t, "02", result.Hour)
}

func TestQueryAt_CityMatchIsCaseInsensitive(t *testing.T) {
	svc := newService(row("Chicago", "2025-06-09", "02", "PM2.5", 42, "Moderate"))

	result, err := svc.QueryAt("chicago", "2025-06-09", 2)
	require.NoError(t, err)
	require.NotNil(t, result.PM25)
}

func TestQueryAt_LastWriteWins(t *testing.T) {
	// Duplicate rows from a re-run: the later append overrides.
	svc := newService(
		row("Chicago", "2025-06-09", "02", "PM2.5", 42, "Moderate"),
		row("Chicago", "2025-06-09", "02", "pm2.5", 57, "Moderate"),
	)

	result, err := svc.QueryAt("Chicago", "2025-06-09", 2)
	require.NoError(t, err)
	require.NotNil(t, result.PM25)
	assert.Equal(t, 57, result.PM25.AQI)
}

func TestQueryAt_OtherParametersPassThrough(t *testing.T) {
	// A matching row for a parameter other than PM2.5/O3 still counts as
	// data; the result just carries neither reading.
	svc := newService(row("Chicago", "2025-06-09", "02", "CO", 7, "Good"))

	result, err := svc.QueryAt("Chicago", "2025-06-09", 2)
	require.NoError(t, err)
	assert.Nil(t, result.PM25)
	assert.Nil(t, result.O3)
}

func TestQueryAt_NoData(t *testing.T) {
	svc := newService(row("Chicago", "2025-06-09", "02", "PM2.5", 42, "Moderate"))

	_, err := svc.QueryAt("Houston", "2025-06-09", 2)
	assert.ErrorIs(t, err, history.ErrNoData)
}

func TestQueryAt_RejectsInvalidInput(t *testing.T) {
	svc := newService()

	tests := []struct {
		name string
		city string
		date string
		hour int
	}{
		{name: "empty city", city: "  ", date: "2025-06-09", hour: 2},
		{name: "bad date", city: "Chicago", date: "06/09/2025", hour: 2},
		{name: "hour too large", city: "Chicago", date: "2025-06-09", hour: 24},
		{name: "negative hour", city: "Chicago", date: "2025-06-09", hour: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.QueryAt(tt.city, tt.date, tt.hour)
			var invalid *history.InvalidQueryError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestQueryAt_StoreErrorSurfaces(t *testing.T) {
	svc := history.NewService(history.ServiceConfig{
		Store:  &sliceScanner{err: errors.New("disk gone")},
		Logger: zerolog.Nop(),
	})

	_, err := svc.QueryAt("Chicago", "2025-06-09", 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, history.ErrNoData)
}

func TestQueryRange_AxisCoversFullInterval(t *testing.T) {
	svc := newService(
		row("Chicago", "2025-06-01", "03", "PM2.5", 55, "Moderate"),
	)

	series, err := svc.QueryRange("Chicago", "2025-06-01", 2, "2025-06-01", 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-06-01 02", "2025-06-01 03", "2025-06-01 04"}, series.Labels)
	require.Len(t, series.PM25, 3)
	require.Len(t, series.O3, 3)

	assert.Nil(t, series.PM25[0])
	require.NotNil(t, series.PM25[1])
	assert.Equal(t, 55, *series.PM25[1])
	assert.Nil(t, series.PM25[2])
	assert.Equal(t, []*int{nil, nil, nil}, series.O3)
}

func TestQueryRange_AxisSpansMidnight(t *testing.T) {
	svc := newService(row("Chicago", "2025-06-02", "01", "O3", 20, "Good"))

	series, err := svc.QueryRange("Chicago", "2025-06-01", 22, "2025-06-02", 3)
	require.NoError(t, err)

	// floor(hours between) + 1 entries, strictly hourly.
	require.Len(t, series.Labels, 6)
	assert.Equal(t, "2025-06-01 22", series.Labels[0])
	assert.Equal(t, "2025-06-02 00", series.Labels[2])
	assert.Equal(t, "2025-06-02 03", series.Labels[5])
}

func TestQueryRange_LastWriteWins(t *testing.T) {
	svc := newService(
		row("Chicago", "2025-06-01", "03", "PM2.5", 55, "Moderate"),
		row("Chicago", "2025-06-01", "03", "PM2.5", 61, "Moderate"),
	)

	series, err := svc.QueryRange("Chicago", "2025-06-01", 3, "2025-06-01", 3)
	require.NoError(t, err)
	require.NotNil(t, series.PM25[0])
	assert.Equal(t, 61, *series.PM25[0])
}

func TestQueryRange_NoDataForInterval(t *testing.T) {
	svc := newService(row("Houston", "2025-06-01", "03", "PM2.5", 55, "Moderate"))

	_, err := svc.QueryRange("Chicago", "2025-06-01", 0, "2025-06-01", 23)
	assert.ErrorIs(t, err, history.ErrNoData)
}

func TestQueryRange_RejectsInvertedInterval(t *testing.T) {
	svc := newService(row("Chicago", "2025-06-01", "03", "PM2.5", 55, "Moderate"))

	_, err := svc.QueryRange("Chicago", "2025-06-02", 0, "2025-06-01", 23)
	var invalid *history.InvalidQueryError
	require.ErrorAs(t, err, &invalid)
	assert.NotErrorIs(t, err, history.ErrNoData)

	// Same day, end hour before start hour.
	_, err = svc.QueryRange("Chicago", "2025-06-01", 5, "2025-06-01", 4)
	assert.ErrorAs(t, err, &invalid)
}

func TestQueryRange_SingleHourInterval(t *testing.T) {
	svc := newService(row("Chicago", "2025-06-01", "03", "O3", 18, "Good"))

	series, err := svc.QueryRange("Chicago", "2025-06-01", 3, "2025-06-01", 3)
	require.NoError(t, err)
	require.Len(t, series.Labels, 1)
	require.NotNil(t, series.O3[0])
	assert.Equal(t, 18, *series.O3[0])
}

func TestQueryRange_UnknownValueIsPresent(t *testing.T) {
	// A stored -1 is a matched observation with no value; it still counts
	// as data on the axis.
	svc := newService(row("Chicago", "2025-06-01", "03", "PM2.5", -1, ""))

	series, err := svc.QueryRange("Chicago", "2025-06-01", 3, "2025-06-01", 3)
	require.NoError(t, err)
	require.NotNil(t, series.PM25[0])
	assert.Equal(t, -1, *series.PM25[0])
}
