package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlySeries(start time.Time, values ...float64) Series {
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return Series{Times: times, Values: values}
}

func TestSeriesMax(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, 0.2, 1.7, 0.9, 1.1)

	v, at, ok := s.Max()
	require.True(t, ok)
	assert.Equal(t, 1.7, v)
	assert.Equal(t, start.Add(1*time.Hour), at)
}

func TestSeriesMax_TieResolvesToEarliest(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, 0.5, 2.0, 1.0, 2.0, 2.0)

	v, at, ok := s.Max()
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, start.Add(1*time.Hour), at)
}

func TestSeriesMax_SkipsNaN(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, math.NaN(), 0.4, math.NaN())

	v, at, ok := s.Max()
	require.True(t, ok)
	assert.Equal(t, 0.4, v)
	assert.Equal(t, start.Add(1*time.Hour), at)
}

func TestSeriesMax_NoFiniteValues(t *testing.T) {
	_, _, ok := Series{}.Max()
	assert.False(t, ok)

	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	_, _, ok = hourlySeries(start, math.NaN(), math.NaN()).Max()
	assert.False(t, ok)
}

func TestHourlyRange(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)

	hours := HourlyRange(start, start.Add(4*time.Hour))
	require.Len(t, hours, 5, "both endpoints are inclusive")
	assert.Equal(t, start, hours[0])
	assert.Equal(t, start.Add(4*time.Hour), hours[4])

	assert.Len(t, HourlyRange(start, start), 1)
	assert.Nil(t, HourlyRange(start, start.Add(-time.Hour)))
}

func TestHourlyRange_TruncatesBounds(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 30, 0, 0, time.UTC)
	end := time.Date(2015, 6, 1, 2, 45, 0, 0, time.UTC)

	hours := HourlyRange(start, end)
	require.Len(t, hours, 3)
	assert.Equal(t, time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC), hours[0])
	assert.Equal(t, time.Date(2015, 6, 1, 2, 0, 0, 0, time.UTC), hours[2])
}

func TestMissingHours_CompleteWindow(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, 1, 2, 3, 4, 5)

	expected := HourlyRange(start, start.Add(4*time.Hour))
	assert.Zero(t, s.MissingHours(expected))
}

func TestMissingHours_CountsGaps(t *testing.T) {
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := Series{
		Times: []time.Time{
			start,
			start.Add(1 * time.Hour),
			// Hours 2, 3, 4 absent.
			start.Add(5 * time.Hour),
		},
		Values: []float64{1, 2, 6},
	}

	expected := HourlyRange(start, start.Add(5*time.Hour))
	assert.Equal(t, 3, s.MissingHours(expected))
}

func TestMissingHours_TruncatesToHour(t *testing.T) {
	// Timestamps off the whole hour still satisfy their hour slot.
	s := Series{
		Times:  []time.Time{time.Date(2015, 6, 1, 0, 30, 0, 0, time.UTC)},
		Values: []float64{1},
	}
	expected := []time.Time{time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)}
	assert.Zero(t, s.MissingHours(expected))
}
