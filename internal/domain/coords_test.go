package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveName(t *testing.T) {
	dims := []string{"time", "latitude", "longitude"}

	name, ok := ResolveName(dims, LatNames)
	require.True(t, ok)
	assert.Equal(t, "latitude", name)

	name, ok = ResolveName([]string{"time", "lat", "lon"}, LatNames)
	require.True(t, ok)
	assert.Equal(t, "lat", name)

	_, ok = ResolveName([]string{"time", "y", "x"}, LatNames)
	assert.False(t, ok)
}

func TestResolveName_PrefersLongSpelling(t *testing.T) {
	// Both spellings present: the canonical one wins.
	name, ok := ResolveName([]string{"lat", "latitude"}, LatNames)
	require.True(t, ok)
	assert.Equal(t, "latitude", name)
}

func TestAscending(t *testing.T) {
	assert.True(t, Ascending([]float64{1, 2, 3}))
	assert.False(t, Ascending([]float64{3, 2, 1}))
	assert.True(t, Ascending([]float64{5}))
	assert.True(t, Ascending(nil))
}

func TestIndexRange_Ascending(t *testing.T) {
	coords := []float64{10, 12, 14, 16, 18, 20}

	start, count := IndexRange(coords, 12, 16)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, count)

	// Bounds between grid points.
	start, count = IndexRange(coords, 11.5, 16.5)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, count)

	// Whole axis.
	start, count = IndexRange(coords, 0, 100)
	assert.Equal(t, 0, start)
	assert.Equal(t, 6, count)
}

func TestIndexRange_Descending(t *testing.T) {
	coords := []float64{20, 18, 16, 14, 12, 10}

	start, count := IndexRange(coords, 12, 16)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, count)

	start, count = IndexRange(coords, 11.5, 16.5)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, count)
}

func TestIndexRange_OrderSafe(t *testing.T) {
	asc := []float64{37.0, 37.2, 37.4, 37.6, 37.8, 38.0}
	desc := make([]float64, len(asc))
	for i, v := range asc {
		desc[len(asc)-1-i] = v
	}

	aStart, aCount := IndexRange(asc, 37.3, 37.9)
	dStart, dCount := IndexRange(desc, 37.3, 37.9)
	require.Equal(t, aCount, dCount)

	// Same value set, each in its stored order.
	ascVals := asc[aStart : aStart+aCount]
	descVals := desc[dStart : dStart+dCount]
	for i := range ascVals {
		assert.Equal(t, ascVals[i], descVals[dCount-1-i])
	}
	assert.True(t, Ascending(ascVals))
	assert.False(t, Ascending(descVals))
}

func TestIndexRange_Empty(t *testing.T) {
	coords := []float64{10, 12, 14}

	_, count := IndexRange(coords, 20, 30)
	assert.Zero(t, count)

	_, count = IndexRange(coords, 0, 5)
	assert.Zero(t, count)

	// Bounds straddling a gap between grid points select nothing.
	_, count = IndexRange(coords, 12.1, 13.9)
	assert.Zero(t, count)

	// Inverted request.
	_, count = IndexRange(coords, 14, 10)
	assert.Zero(t, count)

	_, count = IndexRange(nil, 0, 1)
	assert.Zero(t, count)
}

func TestTimeIndexRange(t *testing.T) {
	base := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 10)
	for i := range times {
		times[i] = base.Add(time.Duration(i) * time.Hour)
	}

	start, count := TimeIndexRange(times, base.Add(2*time.Hour), base.Add(5*time.Hour))
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, count, "both endpoints are inclusive")

	start, count = TimeIndexRange(times, base.Add(-24*time.Hour), base.Add(240*time.Hour))
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, count)

	_, count = TimeIndexRange(times, base.Add(240*time.Hour), base.Add(241*time.Hour))
	assert.Zero(t, count)
}
