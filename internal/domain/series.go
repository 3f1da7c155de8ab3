package domain

import (
	"math"
	"time"
)

// Series is a time series of hourly area-mean values, ascending in time.
// Times and Values are index-aligned.
type Series struct {
	Times  []time.Time
	Values []float64
}

// Len returns the number of steps in the series.
func (s Series) Len() int {
	return len(s.Times)
}

// Max returns the largest finite value and its timestamp. Ties resolve to the
// earliest timestamp, NaN values are skipped. ok is false when the series
// holds no finite value.
func (s Series) Max() (value float64, at time.Time, ok bool) {
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		if !ok || v > value {
			value, at, ok = v, s.Times[i], true
		}
	}
	return value, at, ok
}

// MissingHours counts expected timestamps absent from the series. Series
// timestamps are truncated to the whole hour (UTC) before comparison,
// matching the hourly cadence of the archive.
func (s Series) MissingHours(expected []time.Time) int {
	have := make(map[int64]struct{}, s.Len())
	for _, t := range s.Times {
		have[t.UTC().Truncate(time.Hour).Unix()] = struct{}{}
	}
	missing := 0
	for _, t := range expected {
		if _, ok := have[t.UTC().Truncate(time.Hour).Unix()]; !ok {
			missing++
		}
	}
	return missing
}

// HourlyRange returns every whole hour from start through end inclusive, in
// UTC. Bounds are truncated to the hour first; an end before start yields nil.
func HourlyRange(start, end time.Time) []time.Time {
	start = start.UTC().Truncate(time.Hour)
	end = end.UTC().Truncate(time.Hour)
	if end.Before(start) {
		return nil
	}
	hours := make([]time.Time, 0, int(end.Sub(start)/time.Hour)+1)
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		hours = append(hours, t)
	}
	return hours
}
