package domain

import (
	"sort"
	"time"
)

// Coordinate spellings found across AORC releases and similar CF datasets,
// in resolution order.
var (
	TimeNames = []string{"time"}
	LatNames  = []string{"latitude", "lat"}
	LonNames  = []string{"longitude", "lon"}
)

// ResolveName returns the first candidate that appears in names.
func ResolveName(names, candidates []string) (string, bool) {
	for _, c := range candidates {
		for _, n := range names {
			if n == c {
				return c, true
			}
		}
	}
	return "", false
}

// Ascending reports whether a monotonic axis is stored low-to-high.
// Single-element axes count as ascending.
func Ascending(coords []float64) bool {
	return len(coords) < 2 || coords[0] <= coords[len(coords)-1]
}

// IndexRange selects the contiguous index interval of a monotonic coordinate
// axis whose values lie inside the closed interval [vmin, vmax]. Stored order
// is preserved, so an axis and its reversal select the same set of values.
// count is 0 when nothing falls inside the interval.
func IndexRange(coords []float64, vmin, vmax float64) (start, count int) {
	if len(coords) == 0 || vmin > vmax {
		return 0, 0
	}
	if Ascending(coords) {
		lo := sort.Search(len(coords), func(i int) bool { return coords[i] >= vmin })
		hi := sort.Search(len(coords), func(i int) bool { return coords[i] > vmax })
		if hi <= lo {
			return lo, 0
		}
		return lo, hi - lo
	}
	// Descending axis: values start at the high end, so the interval begins
	// at the first value <= vmax and ends before the first value < vmin.
	lo := sort.Search(len(coords), func(i int) bool { return coords[i] <= vmax })
	hi := sort.Search(len(coords), func(i int) bool { return coords[i] < vmin })
	if hi <= lo {
		return lo, 0
	}
	return lo, hi - lo
}

// TimeIndexRange selects the contiguous index interval of an ascending time
// axis with start <= t <= end, inclusive on both ends. AORC stores time
// ascending; a descending axis selects nothing.
func TimeIndexRange(times []time.Time, start, end time.Time) (int, int) {
	lo := sort.Search(len(times), func(i int) bool { return !times[i].Before(start) })
	hi := sort.Search(len(times), func(i int) bool { return times[i].After(end) })
	if hi <= lo {
		return lo, 0
	}
	return lo, hi - lo
}
