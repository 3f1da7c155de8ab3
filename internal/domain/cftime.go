package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeCodec converts between CF-convention numeric time values and time.Time.
// CF stores time as counts of a unit since an epoch, declared in a units
// attribute such as "seconds since 1979-02-01 00:00:00".
type TimeCodec struct {
	unit     time.Duration
	unitName string
	epoch    time.Time
}

var cfUnitDurations = map[string]time.Duration{
	"days": 24 * time.Hour, "day": 24 * time.Hour, "d": 24 * time.Hour,
	"hours": time.Hour, "hour": time.Hour, "hrs": time.Hour, "hr": time.Hour, "h": time.Hour,
	"minutes": time.Minute, "minute": time.Minute, "mins": time.Minute, "min": time.Minute,
	"seconds": time.Second, "second": time.Second, "secs": time.Second, "sec": time.Second, "s": time.Second,
	"milliseconds": time.Millisecond, "millisecond": time.Millisecond, "msecs": time.Millisecond, "ms": time.Millisecond,
}

// Epoch formats seen in the wild. Values without a zone are taken as UTC.
var cfEpochLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// NewTimeCodec builds a codec from a unit name and epoch, for encoding time
// axes on output.
func NewTimeCodec(unitName string, epoch time.Time) (*TimeCodec, error) {
	unit, ok := cfUnitDurations[strings.ToLower(unitName)]
	if !ok {
		return nil, fmt.Errorf("unsupported time unit %q", unitName)
	}
	return &TimeCodec{unit: unit, unitName: strings.ToLower(unitName), epoch: epoch.UTC()}, nil
}

// ParseTimeUnits parses a CF units attribute ("<unit> since <epoch>") and
// calendar into a codec. Only real-world calendars are supported; model
// calendars like noleap or 360_day are an error.
func ParseTimeUnits(units, calendar string) (*TimeCodec, error) {
	switch strings.ToLower(calendar) {
	case "", "standard", "gregorian", "proleptic_gregorian":
	default:
		return nil, fmt.Errorf("unsupported calendar %q", calendar)
	}

	idx := strings.Index(strings.ToLower(units), " since ")
	if idx < 0 {
		return nil, fmt.Errorf("time units %q: want \"<unit> since <epoch>\"", units)
	}
	unitName := strings.ToLower(strings.TrimSpace(units[:idx]))
	unit, ok := cfUnitDurations[unitName]
	if !ok {
		return nil, fmt.Errorf("unsupported time unit %q", unitName)
	}

	epochStr := strings.TrimSpace(units[idx+len(" since "):])
	epochStr = strings.TrimSuffix(epochStr, " UTC")
	for _, layout := range cfEpochLayouts {
		if epoch, err := time.ParseInLocation(layout, epochStr, time.UTC); err == nil {
			return &TimeCodec{unit: unit, unitName: unitName, epoch: epoch.UTC()}, nil
		}
	}
	return nil, fmt.Errorf("unparseable time epoch %q", epochStr)
}

// Decode converts one stored value to UTC wall time. Integral values decode
// exactly; fractional values round to nanoseconds.
func (c *TimeCodec) Decode(v float64) time.Time {
	if v == math.Trunc(v) {
		return c.epoch.Add(time.Duration(int64(v)) * c.unit)
	}
	return c.epoch.Add(time.Duration(v * float64(c.unit)))
}

// DecodeAll decodes a whole time axis.
func (c *TimeCodec) DecodeAll(vals []float64) []time.Time {
	times := make([]time.Time, len(vals))
	for i, v := range vals {
		times[i] = c.Decode(v)
	}
	return times
}

// Encode converts a timestamp to its stored representation.
func (c *TimeCodec) Encode(t time.Time) float64 {
	return float64(t.Sub(c.epoch)) / float64(c.unit)
}

// EncodeAll encodes a whole time axis.
func (c *TimeCodec) EncodeAll(times []time.Time) []float64 {
	vals := make([]float64, len(times))
	for i, t := range times {
		vals[i] = c.Encode(t)
	}
	return vals
}

// Units renders the CF units attribute for this codec.
func (c *TimeCodec) Units() string {
	return c.unitName + " since " + c.epoch.Format("2006-01-02 15:04:05")
}
