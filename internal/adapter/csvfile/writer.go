// Package csvfile writes the area-mean series as a two-column CSV file.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hydroclim/aorc-extract/internal/domain"
)

// WriteSeries writes the series to path with a "time,<valueColumn>" header,
// one row per time step in series order. Timestamps are RFC 3339 UTC; values
// keep full float64 precision, with NaN spelled out for steps whose cells
// were all missing.
func WriteSeries(path, valueColumn string, series domain.Series) error {
	if len(series.Times) != len(series.Values) {
		return fmt.Errorf("series has %d timestamps for %d values", len(series.Times), len(series.Values))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	werr := w.Write([]string{"time", valueColumn})
	for i := 0; werr == nil && i < len(series.Times); i++ {
		werr = w.Write([]string{
			series.Times[i].UTC().Format(time.RFC3339),
			strconv.FormatFloat(series.Values[i], 'g', -1, 64),
		})
	}
	w.Flush()
	if werr == nil {
		werr = w.Error()
	}
	if werr != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, werr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
