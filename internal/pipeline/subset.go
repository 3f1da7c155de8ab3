package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/config"
	"github.com/hydroclim/aorc-extract/internal/domain"
)

// Axis roles of the variable's storage dimensions.
const (
	axisTime = iota
	axisLat
	axisLon
)

// subset is a resolved hyperslab: the variable, the selected coordinate
// values in storage order, and enough layout bookkeeping to read the data in
// time batches and reorder it into (time, lat, lon).
type subset struct {
	variable *zarr.Variable
	units    string
	times    []time.Time
	lats     []float64
	lons     []float64

	timeChunk int    // storage chunk extent along time, the batch size
	dimAxis   [3]int // axis role per storage dimension
	starts    [3]int // selection start per storage dimension
	counts    [3]int // selection count per storage dimension
}

// resolveSubset locates the variable and its coordinate axes, decodes the
// time axis, and turns the configured window and bounding box into index
// ranges. Selection is order-safe: a descending latitude or longitude axis
// selects the same values as its ascending mirror.
func resolveSubset(ctx context.Context, ds *zarr.Dataset, cfg *config.Config) (*subset, error) {
	v, ok := ds.Var(cfg.Variable)
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", cfg.Variable, ErrVariableNotFound)
	}
	dims := v.Dims()
	if len(dims) != 3 {
		return nil, fmt.Errorf("variable %q has %d dimensions, want time, latitude and longitude", cfg.Variable, len(dims))
	}

	timeName, ok := domain.ResolveName(dims, domain.TimeNames)
	if !ok {
		return nil, fmt.Errorf("time axis among %v: %w", dims, ErrCoordinateNotFound)
	}
	latName, ok := domain.ResolveName(dims, domain.LatNames)
	if !ok {
		return nil, fmt.Errorf("latitude axis among %v: %w", dims, ErrCoordinateNotFound)
	}
	lonName, ok := domain.ResolveName(dims, domain.LonNames)
	if !ok {
		return nil, fmt.Errorf("longitude axis among %v: %w", dims, ErrCoordinateNotFound)
	}

	timeVar, timeRaw, err := readCoord(ctx, ds, timeName)
	if err != nil {
		return nil, err
	}
	units, ok := timeVar.AttrString("units")
	if !ok {
		return nil, fmt.Errorf("time axis %q has no units attribute", timeName)
	}
	calendar, _ := timeVar.AttrString("calendar")
	codec, err := domain.ParseTimeUnits(units, calendar)
	if err != nil {
		return nil, fmt.Errorf("time axis %q: %w", timeName, err)
	}
	times := codec.DecodeAll(timeRaw)
	if len(times) > 1 && times[len(times)-1].Before(times[0]) {
		return nil, fmt.Errorf("time axis %q is stored descending", timeName)
	}

	t0, nt := domain.TimeIndexRange(times, cfg.TimeStart, cfg.TimeEnd)
	if nt == 0 {
		return nil, fmt.Errorf("time window %s to %s: %w",
			cfg.TimeStart.Format(time.RFC3339), cfg.TimeEnd.Format(time.RFC3339), ErrEmptySubset)
	}

	_, latRaw, err := readCoord(ctx, ds, latName)
	if err != nil {
		return nil, err
	}
	y0, ny := domain.IndexRange(latRaw, cfg.LatMin, cfg.LatMax)
	if ny == 0 {
		return nil, fmt.Errorf("latitude range %g to %g: %w", cfg.LatMin, cfg.LatMax, ErrEmptySubset)
	}

	_, lonRaw, err := readCoord(ctx, ds, lonName)
	if err != nil {
		return nil, err
	}
	x0, nx := domain.IndexRange(lonRaw, cfg.LonMin, cfg.LonMax)
	if nx == 0 {
		return nil, fmt.Errorf("longitude range %g to %g: %w", cfg.LonMin, cfg.LonMax, ErrEmptySubset)
	}

	sub := &subset{
		variable: v,
		times:    times[t0 : t0+nt],
		lats:     latRaw[y0 : y0+ny],
		lons:     lonRaw[x0 : x0+nx],
	}
	if u, ok := v.AttrString("units"); ok {
		sub.units = u
	}

	chunks := v.Chunks()
	for d, name := range dims {
		switch name {
		case timeName:
			sub.dimAxis[d] = axisTime
			sub.starts[d], sub.counts[d] = t0, nt
			sub.timeChunk = chunks[d]
		case latName:
			sub.dimAxis[d] = axisLat
			sub.starts[d], sub.counts[d] = y0, ny
		case lonName:
			sub.dimAxis[d] = axisLon
			sub.starts[d], sub.counts[d] = x0, nx
		}
	}
	return sub, nil
}

func readCoord(ctx context.Context, ds *zarr.Dataset, name string) (*zarr.Variable, []float64, error) {
	cv, ok := ds.Var(name)
	if !ok {
		return nil, nil, fmt.Errorf("coordinate array %q: %w", name, ErrCoordinateNotFound)
	}
	if len(cv.Shape()) != 1 {
		return nil, nil, fmt.Errorf("coordinate array %q is not 1-dimensional", name)
	}
	vals, err := cv.ReadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinate array %q: %w", name, err)
	}
	return cv, vals, nil
}

// selection is the storage-order hyperslab for one batch of bn time steps
// starting at step off of the subset.
func (sub *subset) selection(off, bn int) zarr.Selection {
	sel := zarr.Selection{Start: make([]int, 3), Count: make([]int, 3)}
	for d := 0; d < 3; d++ {
		if sub.dimAxis[d] == axisTime {
			sel.Start[d] = sub.starts[d] + off
			sel.Count[d] = bn
		} else {
			sel.Start[d] = sub.starts[d]
			sel.Count[d] = sub.counts[d]
		}
	}
	return sel
}

// scatter reorders one batch from storage dimension order into (time, lat,
// lon) order. dst must hold bn full planes.
func (sub *subset) scatter(flat []float64, bn int, dst []float64) {
	var counts [3]int
	for d := 0; d < 3; d++ {
		if sub.dimAxis[d] == axisTime {
			counts[d] = bn
		} else {
			counts[d] = sub.counts[d]
		}
	}
	if sub.dimAxis == [3]int{axisTime, axisLat, axisLon} {
		copy(dst, flat)
		return
	}

	var strides [3]int
	stride := 1
	for d := 2; d >= 0; d-- {
		strides[d] = stride
		stride *= counts[d]
	}
	var tStr, yStr, xStr, ny, nx int
	for d := 0; d < 3; d++ {
		switch sub.dimAxis[d] {
		case axisTime:
			tStr = strides[d]
		case axisLat:
			yStr, ny = strides[d], counts[d]
		case axisLon:
			xStr, nx = strides[d], counts[d]
		}
	}
	i := 0
	for ti := 0; ti < bn; ti++ {
		for yi := 0; yi < ny; yi++ {
			for xi := 0; xi < nx; xi++ {
				dst[i] = flat[ti*tStr+yi*yStr+xi*xStr]
				i++
			}
		}
	}
}
