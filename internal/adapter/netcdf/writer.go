// Package netcdf writes the gridded subset to a classic NetCDF file: the
// data variable in (time, latitude, longitude) order plus CF coordinate
// variables, self-describing enough for downstream xarray or ncdump use.
package netcdf

import (
	"fmt"
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/hydroclim/aorc-extract/internal/domain"
)

// WriteGrid writes grid to path. The time axis is encoded as fractional
// hours since the first stored timestamp.
func WriteGrid(path string, grid *domain.Grid) error {
	if len(grid.Times) == 0 {
		return fmt.Errorf("grid has no time steps")
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := addGridVars(cw, grid); err != nil {
		_ = cw.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func addGridVars(cw *cdf.CDFWriter, grid *domain.Grid) error {
	global, err := util.NewOrderedMap(
		[]string{"Conventions", "history"},
		map[string]any{
			"Conventions": "CF-1.7",
			"history":     clock.Now().UTC().Format(time.RFC3339) + ": precipitation subset and area-mean extraction",
		},
	)
	if err != nil {
		return err
	}
	if err := cw.AddGlobalAttrs(global); err != nil {
		return err
	}

	codec, err := domain.NewTimeCodec("hours", grid.Times[0])
	if err != nil {
		return err
	}
	timeAttrs, err := util.NewOrderedMap(
		[]string{"units", "calendar"},
		map[string]any{
			"units":    codec.Units(),
			"calendar": "proleptic_gregorian",
		},
	)
	if err != nil {
		return err
	}
	if err := cw.AddVar("time", api.Variable{
		Values:     codec.EncodeAll(grid.Times),
		Dimensions: []string{"time"},
		Attributes: timeAttrs,
	}); err != nil {
		return err
	}

	latAttrs, err := util.NewOrderedMap(
		[]string{"units", "standard_name"},
		map[string]any{"units": "degrees_north", "standard_name": "latitude"},
	)
	if err != nil {
		return err
	}
	if err := cw.AddVar("latitude", api.Variable{
		Values:     grid.Lats,
		Dimensions: []string{"latitude"},
		Attributes: latAttrs,
	}); err != nil {
		return err
	}

	lonAttrs, err := util.NewOrderedMap(
		[]string{"units", "standard_name"},
		map[string]any{"units": "degrees_east", "standard_name": "longitude"},
	)
	if err != nil {
		return err
	}
	if err := cw.AddVar("longitude", api.Variable{
		Values:     grid.Lons,
		Dimensions: []string{"longitude"},
		Attributes: lonAttrs,
	}); err != nil {
		return err
	}

	keys := []string{"_FillValue"}
	vals := map[string]any{"_FillValue": math.NaN()}
	if grid.Units != "" {
		keys = append([]string{"units"}, keys...)
		vals["units"] = grid.Units
	}
	dataAttrs, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return err
	}
	return cw.AddVar(grid.Name, api.Variable{
		Values:     reshape(grid),
		Dimensions: []string{"time", "latitude", "longitude"},
		Attributes: dataAttrs,
	})
}

// reshape views the flat C-order values as nested time/lat/lon slices, the
// layout the cdf writer expects.
func reshape(grid *domain.Grid) [][][]float64 {
	nx := len(grid.Lons)
	out := make([][][]float64, len(grid.Times))
	for t := range grid.Times {
		plane := grid.Plane(t)
		rows := make([][]float64, len(grid.Lats))
		for y := range grid.Lats {
			rows[y] = plane[y*nx : (y+1)*nx]
		}
		out[t] = rows
	}
	return out
}
