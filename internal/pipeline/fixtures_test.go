package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/config"
	"github.com/hydroclim/aorc-extract/internal/observability"
)

const testTimeUnits = "hours since 2015-06-01 00:00:00"

// Fixed longitude axis of the synthetic archive.
var testLons = []float64{-90.0, -89.5, -89.0, -88.5}

// apcpVal is the synthetic cell value at logical position (time, lat, lon),
// chosen so every cell is distinct and the position is readable off the value.
func apcpVal(ti, yi, xi int) float64 {
	return float64(ti*100 + yi*10 + xi)
}

// archiveOpts tweaks the synthetic archive. Zero values select the defaults:
// storage order (time, latitude, longitude), three ascending latitudes, six
// consecutive hours, CF time units on the time axis.
type archiveOpts struct {
	dims      []string
	lats      []float64
	hours     []float64
	timeAttrs map[string]any
}

// buildArchive writes a small consolidated archive into a fresh MemStore:
// a 3-D precipitation array chunked across every dimension, plus its
// coordinate axes. Cell values follow apcpVal regardless of storage order.
func buildArchive(t *testing.T, opts archiveOpts) *zarr.MemStore {
	t.Helper()
	if opts.dims == nil {
		opts.dims = []string{"time", "latitude", "longitude"}
	}
	if opts.lats == nil {
		opts.lats = []float64{35.0, 35.5, 36.0}
	}
	if opts.hours == nil {
		opts.hours = []float64{0, 1, 2, 3, 4, 5}
	}
	if opts.timeAttrs == nil {
		opts.timeAttrs = map[string]any{"units": testTimeUnits, "calendar": "standard"}
	}

	ctx := context.Background()
	store := zarr.NewMemStore()
	require.NoError(t, zarr.WriteGroup(ctx, store, map[string]any{"source": "synthetic"}))

	nt, ny, nx := len(opts.hours), len(opts.lats), len(testLons)
	var latName, lonName string
	shape := make([]int, 3)
	chunks := make([]int, 3)
	for d, name := range opts.dims {
		switch name {
		case "time":
			shape[d], chunks[d] = nt, 2
		case "latitude", "lat":
			shape[d], chunks[d] = ny, 2
			latName = name
		default:
			shape[d], chunks[d] = nx, 3
			lonName = name
		}
	}

	// Fill in storage order, deriving the logical position of each cell from
	// the dimension roles.
	data := make([]float64, nt*ny*nx)
	var idx [3]int
	i := 0
	for idx[0] = 0; idx[0] < shape[0]; idx[0]++ {
		for idx[1] = 0; idx[1] < shape[1]; idx[1]++ {
			for idx[2] = 0; idx[2] < shape[2]; idx[2]++ {
				var ti, yi, xi int
				for d, name := range opts.dims {
					switch name {
					case "time":
						ti = idx[d]
					case latName:
						yi = idx[d]
					default:
						xi = idx[d]
					}
				}
				data[i] = apcpVal(ti, yi, xi)
				i++
			}
		}
	}

	require.NoError(t, zarr.PutArray(ctx, store, zarr.ArraySpec{
		Name:       "apcp",
		Shape:      shape,
		Chunks:     chunks,
		DType:      "<f8",
		Compressor: "zlib",
		Dims:       opts.dims,
		Attrs:      map[string]any{"units": "mm"},
		Data:       data,
	}))
	require.NoError(t, zarr.PutArray(ctx, store, zarr.ArraySpec{
		Name:   "time",
		Shape:  []int{nt},
		Chunks: []int{nt},
		DType:  "<i8",
		Dims:   []string{"time"},
		Attrs:  opts.timeAttrs,
		Data:   opts.hours,
	}))
	require.NoError(t, zarr.PutArray(ctx, store, zarr.ArraySpec{
		Name:   latName,
		Shape:  []int{ny},
		Chunks: []int{ny},
		DType:  "<f8",
		Dims:   []string{latName},
		Data:   opts.lats,
	}))
	require.NoError(t, zarr.PutArray(ctx, store, zarr.ArraySpec{
		Name:   lonName,
		Shape:  []int{nx},
		Chunks: []int{nx},
		DType:  "<f8",
		Dims:   []string{lonName},
		Data:   testLons,
	}))
	require.NoError(t, zarr.Consolidate(ctx, store))
	return store
}

// testConfig covers the whole default archive.
func testConfig() *config.Config {
	return &config.Config{
		ZarrURI:      "mem://test",
		Variable:     "apcp",
		TimeStart:    time.Date(2015, time.June, 1, 0, 0, 0, 0, time.UTC),
		TimeEnd:      time.Date(2015, time.June, 1, 5, 0, 0, 0, time.UTC),
		LatMin:       34.9,
		LatMax:       36.1,
		LonMin:       -90.1,
		LonMax:       -88.4,
		SubsetFile:   "subset.nc",
		AreaMeanFile: "area_mean.csv",
		FetchWorkers: 2,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openDataset(t *testing.T, store zarr.Store) *zarr.Dataset {
	t.Helper()
	ds, err := zarr.Open(context.Background(), store, 2, testLogger())
	require.NoError(t, err)
	return ds
}

func newTestJob(store zarr.Store, cfg *config.Config) *Job {
	return New(store, cfg, testLogger(), observability.NewMetrics())
}
