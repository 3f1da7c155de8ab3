// Command genstore writes a small synthetic AORC-style Zarr archive to a
// local directory. The extraction job accepts the directory in place of the
// real bucket, which keeps development and CI away from S3.
//
// Usage:
//
//	go run ./cmd/genstore -dir /tmp/aorc-mini
//	AORC_ZARR_URI=/tmp/aorc-mini go run ./cmd/aorc-extract
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/domain"
)

const stampLayout = "2006-01-02T15:04:05"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "", "target directory for the store")
	steps := flag.Int("steps", 48, "number of hourly time steps")
	start := flag.String("start", "2015-06-01T00:00:00", "first timestamp (UTC)")
	rows := flag.Int("rows", 24, "latitude rows")
	cols := flag.Int("cols", 36, "longitude columns")
	lat := flag.Float64("lat", 35.0, "southernmost latitude")
	lon := flag.Float64("lon", -90.0, "westernmost longitude")
	res := flag.Float64("res", 0.25, "grid spacing in degrees")
	seed := flag.Int64("seed", 1, "random seed")
	gaps := flag.Int("gaps", 0, "interior hours to drop after the first step (simulates archive gaps)")
	compressor := flag.String("compressor", "zlib", "chunk compressor: zlib or none")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -dir")
	}
	startTime, err := time.ParseInLocation(stampLayout, *start, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid -start %q: %w", *start, err)
	}
	var comp string
	switch *compressor {
	case "zlib":
		comp = "zlib"
	case "none":
	default:
		return fmt.Errorf("unsupported -compressor %q (want zlib or none)", *compressor)
	}
	codec, err := domain.NewTimeCodec("hours", startTime)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store := zarr.NewDirStore(*dir)
	if err := zarr.WriteGroup(ctx, store, map[string]any{
		"title":  "synthetic AORC-style precipitation",
		"source": "genstore",
	}); err != nil {
		return err
	}

	nt, ny, nx := *steps, *rows, *cols
	hours := make([]float64, nt)
	for i := range hours {
		hours[i] = float64(i)
	}
	if *gaps > 0 {
		if *gaps > nt-2 {
			return fmt.Errorf("-gaps %d leaves fewer than two steps", *gaps)
		}
		hours = append(hours[:1], hours[1+*gaps:]...)
	}
	kept := len(hours)

	// The storm cell drifts with the hour, not the step index, so a gapped
	// axis stays consistent with its full counterpart.
	rng := rand.New(rand.NewSource(*seed))
	data := make([]float64, kept*ny*nx)
	for i, h := range hours {
		precipPlane(rng, int(h), ny, nx, data[i*ny*nx:(i+1)*ny*nx])
	}

	lats := axis(*lat, *res, ny)
	lons := axis(*lon, *res, nx)

	arrays := []zarr.ArraySpec{
		{
			Name:       "apcp",
			Shape:      []int{kept, ny, nx},
			Chunks:     []int{min(kept, 24), min(ny, 16), min(nx, 16)},
			DType:      "<f4",
			Compressor: comp,
			Dims:       []string{"time", "latitude", "longitude"},
			Attrs:      map[string]any{"units": "mm", "long_name": "hourly accumulated precipitation"},
			Data:       data,
		},
		{
			Name:   "time",
			Shape:  []int{kept},
			Chunks: []int{kept},
			DType:  "<i8",
			Dims:   []string{"time"},
			Attrs:  map[string]any{"units": codec.Units(), "calendar": "standard"},
			Data:   hours,
		},
		{
			Name:   "latitude",
			Shape:  []int{ny},
			Chunks: []int{ny},
			DType:  "<f8",
			Dims:   []string{"latitude"},
			Attrs:  map[string]any{"units": "degrees_north"},
			Data:   lats,
		},
		{
			Name:   "longitude",
			Shape:  []int{nx},
			Chunks: []int{nx},
			DType:  "<f8",
			Dims:   []string{"longitude"},
			Attrs:  map[string]any{"units": "degrees_east"},
			Data:   lons,
		},
	}
	for _, spec := range arrays {
		if err := zarr.PutArray(ctx, store, spec); err != nil {
			return err
		}
	}
	if err := zarr.Consolidate(ctx, store); err != nil {
		return err
	}

	end := startTime.Add(time.Duration(nt-1) * time.Hour)
	fmt.Printf("wrote %s: apcp[%dx%dx%d], hourly %s to %s UTC\n",
		*dir, kept, ny, nx, startTime.Format(stampLayout), end.Format(stampLayout))
	if *gaps > 0 {
		fmt.Printf("dropped %d interior hours after the first step\n", *gaps)
	}
	fmt.Println("point the extraction at it with:")
	fmt.Printf("  AORC_ZARR_URI=%s AORC_TIME_START=%s AORC_TIME_END=%s \\\n",
		*dir, startTime.Format(stampLayout), end.Format(stampLayout))
	fmt.Printf("  AORC_LAT_MIN=%g AORC_LAT_MAX=%g AORC_LON_MIN=%g AORC_LON_MAX=%g \\\n",
		*lat, lats[ny-1], *lon, lons[nx-1])
	fmt.Println("  go run ./cmd/aorc-extract")
	return nil
}

// precipPlane fills the field for one hour: a storm cell drifting north-east
// across the grid plus scattered light showers, everything else dry.
func precipPlane(rng *rand.Rand, hour, rows, cols int, out []float64) {
	cy := 0.25*float64(rows) + 0.2*float64(hour)
	cx := 0.25*float64(cols) + 0.4*float64(hour)
	for yi := 0; yi < rows; yi++ {
		for xi := 0; xi < cols; xi++ {
			dy, dx := float64(yi)-cy, float64(xi)-cx
			v := 14 * math.Exp(-(dy*dy+dx*dx)/20)
			if rng.Float64() < 0.05 {
				v += rng.Float64() * 0.8
			}
			if v < 0.01 {
				v = 0
			}
			out[yi*cols+xi] = v
		}
	}
}

func axis(origin, step float64, n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = origin + float64(i)*step
	}
	return vals
}
