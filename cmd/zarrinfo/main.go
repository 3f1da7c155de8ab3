// Command zarrinfo prints the layout of a Zarr store: whether consolidated
// metadata is present, and the shape, chunking and compression of every
// array. Useful for checking what an extraction run will find before it
// reads any chunk data.
//
// Usage:
//
//	go run ./cmd/zarrinfo -uri s3://noaa-nws-aorc-v1-1-1km
//	go run ./cmd/zarrinfo -uri /tmp/aorc-mini
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hydroclim/aorc-extract/internal/adapter/s3"
	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	uri := flag.String("uri", defaultURI(), "store location, s3://bucket[/prefix] or a directory")
	endpoint := flag.String("endpoint", "s3.amazonaws.com", "S3 endpoint")
	region := flag.String("region", "us-east-1", "S3 region")
	flag.Parse()

	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetrics()

	var store zarr.Store
	if strings.HasPrefix(*uri, "s3://") {
		s, err := s3.NewStore(*uri, *endpoint, *region, metrics, logger)
		if err != nil {
			return err
		}
		store = s
	} else {
		store = zarr.NewDirStore(strings.TrimPrefix(*uri, "file://"))
	}

	ds, err := zarr.Open(context.Background(), store, 4, logger)
	if err != nil {
		return err
	}

	fmt.Printf("store: %s\n", *uri)
	fmt.Printf("consolidated metadata: %v\n", ds.Consolidated())
	if attrs := ds.Attrs(); len(attrs) > 0 {
		fmt.Println("group attributes:")
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, attrs[k])
		}
	}
	fmt.Printf("arrays: %d\n\n", len(ds.VarNames()))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARRAY\tDTYPE\tSHAPE\tCHUNKS\tCOMPRESSOR\tDIMENSIONS")
	for _, name := range ds.VarNames() {
		v, _ := ds.Var(name)
		comp := v.CompressorID()
		if comp == "" {
			comp = "none"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			name, v.DType(), joinInts(v.Shape()), joinInts(v.Chunks()), comp, strings.Join(v.Dims(), ", "))
	}
	return w.Flush()
}

func defaultURI() string {
	if uri := os.Getenv("AORC_ZARR_URI"); uri != "" {
		return uri
	}
	return "s3://noaa-nws-aorc-v1-1-1km"
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, "x")
}
