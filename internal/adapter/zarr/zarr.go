// Package zarr reads Zarr v2 chunked arrays from flat object stores. It
// covers the subset of the format the AORC archive uses: C-order arrays,
// numeric dtypes, the common numcodecs compressors (raw, zlib, gzip, zstd,
// lz4, blosc), consolidated metadata with a listing fallback, and the xarray
// _ARRAY_DIMENSIONS convention for naming axes. A minimal write path
// produces synthetic stores for tests and offline runs.
package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// Dataset is an open store with its array metadata loaded.
type Dataset struct {
	store        Store
	logger       *slog.Logger
	workers      int
	consolidated bool
	vars         map[string]*Variable
	attrs        map[string]any
}

// Open loads store metadata and returns a handle on the arrays within. The
// consolidated .zmetadata document is tried first; on any failure a warning
// is logged and arrays are rediscovered by listing the store, one metadata
// object at a time.
func Open(ctx context.Context, store Store, workers int, logger *slog.Logger) (*Dataset, error) {
	if workers < 1 {
		workers = 1
	}
	ds := &Dataset{
		store:   store,
		logger:  logger,
		workers: workers,
		vars:    make(map[string]*Variable),
	}
	if err := ds.openConsolidated(ctx); err != nil {
		logger.Warn("consolidated metadata unavailable, falling back to store listing", "error", err)
		if err := ds.openListing(ctx); err != nil {
			return nil, err
		}
	} else {
		ds.consolidated = true
	}
	if len(ds.vars) == 0 {
		return nil, errors.New("store contains no arrays")
	}
	return ds, nil
}

type consolidatedDoc struct {
	Metadata map[string]json.RawMessage `json:"metadata"`
	Format   int                        `json:"zarr_consolidated_format"`
}

func (d *Dataset) openConsolidated(ctx context.Context) error {
	raw, err := d.store.Get(ctx, ".zmetadata")
	if err != nil {
		return fmt.Errorf("read .zmetadata: %w", err)
	}
	var doc consolidatedDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse .zmetadata: %w", err)
	}
	if doc.Format != 1 {
		return fmt.Errorf("unsupported consolidated metadata format %d", doc.Format)
	}
	for key, entry := range doc.Metadata {
		name, ok := strings.CutSuffix(key, "/.zarray")
		if !ok {
			continue
		}
		v, err := newVariable(name, entry, doc.Metadata[name+"/.zattrs"], d.store, d.workers)
		if err != nil {
			return fmt.Errorf("array %q: %w", name, err)
		}
		d.vars[name] = v
	}
	attrs, err := parseAttrs(doc.Metadata[".zattrs"])
	if err != nil {
		return err
	}
	d.attrs = attrs
	return nil
}

func (d *Dataset) openListing(ctx context.Context) error {
	keys, err := d.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list store: %w", err)
	}
	for _, key := range keys {
		name, ok := strings.CutSuffix(key, "/.zarray")
		if !ok {
			continue
		}
		rawMeta, err := d.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		rawAttrs, err := d.store.Get(ctx, name+"/.zattrs")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s/.zattrs: %w", name, err)
		}
		v, err := newVariable(name, rawMeta, rawAttrs, d.store, d.workers)
		if err != nil {
			return fmt.Errorf("array %q: %w", name, err)
		}
		d.vars[name] = v
	}
	rawAttrs, err := d.store.Get(ctx, ".zattrs")
	if err == nil {
		attrs, err := parseAttrs(rawAttrs)
		if err != nil {
			return err
		}
		d.attrs = attrs
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read .zattrs: %w", err)
	}
	return nil
}

func parseAttrs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("parse attributes: %w", err)
	}
	return attrs, nil
}

// Consolidated reports whether metadata came from the consolidated document.
func (d *Dataset) Consolidated() bool {
	return d.consolidated
}

// Attrs returns the group-level attributes, which may be nil.
func (d *Dataset) Attrs() map[string]any {
	return d.attrs
}

// Var returns the named array.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// VarNames returns all array names, sorted.
func (d *Dataset) VarNames() []string {
	names := make([]string, 0, len(d.vars))
	for name := range d.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variable is one array in the store.
type Variable struct {
	name    string
	meta    arrayMeta
	dt      dtype
	fill    float64
	dims    []string
	attrs   map[string]any
	store   Store
	workers int
	decomp  decompressor
}

func newVariable(name string, rawMeta, rawAttrs json.RawMessage, store Store, workers int) (*Variable, error) {
	meta, err := parseArrayMeta(rawMeta)
	if err != nil {
		return nil, err
	}
	dt, err := parseDType(meta.DType)
	if err != nil {
		return nil, err
	}
	fill, err := parseFill(meta.FillValue, dt)
	if err != nil {
		return nil, err
	}
	decomp, err := newDecompressor(meta.Compressor)
	if err != nil {
		return nil, err
	}
	attrs, err := parseAttrs(rawAttrs)
	if err != nil {
		return nil, err
	}

	v := &Variable{
		name:    name,
		meta:    meta,
		dt:      dt,
		fill:    fill,
		attrs:   attrs,
		store:   store,
		workers: workers,
		decomp:  decomp,
	}
	if names, ok := attrs["_ARRAY_DIMENSIONS"].([]any); ok {
		for _, n := range names {
			if s, ok := n.(string); ok {
				v.dims = append(v.dims, s)
			}
		}
		if len(v.dims) != len(meta.Shape) {
			return nil, fmt.Errorf("_ARRAY_DIMENSIONS %v does not match rank %d", v.dims, len(meta.Shape))
		}
	}
	return v, nil
}

// Name returns the array name.
func (v *Variable) Name() string {
	return v.name
}

// Shape returns the array extent per dimension.
func (v *Variable) Shape() []int {
	return slices.Clone(v.meta.Shape)
}

// Chunks returns the chunk extent per dimension.
func (v *Variable) Chunks() []int {
	return slices.Clone(v.meta.Chunks)
}

// Dims returns the dimension names from _ARRAY_DIMENSIONS, or nil when the
// array carries none.
func (v *Variable) Dims() []string {
	return slices.Clone(v.dims)
}

// DType returns the stored dtype string, e.g. "<f4".
func (v *Variable) DType() string {
	return v.meta.DType
}

// CompressorID returns the numcodecs compressor id, or "" for raw chunks.
func (v *Variable) CompressorID() string {
	if v.meta.Compressor == nil {
		return ""
	}
	return v.meta.Compressor.ID
}

// Attrs returns the array attributes, which may be nil.
func (v *Variable) Attrs() map[string]any {
	return v.attrs
}

// AttrString returns a string-valued attribute.
func (v *Variable) AttrString(key string) (string, bool) {
	s, ok := v.attrs[key].(string)
	return s, ok
}
