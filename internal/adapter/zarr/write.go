package zarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// ArraySpec describes one array for the store writer. The writer backs tests
// and the genstore tool; it lays objects out the way zarr-python does so the
// read path can be exercised against a store it never saw in production.
type ArraySpec struct {
	Name       string
	Shape      []int
	Chunks     []int
	DType      string // little-endian: "<f8", "<f4", "<i8" or "<i4"
	Compressor string // "" for raw chunks, or "zlib"
	Dims       []string
	Attrs      map[string]any
	Data       []float64 // C-order, len = product of Shape
}

// WriteGroup writes the root group document and optional group attributes.
func WriteGroup(ctx context.Context, store WritableStore, attrs map[string]any) error {
	if err := store.Put(ctx, ".zgroup", []byte(`{"zarr_format":2}`)); err != nil {
		return fmt.Errorf("write .zgroup: %w", err)
	}
	if len(attrs) == 0 {
		return nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode group attrs: %w", err)
	}
	if err := store.Put(ctx, ".zattrs", raw); err != nil {
		return fmt.Errorf("write .zattrs: %w", err)
	}
	return nil
}

// PutArray writes one array's metadata, attributes and chunks. Edge chunks
// are padded to full chunk size with the fill value.
func PutArray(ctx context.Context, store WritableStore, spec ArraySpec) error {
	if spec.Name == "" {
		return fmt.Errorf("array name is empty")
	}
	dt, err := parseDType(spec.DType)
	if err != nil {
		return err
	}
	if len(spec.Dims) != 0 && len(spec.Dims) != len(spec.Shape) {
		return fmt.Errorf("array %q: %d dims for rank %d", spec.Name, len(spec.Dims), len(spec.Shape))
	}
	n := 1
	for _, s := range spec.Shape {
		n *= s
	}
	if len(spec.Data) != n {
		return fmt.Errorf("array %q: %d values for shape %v", spec.Name, len(spec.Data), spec.Shape)
	}

	fillJSON := json.RawMessage(`0`)
	if dt.kind == 'f' {
		fillJSON = json.RawMessage(`"NaN"`)
	}
	var compJSON any
	var compress func([]byte) ([]byte, error)
	switch spec.Compressor {
	case "":
	case "zlib":
		compJSON = map[string]any{"id": "zlib", "level": 5}
		compress = zlibCompress
	default:
		return fmt.Errorf("array %q: unsupported compressor %q for writing", spec.Name, spec.Compressor)
	}

	doc := map[string]any{
		"zarr_format":         2,
		"shape":               spec.Shape,
		"chunks":              spec.Chunks,
		"dtype":               spec.DType,
		"order":               "C",
		"fill_value":          fillJSON,
		"filters":             nil,
		"compressor":          compJSON,
		"dimension_separator": ".",
	}
	rawMeta, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("array %q: encode .zarray: %w", spec.Name, err)
	}
	meta, err := parseArrayMeta(rawMeta)
	if err != nil {
		return fmt.Errorf("array %q: %w", spec.Name, err)
	}
	fill, err := parseFill(meta.FillValue, dt)
	if err != nil {
		return fmt.Errorf("array %q: %w", spec.Name, err)
	}
	if err := store.Put(ctx, spec.Name+"/.zarray", rawMeta); err != nil {
		return fmt.Errorf("array %q: %w", spec.Name, err)
	}

	attrs := make(map[string]any, len(spec.Attrs)+1)
	for k, v := range spec.Attrs {
		attrs[k] = v
	}
	if len(spec.Dims) != 0 {
		attrs["_ARRAY_DIMENSIONS"] = spec.Dims
	}
	if len(attrs) != 0 {
		rawAttrs, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("array %q: encode .zattrs: %w", spec.Name, err)
		}
		if err := store.Put(ctx, spec.Name+"/.zattrs", rawAttrs); err != nil {
			return fmt.Errorf("array %q: %w", spec.Name, err)
		}
	}

	ndim := len(meta.Shape)
	nc := make([]int, ndim)
	for d := 0; d < ndim; d++ {
		nc[d] = (meta.Shape[d] + meta.Chunks[d] - 1) / meta.Chunks[d]
		if nc[d] == 0 {
			return nil // empty array, no chunk objects
		}
	}

	ci := make([]int, ndim)
	for {
		vals := gatherChunk(spec.Data, meta.Shape, meta.Chunks, ci, fill)
		raw, err := dt.encode(vals)
		if err != nil {
			return fmt.Errorf("array %q: %w", spec.Name, err)
		}
		if compress != nil {
			if raw, err = compress(raw); err != nil {
				return fmt.Errorf("array %q: %w", spec.Name, err)
			}
		}
		parts := make([]string, ndim)
		for d, i := range ci {
			parts[d] = strconv.Itoa(i)
		}
		key := spec.Name + "/" + strings.Join(parts, ".")
		if err := store.Put(ctx, key, raw); err != nil {
			return fmt.Errorf("write chunk %s: %w", key, err)
		}

		d := ndim - 1
		for d >= 0 {
			ci[d]++
			if ci[d] < nc[d] {
				break
			}
			ci[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return nil
}

// gatherChunk extracts one chunk from a C-order data slice, padding past the
// array edge with fill.
func gatherChunk(data []float64, shape, chunks, ci []int, fill float64) []float64 {
	ndim := len(shape)
	n := 1
	for _, c := range chunks {
		n *= c
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = fill
	}

	a := make([]int, ndim)
	b := make([]int, ndim)
	for d := 0; d < ndim; d++ {
		a[d] = ci[d] * chunks[d]
		b[d] = min((ci[d]+1)*chunks[d], shape[d])
	}

	cstr := make([]int, ndim)
	sstr := make([]int, ndim)
	cstr[ndim-1], sstr[ndim-1] = 1, 1
	for d := ndim - 2; d >= 0; d-- {
		cstr[d] = cstr[d+1] * chunks[d+1]
		sstr[d] = sstr[d+1] * shape[d+1]
	}

	run := b[ndim-1] - a[ndim-1]
	pos := slices.Clone(a)
	for {
		coff, soff := 0, 0
		for d := 0; d < ndim; d++ {
			coff += (pos[d] - a[d]) * cstr[d]
			soff += pos[d] * sstr[d]
		}
		copy(vals[coff:coff+run], data[soff:soff+run])

		d := ndim - 2
		for d >= 0 {
			pos[d]++
			if pos[d] < b[d] {
				break
			}
			pos[d] = a[d]
			d--
		}
		if d < 0 {
			break
		}
	}
	return vals
}

// Consolidate gathers every metadata object under a fresh .zmetadata
// document, mirroring zarr.consolidate_metadata.
func Consolidate(ctx context.Context, store WritableStore) error {
	keys, err := store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list store: %w", err)
	}
	doc := consolidatedDoc{Metadata: map[string]json.RawMessage{}, Format: 1}
	for _, key := range keys {
		base := key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			base = key[i+1:]
		}
		switch base {
		case ".zgroup", ".zarray", ".zattrs":
			raw, err := store.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			doc.Metadata[key] = raw
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode .zmetadata: %w", err)
	}
	if err := store.Put(ctx, ".zmetadata", raw); err != nil {
		return fmt.Errorf("write .zmetadata: %w", err)
	}
	return nil
}

func zlibCompress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, 5)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
