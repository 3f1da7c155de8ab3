package zarr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Selection is a hyperslab: a start index and count per dimension.
type Selection struct {
	Start []int
	Count []int
}

// FullSelection covers an entire shape.
func FullSelection(shape []int) Selection {
	return Selection{Start: make([]int, len(shape)), Count: slices.Clone(shape)}
}

func (sel Selection) size() int {
	n := 1
	for _, c := range sel.Count {
		n *= c
	}
	return n
}

// ReadAll materializes the whole array. Intended for coordinate axes.
func (v *Variable) ReadAll(ctx context.Context) ([]float64, error) {
	return v.Read(ctx, FullSelection(v.meta.Shape))
}

// Read materializes a hyperslab as a flat C-order float64 slice. Chunks are
// fetched and decoded concurrently, bounded by the worker count; a chunk
// object absent from the store yields the array's fill value.
func (v *Variable) Read(ctx context.Context, sel Selection) ([]float64, error) {
	if err := v.validateSelection(sel); err != nil {
		return nil, err
	}
	out := make([]float64, sel.size())
	if len(out) == 0 {
		return out, nil
	}

	ndim := len(v.meta.Shape)
	lo := make([]int, ndim) // first chunk index per dim
	hi := make([]int, ndim) // last chunk index per dim, inclusive
	for d := 0; d < ndim; d++ {
		lo[d] = sel.Start[d] / v.meta.Chunks[d]
		hi[d] = (sel.Start[d] + sel.Count[d] - 1) / v.meta.Chunks[d]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	ci := slices.Clone(lo)
	for {
		chunk := slices.Clone(ci)
		g.Go(func() error {
			return v.readChunkInto(gctx, chunk, sel, out)
		})

		d := ndim - 1
		for d >= 0 {
			ci[d]++
			if ci[d] <= hi[d] {
				break
			}
			ci[d] = lo[d]
			d--
		}
		if d < 0 {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Variable) validateSelection(sel Selection) error {
	ndim := len(v.meta.Shape)
	if len(sel.Start) != ndim || len(sel.Count) != ndim {
		return fmt.Errorf("selection rank %d does not match array rank %d", len(sel.Start), ndim)
	}
	for d := 0; d < ndim; d++ {
		if sel.Start[d] < 0 || sel.Count[d] < 0 || sel.Start[d]+sel.Count[d] > v.meta.Shape[d] {
			return fmt.Errorf("selection start %v count %v out of bounds for shape %v", sel.Start, sel.Count, v.meta.Shape)
		}
	}
	return nil
}

// readChunkInto fetches and decodes one chunk, then copies its overlap with
// the selection into out. Distinct chunks write distinct regions, so
// concurrent calls need no locking.
func (v *Variable) readChunkInto(ctx context.Context, ci []int, sel Selection, out []float64) error {
	key := v.chunkKey(ci)
	var vals []float64 // nil means the chunk is absent and reads as fill
	raw, err := v.store.Get(ctx, key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read chunk %s: %w", key, err)
	default:
		n := 1
		for _, c := range v.meta.Chunks {
			n *= c
		}
		data, err := v.decomp(raw, n*v.dt.size)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", key, err)
		}
		vals = make([]float64, n)
		if err := v.dt.decode(data, vals); err != nil {
			return fmt.Errorf("chunk %s: %w", key, err)
		}
	}

	v.copyOverlap(ci, sel, vals, out)
	return nil
}

func (v *Variable) copyOverlap(ci []int, sel Selection, vals, out []float64) {
	ndim := len(v.meta.Shape)
	chunks := v.meta.Chunks

	// Overlap of chunk and selection, in global coordinates.
	a := make([]int, ndim)
	b := make([]int, ndim)
	for d := 0; d < ndim; d++ {
		a[d] = max(sel.Start[d], ci[d]*chunks[d])
		b[d] = min(sel.Start[d]+sel.Count[d], (ci[d]+1)*chunks[d])
	}

	cstr := make([]int, ndim)
	ostr := make([]int, ndim)
	cstr[ndim-1], ostr[ndim-1] = 1, 1
	for d := ndim - 2; d >= 0; d-- {
		cstr[d] = cstr[d+1] * chunks[d+1]
		ostr[d] = ostr[d+1] * sel.Count[d+1]
	}

	// Walk the outer dimensions, copying contiguous runs along the last.
	run := b[ndim-1] - a[ndim-1]
	pos := slices.Clone(a)
	for {
		coff, ooff := 0, 0
		for d := 0; d < ndim; d++ {
			coff += (pos[d] - ci[d]*chunks[d]) * cstr[d]
			ooff += (pos[d] - sel.Start[d]) * ostr[d]
		}
		if vals == nil {
			dst := out[ooff : ooff+run]
			for i := range dst {
				dst[i] = v.fill
			}
		} else {
			copy(out[ooff:ooff+run], vals[coff:coff+run])
		}

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
}

func (v *Variable) chunkKey(ci []int) string {
	parts := make([]string, len(ci))
	for d, i := range ci {
		parts[d] = strconv.Itoa(i)
	}
	return v.name + "/" + strings.Join(parts, v.meta.DimensionSeparator)
}
