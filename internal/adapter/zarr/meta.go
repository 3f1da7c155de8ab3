package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// arrayMeta mirrors a Zarr v2 .zarray document.
type arrayMeta struct {
	ZarrFormat         int               `json:"zarr_format"`
	Shape              []int             `json:"shape"`
	Chunks             []int             `json:"chunks"`
	DType              string            `json:"dtype"`
	Compressor         *compressorMeta   `json:"compressor"`
	FillValue          json.RawMessage   `json:"fill_value"`
	Order              string            `json:"order"`
	Filters            []json.RawMessage `json:"filters"`
	DimensionSeparator string            `json:"dimension_separator"`
}

// compressorMeta is the numcodecs codec config embedded in .zarray.
// Fields beyond ID are codec-specific; unused ones unmarshal to zero.
type compressorMeta struct {
	ID        string `json:"id"`
	CName     string `json:"cname"`
	CLevel    int    `json:"clevel"`
	Shuffle   int    `json:"shuffle"`
	Blocksize int    `json:"blocksize"`
	Level     int    `json:"level"`
}

func parseArrayMeta(raw []byte) (arrayMeta, error) {
	var m arrayMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parse .zarray: %w", err)
	}
	if m.ZarrFormat != 2 {
		return m, fmt.Errorf("unsupported zarr format %d", m.ZarrFormat)
	}
	if len(m.Shape) == 0 {
		return m, fmt.Errorf("0-dimensional arrays are not supported")
	}
	if len(m.Chunks) != len(m.Shape) {
		return m, fmt.Errorf("chunks rank %d does not match shape rank %d", len(m.Chunks), len(m.Shape))
	}
	for i, n := range m.Shape {
		if n < 0 {
			return m, fmt.Errorf("negative shape %v", m.Shape)
		}
		if m.Chunks[i] <= 0 {
			return m, fmt.Errorf("invalid chunks %v", m.Chunks)
		}
	}
	switch m.Order {
	case "C":
	case "F":
		return m, fmt.Errorf("F-order arrays are not supported")
	default:
		return m, fmt.Errorf("unknown array order %q", m.Order)
	}
	if len(m.Filters) > 0 {
		return m, fmt.Errorf("filters are not supported")
	}
	switch m.DimensionSeparator {
	case "":
		m.DimensionSeparator = "."
	case ".", "/":
	default:
		return m, fmt.Errorf("unknown dimension separator %q", m.DimensionSeparator)
	}
	return m, nil
}

// dtype is a parsed NumPy dtype string such as "<f4" or "|u1".
type dtype struct {
	kind      byte // 'f', 'i', 'u' or 'b'
	size      int  // bytes per value
	bigEndian bool
}

func parseDType(s string) (dtype, error) {
	if len(s) < 3 {
		return dtype{}, fmt.Errorf("unsupported dtype %q", s)
	}
	var d dtype
	switch s[0] {
	case '<', '=', '|':
	case '>':
		d.bigEndian = true
	default:
		return dtype{}, fmt.Errorf("unsupported dtype %q", s)
	}
	d.kind = s[1]
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return dtype{}, fmt.Errorf("unsupported dtype %q", s)
	}
	d.size = size

	switch d.kind {
	case 'f':
		if size != 4 && size != 8 {
			return dtype{}, fmt.Errorf("unsupported dtype %q", s)
		}
	case 'i', 'u':
		if size != 1 && size != 2 && size != 4 && size != 8 {
			return dtype{}, fmt.Errorf("unsupported dtype %q", s)
		}
	case 'b':
		if size != 1 {
			return dtype{}, fmt.Errorf("unsupported dtype %q", s)
		}
	default:
		return dtype{}, fmt.Errorf("unsupported dtype %q", s)
	}
	return d, nil
}

func (d dtype) order() binary.ByteOrder {
	if d.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decode converts raw chunk bytes into float64 values. raw must hold exactly
// len(dst) values.
func (d dtype) decode(raw []byte, dst []float64) error {
	if len(raw) != len(dst)*d.size {
		return fmt.Errorf("chunk is %d bytes, want %d", len(raw), len(dst)*d.size)
	}
	bo := d.order()
	switch {
	case d.kind == 'f' && d.size == 8:
		for i := range dst {
			dst[i] = math.Float64frombits(bo.Uint64(raw[i*8:]))
		}
	case d.kind == 'f' && d.size == 4:
		for i := range dst {
			dst[i] = float64(math.Float32frombits(bo.Uint32(raw[i*4:])))
		}
	case d.kind == 'i' && d.size == 8:
		for i := range dst {
			dst[i] = float64(int64(bo.Uint64(raw[i*8:])))
		}
	case d.kind == 'i' && d.size == 4:
		for i := range dst {
			dst[i] = float64(int32(bo.Uint32(raw[i*4:])))
		}
	case d.kind == 'i' && d.size == 2:
		for i := range dst {
			dst[i] = float64(int16(bo.Uint16(raw[i*2:])))
		}
	case d.kind == 'i' && d.size == 1:
		for i := range dst {
			dst[i] = float64(int8(raw[i]))
		}
	case d.kind == 'u' && d.size == 8:
		for i := range dst {
			dst[i] = float64(bo.Uint64(raw[i*8:]))
		}
	case d.kind == 'u' && d.size == 4:
		for i := range dst {
			dst[i] = float64(bo.Uint32(raw[i*4:]))
		}
	case d.kind == 'u' && d.size == 2:
		for i := range dst {
			dst[i] = float64(bo.Uint16(raw[i*2:]))
		}
	case d.kind == 'u' && d.size == 1, d.kind == 'b':
		for i := range dst {
			dst[i] = float64(raw[i])
		}
	default:
		return fmt.Errorf("unsupported dtype kind %q", string(d.kind))
	}
	return nil
}

// encode converts values to raw chunk bytes. The write path supports the
// little-endian dtypes the synthetic store builder emits.
func (d dtype) encode(vals []float64) ([]byte, error) {
	if d.bigEndian {
		return nil, fmt.Errorf("big-endian dtypes not supported for writing")
	}
	raw := make([]byte, len(vals)*d.size)
	bo := binary.LittleEndian
	switch {
	case d.kind == 'f' && d.size == 8:
		for i, v := range vals {
			bo.PutUint64(raw[i*8:], math.Float64bits(v))
		}
	case d.kind == 'f' && d.size == 4:
		for i, v := range vals {
			bo.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
		}
	case d.kind == 'i' && d.size == 8:
		for i, v := range vals {
			bo.PutUint64(raw[i*8:], uint64(int64(v)))
		}
	case d.kind == 'i' && d.size == 4:
		for i, v := range vals {
			bo.PutUint32(raw[i*4:], uint32(int32(v)))
		}
	default:
		return nil, fmt.Errorf("dtype not supported for writing")
	}
	return raw, nil
}

// parseFill interprets the .zarray fill_value. The JSON null (no fill) maps
// to NaN for float dtypes and 0 for integer dtypes, which is how missing
// chunks surface in the decoded data.
func parseFill(raw json.RawMessage, d dtype) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		if d.kind == 'f' {
			return math.NaN(), nil
		}
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unsupported fill_value %q", s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("unsupported fill_value %s", string(raw))
	}
	return f, nil
}
