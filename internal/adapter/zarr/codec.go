package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
)

// decompressor turns a raw chunk object into exactly want uncompressed bytes.
type decompressor func(data []byte, want int) ([]byte, error)

// newDecompressor builds the decode function for a .zarray compressor config.
// A nil config means chunks are stored raw.
func newDecompressor(c *compressorMeta) (decompressor, error) {
	if c == nil {
		return rawDecode, nil
	}
	switch strings.ToLower(c.ID) {
	case "zlib":
		return zlibDecode, nil
	case "gzip":
		return gzipDecode, nil
	case "zstd":
		return zstdDecode, nil
	case "lz4":
		return lz4Decode, nil
	case "blosc":
		return bloscDecode, nil
	default:
		return nil, fmt.Errorf("unsupported compressor %q", c.ID)
	}
}

func rawDecode(data []byte, want int) ([]byte, error) {
	if len(data) != want {
		return nil, fmt.Errorf("raw chunk is %d bytes, want %d", len(data), want)
	}
	return data, nil
}

func zlibDecode(data []byte, want int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	return readExactly(zr, want, "zlib")
}

func gzipDecode(data []byte, want int) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer gr.Close()
	return readExactly(gr, want, "gzip")
}

var (
	zstdOnce sync.Once
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// zstdDecode shares one decoder across chunks; DecodeAll is safe for
// concurrent use.
func zstdDecode(data []byte, want int) ([]byte, error) {
	zstdOnce.Do(func() {
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	if zstdErr != nil {
		return nil, fmt.Errorf("zstd: %w", zstdErr)
	}
	out, err := zstdDec.DecodeAll(data, make([]byte, 0, want))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) != want {
		return nil, fmt.Errorf("zstd chunk decoded to %d bytes, want %d", len(out), want)
	}
	return out, nil
}

// lz4Decode handles the numcodecs LZ4 framing: a little-endian uint32 of the
// original size followed by one LZ4 block.
func lz4Decode(data []byte, want int) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("lz4 chunk is %d bytes, want at least 4", len(data))
	}
	size := int(binary.LittleEndian.Uint32(data))
	if size != want {
		return nil, fmt.Errorf("lz4 chunk declares %d bytes, want %d", size, want)
	}
	return lz4BlockDecode(data[4:], want)
}

// lz4BlockDecode decompresses one raw LZ4 block of known original size.
func lz4BlockDecode(block []byte, want int) ([]byte, error) {
	out := make([]byte, want)
	n, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n != want {
		return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", n, want)
	}
	return out, nil
}

func readExactly(r io.Reader, want int, codec string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", codec, err)
	}
	if len(out) != want {
		return nil, fmt.Errorf("%s chunk decoded to %d bytes, want %d", codec, len(out), want)
	}
	return out, nil
}
