package zarr

import (
	"encoding/binary"
	"testing"

	lz4 "github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bloscContainer assembles a container around a prebuilt body (bstarts plus
// streams, or the raw payload for memcpy), filling cbytes in from the total.
func bloscContainer(flags, typesize byte, nbytes, blocksize int, body []byte) []byte {
	out := make([]byte, bloscHeaderLen+len(body))
	out[0] = 2 // blosc format version
	out[1] = 1
	out[2] = flags
	out[3] = typesize
	binary.LittleEndian.PutUint32(out[4:], uint32(nbytes))
	binary.LittleEndian.PutUint32(out[8:], uint32(blocksize))
	binary.LittleEndian.PutUint32(out[12:], uint32(len(out)))
	copy(out[bloscHeaderLen:], body)
	return out
}

func u32le(v int) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func TestBloscDecode_Memcpy(t *testing.T) {
	payload := compressiblePayload(24)
	container := bloscContainer(bloscFlagMemcpy|bloscCodecLZ4<<5, 8, 24, 24, payload)

	out, err := bloscDecode(container, 24)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestBloscDecode_ZlibSingleBlock(t *testing.T) {
	orig := compressiblePayload(64)
	comp, err := zlibCompress(orig)
	require.NoError(t, err)
	require.Less(t, len(comp), len(orig), "fixture must not hit the literal-stream path")

	var body []byte
	body = append(body, u32le(bloscHeaderLen+4)...) // one block, stream right after bstarts
	body = append(body, u32le(len(comp))...)
	body = append(body, comp...)
	container := bloscContainer(bloscFlagNoSplit|bloscCodecZlib<<5, 8, 64, 64, body)

	out, err := bloscDecode(container, 64)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
}

func TestBloscDecode_Lz4SingleBlock(t *testing.T) {
	orig := compressiblePayload(128)
	block := make([]byte, lz4.CompressBlockBound(len(orig)))
	var c lz4.Compressor
	n, err := c.CompressBlock(orig, block)
	require.NoError(t, err)
	require.Greater(t, n, 0)
	require.Less(t, n, len(orig))

	var body []byte
	body = append(body, u32le(bloscHeaderLen+4)...)
	body = append(body, u32le(n)...)
	body = append(body, block[:n]...)
	container := bloscContainer(bloscFlagNoSplit|bloscCodecLZ4<<5, 8, 128, 128, body)

	out, err := bloscDecode(container, 128)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
}

func TestBloscDecode_ShuffledSplitBlock(t *testing.T) {
	// Six uint16 values. Shuffle groups the low bytes then the high bytes;
	// the split stores one literal stream per byte plane.
	orig := []byte{1, 10, 2, 20, 3, 30, 4, 40, 5, 50, 6, 60}
	plane0 := []byte{1, 2, 3, 4, 5, 6}
	plane1 := []byte{10, 20, 30, 40, 50, 60}

	var body []byte
	body = append(body, u32le(bloscHeaderLen+4)...)
	body = append(body, u32le(len(plane0))...)
	body = append(body, plane0...)
	body = append(body, u32le(len(plane1))...)
	body = append(body, plane1...)
	container := bloscContainer(bloscFlagShuffle|bloscCodecLZ4<<5, 2, 12, 12, body)

	out, err := bloscDecode(container, 12)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
}

func TestBloscDecode_MultiBlockWithLeftover(t *testing.T) {
	// 40 bytes in 16-byte blocks: two full split blocks of eight 2-byte
	// literal streams, then an 8-byte leftover block with a single stream.
	orig := make([]byte, 40)
	for i := range orig {
		orig[i] = byte(i)
	}

	var streams []byte
	bstarts := make([]byte, 0, 12)
	pos := bloscHeaderLen + 12
	for b := 0; b < 2; b++ {
		bstarts = append(bstarts, u32le(pos)...)
		for s := 0; s < 8; s++ {
			seg := orig[b*16+s*2 : b*16+s*2+2]
			streams = append(streams, u32le(2)...)
			streams = append(streams, seg...)
			pos += 6
		}
	}
	bstarts = append(bstarts, u32le(pos)...)
	streams = append(streams, u32le(8)...)
	streams = append(streams, orig[32:40]...)

	container := bloscContainer(bloscCodecZlib<<5, 8, 40, 16, append(bstarts, streams...))

	out, err := bloscDecode(container, 40)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
}

func TestBloscDecode_Errors(t *testing.T) {
	t.Run("TruncatedHeader", func(t *testing.T) {
		_, err := bloscDecode(make([]byte, 8), 8)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "header truncated")
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		container := bloscContainer(bloscFlagMemcpy, 8, 16, 16, make([]byte, 16))
		_, err := bloscDecode(container, 24)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "holds 16 bytes")
	})

	t.Run("Bitshuffle", func(t *testing.T) {
		container := bloscContainer(bloscFlagBitshuffle, 8, 16, 16, make([]byte, 16+8))
		_, err := bloscDecode(container, 16)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bit-shuffle")
	})

	t.Run("Delta", func(t *testing.T) {
		container := bloscContainer(bloscFlagDelta, 8, 16, 16, make([]byte, 16+8))
		_, err := bloscDecode(container, 16)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delta")
	})

	t.Run("ContainerTruncated", func(t *testing.T) {
		container := bloscContainer(bloscFlagMemcpy, 8, 16, 16, make([]byte, 16))
		binary.LittleEndian.PutUint32(container[12:], uint32(len(container)+10))
		_, err := bloscDecode(container, 16)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "container truncated")
	})

	t.Run("MemcpyTruncated", func(t *testing.T) {
		container := bloscContainer(bloscFlagMemcpy, 8, 24, 24, make([]byte, 8))
		_, err := bloscDecode(container, 24)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "memcpy")
	})

	t.Run("BloscLZUnsupported", func(t *testing.T) {
		var body []byte
		body = append(body, u32le(bloscHeaderLen+4)...)
		body = append(body, u32le(4)...)
		body = append(body, 1, 2, 3, 4)
		container := bloscContainer(bloscFlagNoSplit|bloscCodecBloscLZ<<5, 8, 8, 8, body)
		_, err := bloscDecode(container, 8)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "blosclz")
	})

	t.Run("UnknownCodec", func(t *testing.T) {
		var body []byte
		body = append(body, u32le(bloscHeaderLen+4)...)
		body = append(body, u32le(4)...)
		body = append(body, 1, 2, 3, 4)
		container := bloscContainer(bloscFlagNoSplit|5<<5, 8, 8, 8, body)
		_, err := bloscDecode(container, 8)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown codec")
	})
}

func TestUnshuffleBytes_TailStaysInPlace(t *testing.T) {
	// Ten bytes with typesize 4: two full elements plus a two-byte tail.
	shuf := []byte{0xa0, 0xb0, 0xa1, 0xb1, 0xa2, 0xb2, 0xa3, 0xb3, 0xfe, 0xff}
	orig := make([]byte, len(shuf))
	unshuffleBytes(shuf, orig, 4)
	assert.Equal(t, []byte{0xa0, 0xa1, 0xa2, 0xa3, 0xb0, 0xb1, 0xb2, 0xb3, 0xfe, 0xff}, orig)
}
