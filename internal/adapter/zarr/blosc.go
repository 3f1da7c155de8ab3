package zarr

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/snappy"
	lz4 "github.com/pierrec/lz4/v4"
)

// Blosc1 container format, as written by numcodecs:
//
//	[0]     format version
//	[1]     codec format version
//	[2]     flags (shuffle 0x1, memcpy 0x2, bit-shuffle 0x4, delta 0x8,
//	        no-split 0x10, codec id in bits 5-7)
//	[3]     typesize
//	[4:8]   nbytes, uncompressed size (uint32 LE)
//	[8:12]  blocksize (uint32 LE)
//	[12:16] cbytes, total container size (uint32 LE)
//
// Memcpy containers store the payload verbatim after the header. Otherwise a
// uint32 LE offset per block follows, each pointing at that block's streams.
// A split block holds typesize streams (one per byte plane), an unsplit or
// leftover block holds one; every stream is an int32 LE compressed size
// followed by the payload, stored literally when the size equals the
// uncompressed stream size. Shuffled blocks are byte-transposed after all
// streams are restored.
const (
	bloscHeaderLen = 16

	bloscFlagShuffle    = 0x1
	bloscFlagMemcpy     = 0x2
	bloscFlagBitshuffle = 0x4
	bloscFlagDelta      = 0x8
	bloscFlagNoSplit    = 0x10
)

const (
	bloscCodecBloscLZ = 0
	bloscCodecLZ4     = 1
	bloscCodecSnappy  = 2
	bloscCodecZlib    = 3
	bloscCodecZstd    = 4
)

// bloscDecode unpacks one Blosc1 container into exactly want bytes.
func bloscDecode(src []byte, want int) ([]byte, error) {
	if len(src) < bloscHeaderLen {
		return nil, fmt.Errorf("blosc: header truncated (%d bytes)", len(src))
	}
	flags := src[2]
	typesize := int(src[3])
	nbytes := int(binary.LittleEndian.Uint32(src[4:8]))
	blocksize := int(binary.LittleEndian.Uint32(src[8:12]))
	cbytes := int(binary.LittleEndian.Uint32(src[12:16]))

	if nbytes != want {
		return nil, fmt.Errorf("blosc chunk holds %d bytes, want %d", nbytes, want)
	}
	if cbytes < bloscHeaderLen || cbytes > len(src) {
		return nil, fmt.Errorf("blosc: container truncated (%d of %d bytes)", len(src), cbytes)
	}
	src = src[:cbytes]

	if flags&bloscFlagBitshuffle != 0 {
		return nil, fmt.Errorf("blosc: bit-shuffle not supported")
	}
	if flags&bloscFlagDelta != 0 {
		return nil, fmt.Errorf("blosc: delta filter not supported")
	}

	// Incompressible chunks are stored verbatim after the header.
	if flags&bloscFlagMemcpy != 0 {
		if bloscHeaderLen+nbytes > len(src) {
			return nil, fmt.Errorf("blosc: memcpy container truncated")
		}
		return src[bloscHeaderLen : bloscHeaderLen+nbytes], nil
	}

	if nbytes == 0 {
		return []byte{}, nil
	}
	if typesize <= 0 || blocksize <= 0 {
		return nil, fmt.Errorf("blosc: invalid header (typesize %d, blocksize %d)", typesize, blocksize)
	}

	codec := flags >> 5
	nblocks := (nbytes + blocksize - 1) / blocksize
	if bloscHeaderLen+4*nblocks > len(src) {
		return nil, fmt.Errorf("blosc: block index truncated")
	}
	bstarts := src[bloscHeaderLen : bloscHeaderLen+4*nblocks]

	out := make([]byte, nbytes)
	shuffled := flags&bloscFlagShuffle != 0 && typesize > 1
	var scratch []byte
	if shuffled {
		scratch = make([]byte, blocksize)
	}

	for b := 0; b < nblocks; b++ {
		bsize := blocksize
		if b == nblocks-1 && nbytes%blocksize != 0 {
			bsize = nbytes % blocksize
		}
		leftoverBlock := bsize != blocksize

		nstreams := 1
		if flags&bloscFlagNoSplit == 0 && !leftoverBlock {
			nstreams = typesize
		}
		if bsize%nstreams != 0 {
			return nil, fmt.Errorf("blosc: block of %d bytes cannot split into %d streams", bsize, nstreams)
		}
		neblock := bsize / nstreams

		dst := out[b*blocksize : b*blocksize+bsize]
		block := dst
		if shuffled {
			block = scratch[:bsize]
		}

		pos := int(binary.LittleEndian.Uint32(bstarts[4*b:]))
		for s := 0; s < nstreams; s++ {
			if pos < 0 || pos+4 > len(src) {
				return nil, fmt.Errorf("blosc: stream header truncated")
			}
			csize := int(int32(binary.LittleEndian.Uint32(src[pos:])))
			pos += 4
			if csize <= 0 || pos+csize > len(src) {
				return nil, fmt.Errorf("blosc: stream truncated")
			}
			stream := src[pos : pos+csize]
			pos += csize

			dstStream := block[s*neblock : (s+1)*neblock]
			if csize == neblock {
				copy(dstStream, stream) // stored literally
				continue
			}
			if err := bloscDecodeStream(codec, stream, dstStream); err != nil {
				return nil, err
			}
		}

		if shuffled {
			unshuffleBytes(block, dst, typesize)
		}
	}
	return out, nil
}

func bloscDecodeStream(codec byte, comp, dst []byte) error {
	switch codec {
	case bloscCodecLZ4:
		n, err := lz4.UncompressBlock(comp, dst)
		if err != nil {
			return fmt.Errorf("blosc lz4: %w", err)
		}
		if n != len(dst) {
			return fmt.Errorf("blosc lz4: stream decoded to %d bytes, want %d", n, len(dst))
		}
	case bloscCodecSnappy:
		out, err := snappy.Decode(dst, comp)
		if err != nil {
			return fmt.Errorf("blosc snappy: %w", err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("blosc snappy: stream decoded to %d bytes, want %d", len(out), len(dst))
		}
		copy(dst, out)
	case bloscCodecZlib:
		out, err := zlibDecode(comp, len(dst))
		if err != nil {
			return fmt.Errorf("blosc: %w", err)
		}
		copy(dst, out)
	case bloscCodecZstd:
		out, err := zstdDecode(comp, len(dst))
		if err != nil {
			return fmt.Errorf("blosc: %w", err)
		}
		copy(dst, out)
	case bloscCodecBloscLZ:
		return fmt.Errorf("blosc: blosclz codec not supported")
	default:
		return fmt.Errorf("blosc: unknown codec %d", codec)
	}
	return nil
}

// unshuffleBytes reverses the byte transposition: element j of plane i moves
// back to byte i of element j. Trailing bytes of a block that does not divide
// evenly stay in place.
func unshuffleBytes(shuf, orig []byte, typesize int) {
	nel := len(shuf) / typesize
	for i := 0; i < typesize; i++ {
		plane := shuf[i*nel : (i+1)*nel]
		for j, v := range plane {
			orig[j*typesize+i] = v
		}
	}
	tail := nel * typesize
	copy(orig[tail:], shuf[tail:])
}
