package texture

import (
	"fmt"
	"math/bits"
)

// levelSize returns the byte size of one mip level. Block formats are
// stored in 4x4 blocks of 16 texels, so a block costs bpp*16/8 = bpp*2 bytes.
func levelSize(f Format, width, height uint32) uint32 {
	info := formats[f]
	if info.compressed {
		return ((width + 3) / 4) * ((height + 3) / 4) * info.bpp * 2
	}
	return width * height * info.bpp / 8
}

// DataSize sums the mip chain of a 2D texture. A mip count of zero means a
// single level.
func DataSize(f Format, width, height, mips uint32) uint32 {
	return chainSize(f, width, height, 1, mips)
}

func chainSize(f Format, width, height, depth, mips uint32) uint32 {
	var total uint32
	for level := range max(1, mips) {
		w := max(1, width>>level)
		h := max(1, height>>level)
		d := max(1, depth>>level)
		total += levelSize(f, w, h) * d
	}
	return total
}

// DataSize returns the payload size described by the header, including
// every cube face or volume slice.
func (h *Header) DataSize() (uint32, error) {
	f, err := h.Format()
	if err != nil {
		return 0, err
	}

	faces := uint32(1)
	if h.Caps2&DDS_CUBEMAP != 0 {
		faces = uint32(bits.OnesCount32(h.Caps2 & DDS_CUBEMAP_ALLFACES))
		if faces == 0 {
			faces = DDS_DEFAULT_CUBEFACES
		}
	}

	depth := uint32(1)
	if h.Caps2&DDS_VOLUME != 0 && h.Flags&DDS_HEADER_FLAGS_DEPTH != 0 {
		depth = max(1, h.Depth)
	}

	return chainSize(f, h.Width, h.Height, depth, h.MipMapCount) * faces, nil
}

// PackedBits returns log2(v) for a power-of-two v that fits a nibble.
func PackedBits(v uint32) (uint8, error) {
	if v == 0 || v&(v-1) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, v)
	}
	n := bits.TrailingZeros32(v)
	if n > 15 {
		return 0, fmt.Errorf("%w: %d does not fit a nibble", ErrNotPowerOfTwo, v)
	}
	return uint8(n), nil
}

// FromPackedBits is the inverse of PackedBits.
func FromPackedBits(n uint8) uint32 {
	return 1 << (n & 0xF)
}

// PackDims stores log2(width) in the low nibble and log2(height) in the high nibble.
func PackDims(width, height uint32) (uint8, error) {
	w, err := PackedBits(width)
	if err != nil {
		return 0, fmt.Errorf("width: %w", err)
	}
	h, err := PackedBits(height)
	if err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}
	return h<<4 | w, nil
}

// UnpackDims is the inverse of PackDims.
func UnpackDims(b uint8) (width, height uint32) {
	return FromPackedBits(b & 0xF), FromPackedBits(b >> 4)
}
