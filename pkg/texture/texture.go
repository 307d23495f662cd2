// Package texture provides codecs for the texture payloads stored in
// material packages.
//
// Textures come in three shapes:
// 1. 8-bit palette indices (P8), tiled ("swizzled") on Xbox and PS2
// 2. DXT block-compressed data, stored linearly on every platform
// 3. 32-bit ARGB, produced by depalettizing P8 data for export
//
// The DDS header codec wraps any of these for external tools; the swizzle
// transforms convert platform-native tiling to row-major order and back.
package texture

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrUnsupportedFormat means a texture format value has no codec.
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	// ErrNotPowerOfTwo means a dimension cannot be stored as a log2 nibble.
	ErrNotPowerOfTwo = errors.New("dimension is not a power of two")
	// ErrShortData means a pixel buffer is smaller than its dimensions require.
	ErrShortData = errors.New("pixel data too short")
)

// Format is the texture format tag stored in texture entries.
type Format uint8

const (
	FormatUnknown Format = 0
	FormatP8      Format = 1
	FormatDXT1    Format = 2
	FormatDXT2    Format = 3
	FormatDXT3    Format = 4
	FormatDXT5    Format = 5
	FormatARGB8   Format = 6
)

// formatInfo is the per-format table driving size computation and DDS mapping.
type formatInfo struct {
	name       string
	bpp        uint32 // bits per pixel
	compressed bool
	fourCC     uint32
}

var formats = map[Format]formatInfo{
	FormatP8:    {name: "P8", bpp: 8},
	FormatDXT1:  {name: "DXT1", bpp: 4, compressed: true, fourCC: FourCCDXT1},
	FormatDXT2:  {name: "DXT2", bpp: 8, compressed: true, fourCC: FourCCDXT2},
	FormatDXT3:  {name: "DXT3", bpp: 8, compressed: true, fourCC: FourCCDXT3},
	FormatDXT5:  {name: "DXT5", bpp: 8, compressed: true, fourCC: FourCCDXT5},
	FormatARGB8: {name: "ARGB8", bpp: 32},
}

// Valid reports whether f has a codec.
func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

// String returns a human-readable name for the format.
func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(0x%x)", uint8(f))
}

// BitsPerPixel returns the storage cost of one texel.
func (f Format) BitsPerPixel() uint32 {
	return formats[f].bpp
}

// Compressed reports whether f is stored in 4x4 blocks.
func (f Format) Compressed() bool {
	return formats[f].compressed
}

// ContentHash computes the content-hash handle stored alongside texture data.
func ContentHash(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}
