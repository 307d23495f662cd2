package texture

import "fmt"

// PaletteEntries is the size of an expanded palette.
const PaletteEntries = 256

// ExpandPalette pads a palette of 32, 64, 128 or 256 BGRA entries to 256 entries.
func ExpandPalette(palette []byte) ([]byte, error) {
	if len(palette)%4 != 0 || len(palette) > PaletteEntries*4 {
		return nil, fmt.Errorf("invalid palette length %d", len(palette))
	}
	out := make([]byte, PaletteEntries*4)
	copy(out, palette)
	return out, nil
}

// Depalettize expands P8 indices into 32-bit BGRA texels. Indices are first
// converted to row-major order with unswizzle (nil for linear data).
func Depalettize(indices []byte, width, height int, palette []byte, unswizzle Unswizzler) ([]byte, error) {
	if err := checkSize(indices, width, height, 1); err != nil {
		return nil, err
	}

	linear := indices[:width*height]
	if unswizzle != nil {
		var err error
		if linear, err = unswizzle(linear, width, height, 1); err != nil {
			return nil, fmt.Errorf("unswizzle indices: %w", err)
		}
	}

	pal, err := ExpandPalette(palette)
	if err != nil {
		return nil, err
	}

	out := make([]byte, width*height*4)
	for y := range height {
		row := out[y*width*4 : (y+1)*width*4]
		for x, idx := range linear[y*width : (y+1)*width] {
			copy(row[x*4:x*4+4], pal[int(idx)*4:int(idx)*4+4])
		}
	}
	return out, nil
}
