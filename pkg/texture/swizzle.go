package texture

import (
	"fmt"
	"math/bits"

	"github.com/heisthecat31/racepack/pkg/format"
)

// Unswizzler converts platform-tiled texels of bpp bytes each to row-major order.
type Unswizzler func(src []byte, width, height, bpp int) ([]byte, error)

// UnswizzlerFor returns the tiling transform of platform p, or nil when the
// platform stores texels linearly.
func UnswizzlerFor(p format.Platform) Unswizzler {
	switch p {
	case format.PlatformXbox:
		return UnswizzleMask
	case format.PlatformPS2:
		return func(src []byte, width, height, bpp int) ([]byte, error) {
			return UnswizzleQuad(src, width, height, bpp, QuadDepth(width, height))
		}
	}
	return nil
}

// SwizzlerFor is the inverse of UnswizzlerFor.
func SwizzlerFor(p format.Platform) Unswizzler {
	switch p {
	case format.PlatformXbox:
		return SwizzleMask
	case format.PlatformPS2:
		return func(src []byte, width, height, bpp int) ([]byte, error) {
			return SwizzleQuad(src, width, height, bpp, QuadDepth(width, height))
		}
	}
	return nil
}

func checkSize(src []byte, width, height, bpp int) error {
	if width <= 0 || height <= 0 || bpp <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d@%d", width, height, bpp)
	}
	if need := width * height * bpp; len(src) < need {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrShortData, need, len(src))
	}
	return nil
}

// tileMasks interleaves the u and v coordinate bits: starting from the low
// bit, each doubling of i hands the next address bit to u while i < width
// and to v while i < height.
func tileMasks(width, height int) (maskU, maskV int) {
	for i, j := 1, 1; i < width || i < height; i <<= 1 {
		if i < width {
			maskU |= j
			j <<= 1
		}
		if i < height {
			maskV |= j
			j <<= 1
		}
	}
	return maskU, maskV
}

// walkMask visits every texel in row-major order together with its tiled index.
func walkMask(width, height int, visit func(linear, tiled int)) {
	maskU, maskV := tileMasks(width, height)
	v := 0
	for y := range height {
		u := 0
		for x := range width {
			visit(y*width+x, u|v)
			u = (u - maskU) & maskU
		}
		v = (v - maskV) & maskV
	}
}

func maskTransform(src []byte, width, height, bpp int, untile bool) ([]byte, error) {
	if err := checkSize(src, width, height, bpp); err != nil {
		return nil, err
	}
	if width&(width-1) != 0 || height&(height-1) != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotPowerOfTwo, width, height)
	}
	dst := make([]byte, width*height*bpp)
	walkMask(width, height, func(linear, tiled int) {
		if untile {
			copy(dst[linear*bpp:(linear+1)*bpp], src[tiled*bpp:(tiled+1)*bpp])
		} else {
			copy(dst[tiled*bpp:(tiled+1)*bpp], src[linear*bpp:(linear+1)*bpp])
		}
	})
	return dst, nil
}

// UnswizzleMask undoes the bit-interleaved (Z-order) tiling used by Xbox.
func UnswizzleMask(src []byte, width, height, bpp int) ([]byte, error) {
	return maskTransform(src, width, height, bpp, true)
}

// SwizzleMask applies the bit-interleaved tiling used by Xbox.
func SwizzleMask(src []byte, width, height, bpp int) ([]byte, error) {
	return maskTransform(src, width, height, bpp, false)
}

// QuadDepth returns the recursion depth of the quad tiling, log2(max(w, h)).
func QuadDepth(width, height int) int {
	return max(0, bits.Len(uint(max(width, height)))-1)
}

// walkQuad visits the texels of the region (x, y, w, h) in tiled order.
// Regions split into quadrants (top-left, top-right, bottom-left,
// bottom-right) until they are at most 2x2 or depth runs out; a base region
// is emitted row by row.
func walkQuad(stride, x, y, w, h, depth int, next *int, visit func(linear, tiled int)) {
	if depth <= 1 || (w <= 2 && h <= 2) {
		for yy := y; yy < y+h; yy++ {
			for xx := x; xx < x+w; xx++ {
				visit(yy*stride+xx, *next)
				*next++
			}
		}
		return
	}

	hw, hh := max(1, w/2), max(1, h/2)
	walkQuad(stride, x, y, hw, hh, depth-1, next, visit)
	if w > 1 {
		walkQuad(stride, x+hw, y, w-hw, hh, depth-1, next, visit)
	}
	if h > 1 {
		walkQuad(stride, x, y+hh, hw, h-hh, depth-1, next, visit)
	}
	if w > 1 && h > 1 {
		walkQuad(stride, x+hw, y+hh, w-hw, h-hh, depth-1, next, visit)
	}
}

func quadTransform(src []byte, width, height, bpp, depth int, untile bool) ([]byte, error) {
	if err := checkSize(src, width, height, bpp); err != nil {
		return nil, err
	}
	dst := make([]byte, width*height*bpp)
	next := 0
	walkQuad(width, 0, 0, width, height, depth, &next, func(linear, tiled int) {
		if untile {
			copy(dst[linear*bpp:(linear+1)*bpp], src[tiled*bpp:(tiled+1)*bpp])
		} else {
			copy(dst[tiled*bpp:(tiled+1)*bpp], src[linear*bpp:(linear+1)*bpp])
		}
	})
	return dst, nil
}

// UnswizzleQuad undoes the recursive quadrant tiling used by PS2. depth is
// normally QuadDepth(width, height).
func UnswizzleQuad(src []byte, width, height, bpp, depth int) ([]byte, error) {
	return quadTransform(src, width, height, bpp, depth, true)
}

// SwizzleQuad applies the recursive quadrant tiling used by PS2.
func SwizzleQuad(src []byte, width, height, bpp, depth int) ([]byte, error) {
	return quadTransform(src, width, height, bpp, depth, false)
}
