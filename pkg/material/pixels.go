package material

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/texture"
)

// Pixels returns the top mip level of texture i in row-major order. P8
// data is untiled for the package's platform; block-compressed data is
// returned as stored.
func (p *Package) Pixels(i int) ([]byte, error) {
	if i < 0 || i >= len(p.Textures) {
		return nil, fmt.Errorf("texture %d out of range (%d textures)", i, len(p.Textures))
	}
	t := &p.Textures[i]
	if !t.Format.Valid() {
		return nil, fmt.Errorf("textures[%d]: %w: %s", i, texture.ErrUnsupportedFormat, t.Format)
	}
	size := texture.DataSize(t.Format, t.Width, t.Height, 1)
	if uint32(len(t.Data)) < size {
		return nil, fmt.Errorf("textures[%d]: %w: need %d bytes, got %d", i, texture.ErrShortData, size, len(t.Data))
	}
	top := t.Data[:size]

	if t.Format != texture.FormatP8 {
		return top, nil
	}
	unswizzle := texture.UnswizzlerFor(p.Format.Platform)
	if unswizzle == nil {
		return top, nil
	}
	return unswizzle(top, int(t.Width), int(t.Height), 1)
}

// Depalettize expands the P8 texture in slot k of the substance to 32-bit
// BGRA using the palette bound to that slot.
func (r SubstanceRef) Depalettize(k int) ([]byte, error) {
	s := r.Get()
	if k < 0 || k >= len(s.Textures) {
		return nil, fmt.Errorf("texture slot %d out of range (%d slots)", k, len(s.Textures))
	}
	t := r.Texture(k)
	if t.Format != texture.FormatP8 {
		return nil, fmt.Errorf("texture slot %d is %s, not P8", k, t.Format)
	}
	pal, ok := r.PaletteFor(k)
	if !ok {
		return nil, fmt.Errorf("texture slot %d has no palette", k)
	}

	size := int(t.Width) * int(t.Height)
	if len(t.Data) < size {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", texture.ErrShortData, size, len(t.Data))
	}
	return texture.Depalettize(t.Data[:size], int(t.Width), int(t.Height), pal.Data,
		texture.UnswizzlerFor(r.Package.Format.Platform))
}
