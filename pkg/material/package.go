// Package material implements the material package container: a flat set of
// materials, their substances (shader passes), and the textures and palettes
// those substances sample.
//
// Entries link to each other by index into the Package's arrays. Byte
// offsets only exist inside Decode and Encode.
package material

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/texture"
)

// Type distinguishes plain material groups from animated materials.
type Type uint16

const (
	TypeGroup    Type = 0
	TypeAnimated Type = 1
)

func (t Type) String() string {
	switch t {
	case TypeGroup:
		return "Group"
	case TypeAnimated:
		return "Animated"
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// Material is an ordered list of substances addressed by its Handle.
type Material struct {
	Type      Type
	Handle    uint16
	AnimSpeed float32
	Flags     uint32 // v6 and later
	Reserved  uint32

	// Substances indexes Package.Substances.
	Substances []int
}

// SubstanceBits are the compact shader fields of a substance, the input and
// output of the shader transcoder.
type SubstanceBits struct {
	Bin          Bin
	Flags        uint32 // 24 bits
	TS1          uint8
	TS2          uint8
	TS3          uint8
	TextureFlags TextureFlags
}

// Substance is one shader pass of a material.
type Substance struct {
	SubstanceBits

	// Textures indexes Package.Textures by slot.
	Textures []int
	// Palettes indexes Package.Palettes.
	Palettes []int

	Reserved []byte
}

// Texture is one texture entry and its raw, platform-native pixel data
// (all mip levels).
type Texture struct {
	UID      uint32
	Hash     uint32
	Format   texture.Format
	Width    uint32
	Height   uint32
	MipCount uint8
	Flags    uint16
	Data     []byte

	Reserved []byte
}

// SetData replaces the pixel data and recomputes the content hash.
func (t *Texture) SetData(data []byte) {
	t.Data = data
	t.Hash = texture.ContentHash(data)
}

// Palette holds the BGRA entries of a P8 texture.
type Palette struct {
	// TextureSlot is the substance texture slot (0-3) the palette colors.
	TextureSlot uint8
	Data        []byte
	Reserved    uint32
}

// Entries returns the number of palette entries.
func (p *Palette) Entries() int {
	return len(p.Data) / 4
}

// ValidPaletteEntries reports whether n is a storable palette size.
func ValidPaletteEntries(n int) bool {
	switch n {
	case 32, 64, 128, 256:
		return true
	}
	return false
}

// Package is a decoded material package.
type Package struct {
	Format format.Format

	// UID and Flags come from the version 9 sub-header.
	UID         uint32
	Flags       uint32
	SubReserved [8]byte

	Materials  []Material
	Substances []Substance
	Textures   []Texture
	Palettes   []Palette
}

// HasSubstances is implemented by anything that owns substances.
type HasSubstances interface {
	Substances() []*Substance
}

// HasTextures is implemented by anything that samples textures.
type HasTextures interface {
	Textures() []*Texture
}

var (
	_ HasSubstances = MaterialRef{}
	_ HasTextures   = MaterialRef{}
	_ HasTextures   = SubstanceRef{}
)

func pick[T any](arena []T, idx []int) []*T {
	out := make([]*T, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(arena) {
			out = append(out, &arena[i])
		}
	}
	return out
}

// MaterialRef binds a material index to its package.
type MaterialRef struct {
	Package *Package
	Index   int
}

// Material returns a reference to material i.
func (p *Package) Material(i int) MaterialRef {
	return MaterialRef{Package: p, Index: i}
}

// FindHandle returns the index of the material with the given handle.
func (p *Package) FindHandle(handle uint16) (int, bool) {
	for i := range p.Materials {
		if p.Materials[i].Handle == handle {
			return i, true
		}
	}
	return 0, false
}

func (r MaterialRef) Get() *Material {
	return &r.Package.Materials[r.Index]
}

// Substance returns the j-th substance of the material.
func (r MaterialRef) Substance(j int) SubstanceRef {
	return SubstanceRef{Package: r.Package, Index: r.Get().Substances[j]}
}

func (r MaterialRef) Substances() []*Substance {
	return pick(r.Package.Substances, r.Get().Substances)
}

// Textures returns the textures of every substance, in substance order.
func (r MaterialRef) Textures() []*Texture {
	var out []*Texture
	for _, s := range r.Get().Substances {
		out = append(out, SubstanceRef{Package: r.Package, Index: s}.Textures()...)
	}
	return out
}

// SubstanceRef binds a substance index to its package.
type SubstanceRef struct {
	Package *Package
	Index   int
}

func (r SubstanceRef) Get() *Substance {
	return &r.Package.Substances[r.Index]
}

// Texture returns the texture in slot k.
func (r SubstanceRef) Texture(k int) *Texture {
	return &r.Package.Textures[r.Get().Textures[k]]
}

func (r SubstanceRef) Textures() []*Texture {
	return pick(r.Package.Textures, r.Get().Textures)
}

func (r SubstanceRef) Palettes() []*Palette {
	return pick(r.Package.Palettes, r.Get().Palettes)
}

// PaletteFor returns the palette bound to texture slot k, if any.
func (r SubstanceRef) PaletteFor(k int) (*Palette, bool) {
	for _, p := range r.Palettes() {
		if int(p.TextureSlot) == k {
			return p, true
		}
	}
	return nil, false
}
