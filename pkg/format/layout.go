package format

import (
	"encoding/binary"
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
)

// Alignments shared by every layout.
const (
	SectionAlign     = 128
	PCDataAlign      = 4096
	PS2DataAlign     = 128
	BlobTextureAlign = 128
	BlobPaletteAlign = 16
)

// MaterialLayout holds the material package constants of one Format.
type MaterialLayout struct {
	HeaderSize    int64
	MaterialSize  int64
	SubstanceSize int64
	TextureSize   int64
	PaletteSize   int64
	ReferenceSize int64

	// Palettes reports a palette section and wide (8-byte) references on PC/Xbox.
	Palettes bool
	// DataSection reports a stored texture blob (offset, size) pair.
	DataSection bool
	// SubHeader reports the trailing uid/flags block of version 9.
	SubHeader bool
	// Generated reports that section offsets are implicit (PS2).
	Generated bool

	DataAlign int64
	ByteOrder binary.ByteOrder
}

// ModelLayout holds the model package constants of one Format.
type ModelLayout struct {
	HeaderSize       int64
	ModelSize        int64
	LodSize          int64
	LodInstanceSize  int64
	SubModelSize     int64
	XboxSubModelSize int64
	VertexDeclSize   int64
	ModelNameSize    int

	// XboxSizeHack enables the narrow SubModel detection heuristic.
	XboxSizeHack bool

	ByteOrder binary.ByteOrder
}

// MaxLods is the number of inline Lod slots in every Model entry.
const MaxLods = 6

var materialLayouts = map[uint32]MaterialLayout{
	1: {
		HeaderSize: 0x28, MaterialSize: 0x10, SubstanceSize: 0x1C, TextureSize: 0x20,
		ReferenceSize: 0x4, DataAlign: PCDataAlign, ByteOrder: binary.LittleEndian,
	},
	6: {
		HeaderSize: 0x38, MaterialSize: 0x18, SubstanceSize: 0x20, TextureSize: 0x20,
		PaletteSize: 0x10, ReferenceSize: 0x8, Palettes: true, DataSection: true,
		DataAlign: PCDataAlign, ByteOrder: binary.LittleEndian,
	},
	9: {
		HeaderSize: 0x48, MaterialSize: 0x18, SubstanceSize: 0x20, TextureSize: 0x20,
		PaletteSize: 0x10, ReferenceSize: 0x8, Palettes: true, DataSection: true, SubHeader: true,
		DataAlign: PCDataAlign, ByteOrder: binary.LittleEndian,
	},
}

var ps2MaterialLayout = MaterialLayout{
	HeaderSize: 0x14, MaterialSize: 0x10, SubstanceSize: 0xC, TextureSize: 0x28,
	PaletteSize: 0x10, ReferenceSize: 0x4, Palettes: true, DataSection: true, Generated: true,
	DataAlign: PS2DataAlign, ByteOrder: binary.LittleEndian,
}

var modelLayouts = map[uint32]ModelLayout{
	1: {
		HeaderSize: 0x44, ModelSize: 0x14C, LodSize: 0x18, LodInstanceSize: 0x4E,
		SubModelSize: 0x38, XboxSubModelSize: 0x18, VertexDeclSize: 0x10, ModelNameSize: 40,
		ByteOrder: binary.LittleEndian,
	},
	6: {
		HeaderSize: 0x48, ModelSize: 0x188, LodSize: 0x20, LodInstanceSize: 0x58,
		SubModelSize: 0x38, XboxSubModelSize: 0x18, VertexDeclSize: 0x10, ModelNameSize: 52,
		ByteOrder: binary.LittleEndian,
	},
	9: {
		HeaderSize: 0x44, ModelSize: 0x14C, LodSize: 0x18, LodInstanceSize: 0x4E,
		SubModelSize: 0x38, XboxSubModelSize: 0x18, VertexDeclSize: 0x10, ModelNameSize: 40,
		XboxSizeHack: true, ByteOrder: binary.LittleEndian,
	},
}

// MaterialLayout returns the material package layout of f.
func (f Format) MaterialLayout() (*MaterialLayout, error) {
	if !SupportedVersion(f.Version) {
		return nil, fmt.Errorf("%w: material package %s", ErrUnsupportedFormat, f)
	}
	switch f.Platform {
	case PlatformPC, PlatformXbox:
		l := materialLayouts[f.Version]
		return &l, nil
	case PlatformPS2:
		l := ps2MaterialLayout
		return &l, nil
	}
	return nil, fmt.Errorf("%w: material package %s", ErrUnsupportedFormat, f)
}

// ModelLayout returns the model package layout of f.
func (f Format) ModelLayout() (*ModelLayout, error) {
	if f.Platform != PlatformPC && f.Platform != PlatformXbox {
		return nil, fmt.Errorf("%w: model package %s", ErrUnsupportedFormat, f)
	}
	l, ok := modelLayouts[f.Version]
	if !ok {
		return nil, fmt.Errorf("%w: model package %s", ErrUnsupportedFormat, f)
	}
	return &l, nil
}

// Place lays out consecutive sections of the given byte lengths. The first
// section starts at align(start, align) and each following one at the
// aligned end of its predecessor. It returns the section offsets and the
// aligned end of the last section.
func Place(start int64, lengths []int64, align int64) ([]int64, int64) {
	offsets := make([]int64, len(lengths))
	cur := binio.Align(start, align)
	for i, n := range lengths {
		offsets[i] = cur
		cur = binio.Align(cur+n, align)
	}
	return offsets, cur
}
