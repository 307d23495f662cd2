package material

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/ref"
	"github.com/heisthecat31/racepack/pkg/texture"
)

// reference is one entry of the reference section.
type reference struct {
	target    uint32
	companion uint32
}

type decoder struct {
	r    *binio.Reader
	h    *Header
	l    *format.MaterialLayout
	pkg  *Package
	blob []byte

	refs []reference

	refTable       *ref.Table
	substanceTable *ref.Table
	textureTable   *ref.Table
	paletteTable   *ref.Table
}

// Decode parses a complete material package.
func Decode(data []byte) (*Package, error) {
	r := binio.NewReader(data, binary.LittleEndian)
	h, l, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if err := h.checkSections(l, len(data)); err != nil {
		return nil, err
	}
	if l.ByteOrder != binary.LittleEndian {
		r = binio.NewReader(data, l.ByteOrder)
	}

	d := &decoder{
		r: r,
		h: h,
		l: l,
		pkg: &Package{
			Format:      h.Format,
			UID:         h.UID,
			Flags:       h.Flags,
			SubReserved: h.SubReserved,
		},
	}
	d.refTable = ref.Strided("reference", h.References.Offset, uint32(l.ReferenceSize), int(h.References.Count))
	d.substanceTable = ref.Strided("substance", h.Substances.Offset, uint32(l.SubstanceSize), int(h.Substances.Count))
	d.textureTable = ref.Strided("texture", h.Textures.Offset, uint32(l.TextureSize), int(h.Textures.Count))
	d.paletteTable = ref.Strided("palette", h.Palettes.Offset, uint32(l.PaletteSize), int(h.Palettes.Count))

	steps := []func() error{
		d.readBlob,
		d.readReferences,
		d.readPalettes,
		d.readTextures,
		d.readSubstances,
		d.readMaterials,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return d.pkg, nil
}

// readBlob locates the texture data. Version 1 stores no blob bounds; the
// blob starts at the data alignment after the references and runs to the
// end of the container.
func (d *decoder) readBlob() error {
	if !d.l.DataSection {
		start := binio.Align(d.h.References.End(d.l.ReferenceSize), d.l.DataAlign)
		d.h.DataOffset = uint32(start)
		d.h.DataSize = uint32(max(0, d.r.Len()-start))
	}
	if d.h.DataSize == 0 {
		return nil
	}
	if err := d.r.SeekAbsolute(int64(d.h.DataOffset)); err != nil {
		return format.Errorf(int64(d.h.DataOffset), err, "textureData")
	}
	blob, err := d.r.ReadBytes(int64(d.h.DataSize))
	if err != nil {
		return format.Errorf(int64(d.h.DataOffset), err, "textureData")
	}
	d.blob = blob
	return nil
}

// blobRange returns a copy of [off, off+size) of the texture blob.
func (d *decoder) blobRange(off, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	end := uint64(off) + uint64(size)
	if end > uint64(len(d.blob)) {
		return nil, fmt.Errorf("%w: blob range 0x%x+0x%x exceeds blob of 0x%x bytes",
			binio.ErrTruncatedInput, off, size, len(d.blob))
	}
	return bytes.Clone(d.blob[off:end]), nil
}

// entries seeks to a section and calls fn with a record view of each entry.
func (d *decoder) entries(name string, s Section, size int64, fn func(i int, rec binio.Record, at int64) error) error {
	if err := d.r.SeekAbsolute(int64(s.Offset)); err != nil {
		return format.Errorf(int64(s.Offset), err, "%s", name)
	}
	for i := range int(s.Count) {
		at := d.r.Pos()
		rec, err := d.r.ReadRecord(size)
		if err != nil {
			return format.Errorf(at, err, "%s[%d]", name, i)
		}
		if err := fn(i, rec, at); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readReferences() error {
	d.refs = make([]reference, d.h.References.Count)
	return d.entries("references", d.h.References, d.l.ReferenceSize, func(i int, rec binio.Record, _ int64) error {
		d.refs[i].target = rec.U32(0)
		if d.l.ReferenceSize >= 8 {
			d.refs[i].companion = rec.U32(4)
		}
		return nil
	})
}

func (d *decoder) readPalettes() error {
	if d.h.Palettes.Count > 0 && d.l.PaletteSize == 0 {
		return format.Errorf(0, format.ErrUnsupportedFormat, "header.palettes")
	}
	d.pkg.Palettes = make([]Palette, d.h.Palettes.Count)
	return d.entries("palettes", d.h.Palettes, d.l.PaletteSize, func(i int, rec binio.Record, at int64) error {
		p := &d.pkg.Palettes[i]
		p.TextureSlot = rec.U8(0)
		p.Reserved = rec.U32(12)

		count, off, size := rec.U16(2), rec.U32(4), rec.U32(8)
		if !ValidPaletteEntries(int(count)) || size != uint32(count)*4 {
			return format.Errorf(at, fmt.Errorf("%w: %d entries in %d bytes", format.ErrInvalidPalette, count, size),
				"palettes[%d].entryCount", i)
		}
		data, err := d.blobRange(off, size)
		if err != nil {
			return format.Errorf(at+4, err, "palettes[%d].dataOffset", i)
		}
		p.Data = data
		return nil
	})
}

func (d *decoder) readTextures() error {
	d.pkg.Textures = make([]Texture, d.h.Textures.Count)
	return d.entries("textures", d.h.Textures, d.l.TextureSize, func(i int, rec binio.Record, at int64) error {
		t := &d.pkg.Textures[i]
		t.UID = rec.U32(0)
		t.Hash = rec.U32(4)
		t.Format = texture.Format(rec.U8(8))

		if d.l.Generated {
			t.Width, t.Height = texture.UnpackDims(rec.U8(9))
			t.MipCount = rec.U8(10)
			t.Flags = rec.U16(12)
		} else {
			t.MipCount = rec.U8(9)
			t.Flags = rec.U16(10)
			t.Width = uint32(rec.U16(12))
			t.Height = uint32(rec.U16(14))
		}
		t.Reserved = bytes.Clone(rec.Bytes()[24:])

		data, err := d.blobRange(rec.U32(16), rec.U32(20))
		if err != nil {
			return format.Errorf(at+16, err, "textures[%d].dataOffset", i)
		}
		t.Data = data
		return nil
	})
}

// resolveRefs maps a run of reference entries to entry indices of target.
// When palettes is non-nil, the companion word of each entry is resolved as a
// palette offset and appended to it.
func (d *decoder) resolveRefs(first, count int, target *ref.Table, palettes *[]int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	if first < 0 || first+count > len(d.refs) {
		return nil, fmt.Errorf("%w: references %d..%d of %d", format.ErrDanglingReference, first, first+count, len(d.refs))
	}
	out := make([]int, count)
	for k, rf := range d.refs[first : first+count] {
		idx, err := target.Resolve(rf.target)
		if err != nil {
			return nil, err
		}
		out[k] = idx
		if palettes != nil && rf.companion != 0 {
			p, err := d.paletteTable.Resolve(rf.companion)
			if err != nil {
				return nil, err
			}
			*palettes = append(*palettes, p)
		}
	}
	return out, nil
}

// refRun converts the stored offset of a reference run to its first index.
func (d *decoder) refRun(offset uint32, count int) (int, error) {
	if count == 0 {
		return 0, nil
	}
	run, err := d.refTable.ResolveRun(offset, count)
	if err != nil {
		return 0, err
	}
	return run[0], nil
}

func (d *decoder) readSubstances() error {
	d.pkg.Substances = make([]Substance, d.h.Substances.Count)
	return d.entries("substances", d.h.Substances, d.l.SubstanceSize, func(i int, rec binio.Record, at int64) error {
		s := &d.pkg.Substances[i]
		s.Bin = Bin(rec.U8(0))
		s.SubstanceBits.Flags = rec.U24(1)
		s.TS1 = rec.U8(4)
		s.TS2 = rec.U8(5)
		s.TS3 = rec.U8(6)
		s.TextureFlags = TextureFlags(rec.U8(7))

		if d.l.Generated {
			texCount, palCount, first := int(rec.U8(8)), int(rec.U8(9)), int(rec.U16(10))
			var err error
			if s.Textures, err = d.resolveRefs(first, texCount, d.textureTable, nil); err != nil {
				return format.Errorf(at+10, err, "substances[%d].textureRefs", i)
			}
			if s.Palettes, err = d.resolveRefs(first+texCount, palCount, d.paletteTable, nil); err != nil {
				return format.Errorf(at+10, err, "substances[%d].paletteRefs", i)
			}
			return nil
		}

		count, offset := int(rec.U32(8)), rec.U32(12)
		s.Reserved = bytes.Clone(rec.Bytes()[16:])
		first, err := d.refRun(offset, count)
		if err != nil {
			return format.Errorf(at+12, err, "substances[%d].textureRefs", i)
		}
		var palettes *[]int
		if d.l.ReferenceSize >= 8 {
			palettes = &s.Palettes
		}
		if s.Textures, err = d.resolveRefs(first, count, d.textureTable, palettes); err != nil {
			return format.Errorf(at+12, err, "substances[%d].textureRefs", i)
		}
		return nil
	})
}

func (d *decoder) readMaterials() error {
	d.pkg.Materials = make([]Material, d.h.Materials.Count)
	wide := d.l.MaterialSize >= 0x18
	return d.entries("materials", d.h.Materials, d.l.MaterialSize, func(i int, rec binio.Record, at int64) error {
		m := &d.pkg.Materials[i]
		m.Type = Type(rec.U16(0))
		m.Handle = rec.U16(2)
		m.AnimSpeed = rec.F32(4)
		if wide {
			m.Flags = rec.U32(16)
			m.Reserved = rec.U32(20)
		}

		count, offset := int(rec.U32(8)), rec.U32(12)
		first, err := d.refRun(offset, count)
		if err == nil {
			m.Substances, err = d.resolveRefs(first, count, d.substanceTable, nil)
		}
		if err != nil {
			return format.Errorf(at+12, err, "materials[%d].substanceRefs", i)
		}
		return nil
	})
}
