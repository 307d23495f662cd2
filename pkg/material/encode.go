package material

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/texture"
)

type refKind uint8

const (
	refSubstance refKind = iota
	refTexture
	refPalette
)

// refEntry is a reference section entry before offsets are known.
type refEntry struct {
	kind    refKind
	idx     int
	palette int // companion palette index of a wide texture ref, -1 for none
}

type encoder struct {
	p *Package
	l *format.MaterialLayout
	h *Header

	refs      []refEntry
	matFirst  []int
	subFirst  []int
	blob      []byte
	texOffset []uint32
	palOffset []uint32
}

// Encode flattens p into a new container. Offsets are always regenerated
// from the current entry counts.
func Encode(p *Package) ([]byte, error) {
	l, err := p.Format.MaterialLayout()
	if err != nil {
		return nil, err
	}
	magic, err := format.MagicForPlatform(p.Format.Platform)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &encoder{
		p: p,
		l: l,
		h: &Header{
			Magic:       magic,
			Format:      p.Format,
			UID:         p.UID,
			Flags:       p.Flags,
			SubReserved: p.SubReserved,
		},
	}
	if err := e.buildRefs(); err != nil {
		return nil, err
	}
	e.buildBlob()

	h := e.h
	h.Materials.Count = uint32(len(p.Materials))
	h.Substances.Count = uint32(len(p.Substances))
	h.Textures.Count = uint32(len(p.Textures))
	h.Palettes.Count = uint32(len(p.Palettes))
	h.References.Count = uint32(len(e.refs))
	h.DataSize = uint32(len(e.blob))
	dataOffset := h.GenerateOffsets(l)

	w := binio.NewWriterSize(l.ByteOrder, int(dataOffset)+len(e.blob))
	if err := h.EncodeTo(w, l); err != nil {
		return nil, err
	}

	steps := []func(*binio.Writer) error{
		e.writeMaterials,
		e.writeSubstances,
		e.writeTextures,
		e.writePalettes,
		e.writeReferences,
	}
	for _, step := range steps {
		if err := step(w); err != nil {
			return nil, err
		}
	}

	if len(e.blob) > 0 {
		if err := w.PadTo(int64(dataOffset)); err != nil {
			return nil, err
		}
		w.Write(e.blob)
	}
	return w.Bytes(), nil
}

// MarshalBinary encodes the package.
func (p *Package) MarshalBinary() ([]byte, error) {
	return Encode(p)
}

// UnmarshalBinary decodes data into p.
func (p *Package) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func layoutErr(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{format.ErrLayout}, args...)...)
}

// Validate checks that every index is in range and every entry can be
// stored in the package's format.
func (p *Package) Validate() error {
	l, err := p.Format.MaterialLayout()
	if err != nil {
		return err
	}
	if !l.Palettes && len(p.Palettes) > 0 {
		return layoutErr("%s has no palette section", p.Format)
	}

	for i, m := range p.Materials {
		for _, s := range m.Substances {
			if s < 0 || s >= len(p.Substances) {
				return layoutErr("materials[%d] references substance %d of %d", i, s, len(p.Substances))
			}
		}
	}

	for i, s := range p.Substances {
		for _, t := range s.Textures {
			if t < 0 || t >= len(p.Textures) {
				return layoutErr("substances[%d] references texture %d of %d", i, t, len(p.Textures))
			}
		}
		slots := make(map[uint8]bool, len(s.Palettes))
		for _, pi := range s.Palettes {
			if pi < 0 || pi >= len(p.Palettes) {
				return layoutErr("substances[%d] references palette %d of %d", i, pi, len(p.Palettes))
			}
			if l.Generated {
				continue
			}
			slot := p.Palettes[pi].TextureSlot
			if int(slot) >= len(s.Textures) || slots[slot] {
				return layoutErr("substances[%d] palette %d cannot be bound to texture slot %d", i, pi, slot)
			}
			slots[slot] = true
		}
		if l.Generated && (len(s.Textures) > 0xFF || len(s.Palettes) > 0xFF) {
			return layoutErr("substances[%d] has too many references for an 8-bit count", i)
		}
	}

	for i, t := range p.Textures {
		if l.Generated {
			if _, err := texture.PackDims(t.Width, t.Height); err != nil {
				return layoutErr("textures[%d]: %v", i, err)
			}
		} else if t.Width > 0xFFFF || t.Height > 0xFFFF {
			return layoutErr("textures[%d]: %dx%d exceeds 16-bit dimensions", i, t.Width, t.Height)
		}
	}

	for i, pal := range p.Palettes {
		if len(pal.Data)%4 != 0 || !ValidPaletteEntries(pal.Entries()) {
			return fmt.Errorf("%w: palettes[%d] holds %d bytes", format.ErrInvalidPalette, i, len(pal.Data))
		}
		if pal.TextureSlot > 3 {
			return fmt.Errorf("%w: palettes[%d] texture slot %d", format.ErrInvalidPalette, i, pal.TextureSlot)
		}
	}
	return nil
}

// buildRefs emits substance runs for every material, then the texture
// (and PS2 palette) runs of every substance.
func (e *encoder) buildRefs() error {
	e.matFirst = make([]int, len(e.p.Materials))
	for i, m := range e.p.Materials {
		e.matFirst[i] = len(e.refs)
		for _, s := range m.Substances {
			e.refs = append(e.refs, refEntry{kind: refSubstance, idx: s, palette: -1})
		}
	}

	e.subFirst = make([]int, len(e.p.Substances))
	for i, s := range e.p.Substances {
		e.subFirst[i] = len(e.refs)
		if e.l.Generated && len(e.refs) > 0xFFFF {
			return layoutErr("substances[%d] reference index %d exceeds 16 bits", i, len(e.refs))
		}

		bound := make(map[int]int, len(s.Palettes))
		if !e.l.Generated {
			for _, pi := range s.Palettes {
				bound[int(e.p.Palettes[pi].TextureSlot)] = pi
			}
		}
		for slot, t := range s.Textures {
			entry := refEntry{kind: refTexture, idx: t, palette: -1}
			if pi, ok := bound[slot]; ok {
				entry.palette = pi
			}
			e.refs = append(e.refs, entry)
		}
		if e.l.Generated {
			for _, pi := range s.Palettes {
				e.refs = append(e.refs, refEntry{kind: refPalette, idx: pi, palette: -1})
			}
		}
	}
	return nil
}

// buildBlob packs texture data at 128-byte aligned offsets followed by
// palette data at 16-byte aligned offsets.
func (e *encoder) buildBlob() {
	var blob []byte
	place := func(data []byte, align int) uint32 {
		for len(blob)%align != 0 {
			blob = append(blob, 0)
		}
		off := uint32(len(blob))
		blob = append(blob, data...)
		return off
	}

	e.texOffset = make([]uint32, len(e.p.Textures))
	for i := range e.p.Textures {
		e.texOffset[i] = place(e.p.Textures[i].Data, format.BlobTextureAlign)
	}
	e.palOffset = make([]uint32, len(e.p.Palettes))
	for i := range e.p.Palettes {
		e.palOffset[i] = place(e.p.Palettes[i].Data, format.BlobPaletteAlign)
	}
	e.blob = blob
}

func (e *encoder) refOffset(first int) uint32 {
	return e.h.References.Offset + uint32(first)*uint32(e.l.ReferenceSize)
}

func entryOffset(s Section, size int64, idx int) uint32 {
	return s.Offset + uint32(int64(idx)*size)
}

func (e *encoder) writeMaterials(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.Materials.Offset)); err != nil {
		return err
	}
	wide := e.l.MaterialSize >= 0x18
	for i, m := range e.p.Materials {
		rec := w.Record(int(e.l.MaterialSize))
		rec.PutU16(0, uint16(m.Type))
		rec.PutU16(2, m.Handle)
		rec.PutF32(4, m.AnimSpeed)
		rec.PutU32(8, uint32(len(m.Substances)))
		rec.PutU32(12, e.refOffset(e.matFirst[i]))
		if wide {
			rec.PutU32(16, m.Flags)
			rec.PutU32(20, m.Reserved)
		}
	}
	return nil
}

func (e *encoder) writeSubstances(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.Substances.Offset)); err != nil {
		return err
	}
	for i, s := range e.p.Substances {
		rec := w.Record(int(e.l.SubstanceSize))
		rec.PutU8(0, uint8(s.Bin))
		rec.PutU24(1, s.SubstanceBits.Flags)
		rec.PutU8(4, s.TS1)
		rec.PutU8(5, s.TS2)
		rec.PutU8(6, s.TS3)
		rec.PutU8(7, uint8(s.TextureFlags))
		if e.l.Generated {
			rec.PutU8(8, uint8(len(s.Textures)))
			rec.PutU8(9, uint8(len(s.Palettes)))
			rec.PutU16(10, uint16(e.subFirst[i]))
			continue
		}
		rec.PutU32(8, uint32(len(s.Textures)))
		rec.PutU32(12, e.refOffset(e.subFirst[i]))
		copy(rec.Bytes()[16:], s.Reserved)
	}
	return nil
}

func (e *encoder) writeTextures(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.Textures.Offset)); err != nil {
		return err
	}
	for i, t := range e.p.Textures {
		rec := w.Record(int(e.l.TextureSize))
		rec.PutU32(0, t.UID)
		rec.PutU32(4, t.Hash)
		rec.PutU8(8, uint8(t.Format))
		if e.l.Generated {
			dims, err := texture.PackDims(t.Width, t.Height)
			if err != nil {
				return layoutErr("textures[%d]: %v", i, err)
			}
			rec.PutU8(9, dims)
			rec.PutU8(10, t.MipCount)
			rec.PutU16(12, t.Flags)
		} else {
			rec.PutU8(9, t.MipCount)
			rec.PutU16(10, t.Flags)
			rec.PutU16(12, uint16(t.Width))
			rec.PutU16(14, uint16(t.Height))
		}
		rec.PutU32(16, e.texOffset[i])
		rec.PutU32(20, uint32(len(t.Data)))
		copy(rec.Bytes()[24:], t.Reserved)
	}
	return nil
}

func (e *encoder) writePalettes(w *binio.Writer) error {
	if len(e.p.Palettes) == 0 {
		return nil
	}
	if err := w.PadTo(int64(e.h.Palettes.Offset)); err != nil {
		return err
	}
	for i, p := range e.p.Palettes {
		rec := w.Record(int(e.l.PaletteSize))
		rec.PutU8(0, p.TextureSlot)
		rec.PutU16(2, uint16(p.Entries()))
		rec.PutU32(4, e.palOffset[i])
		rec.PutU32(8, uint32(len(p.Data)))
		rec.PutU32(12, p.Reserved)
	}
	return nil
}

func (e *encoder) writeReferences(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.References.Offset)); err != nil {
		return err
	}
	h, l := e.h, e.l
	for _, r := range e.refs {
		rec := w.Record(int(l.ReferenceSize))
		switch r.kind {
		case refSubstance:
			rec.PutU32(0, entryOffset(h.Substances, l.SubstanceSize, r.idx))
		case refTexture:
			rec.PutU32(0, entryOffset(h.Textures, l.TextureSize, r.idx))
		case refPalette:
			rec.PutU32(0, entryOffset(h.Palettes, l.PaletteSize, r.idx))
		}
		if l.ReferenceSize >= 8 && r.palette >= 0 {
			rec.PutU32(4, entryOffset(h.Palettes, l.PaletteSize, r.palette))
		}
	}
	return nil
}
