package model

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
)

func layoutErr(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{format.ErrLayout}, args...)...)
}

// runStart returns the first index of a contiguous ascending run.
func runStart(idx []int, n int) (int, bool) {
	if len(idx) == 0 {
		return 0, true
	}
	for k, i := range idx {
		if i != idx[0]+k || i < 0 || i >= n {
			return 0, false
		}
	}
	return idx[0], true
}

// Validate checks that p can be stored in its format: indices in range,
// instance and submodel lists contiguous, and narrow submodels only where
// the format has them.
func (p *Package) Validate() error {
	l, err := p.Format.ModelLayout()
	if err != nil {
		return err
	}
	if p.XboxSubModels && !l.XboxSizeHack {
		return layoutErr("%s has no narrow submodel layout", p.Format)
	}
	if p.XboxSubModels {
		// Sections start 128-byte aligned, so only the record span decides
		// whether a reader can tell the narrow layout apart.
		n := int64(len(p.SubModels))
		if binio.Align(n*l.XboxSubModelSize, format.SectionAlign) >= binio.Align(n*l.SubModelSize, format.SectionAlign) {
			return layoutErr("%d narrow submodels occupy the same aligned span as standard records", n)
		}
	}

	for i := range p.Models {
		m := &p.Models[i]
		if len(m.Lods) > format.MaxLods {
			return layoutErr("models[%d] has %d lods, max %d", i, len(m.Lods), format.MaxLods)
		}
		if len(m.Name) >= l.ModelNameSize {
			return layoutErr("models[%d] name %q exceeds %d bytes", i, m.Name, l.ModelNameSize-1)
		}
		for j := range m.Lods {
			if _, ok := runStart(m.Lods[j].Instances, len(p.LodInstances)); !ok {
				return layoutErr("models[%d].lods[%d] instances %v are not a contiguous run", i, j, m.Lods[j].Instances)
			}
		}
	}

	for i := range p.LodInstances {
		if _, ok := runStart(p.LodInstances[i].SubModels, len(p.SubModels)); !ok {
			return layoutErr("lodInstances[%d] submodels %v are not a contiguous run", i, p.LodInstances[i].SubModels)
		}
	}

	for i := range p.SubModels {
		s := &p.SubModels[i]
		if s.VertexDecl >= len(p.VertexDecls) || s.VertexDecl < -1 {
			return layoutErr("subModels[%d] references vertex declaration %d of %d", i, s.VertexDecl, len(p.VertexDecls))
		}
		if p.XboxSubModels {
			if s.Topology > 0xFF || s.VertexCount > 0xFFFF {
				return layoutErr("subModels[%d] does not fit a narrow record", i)
			}
			if s.VertexDecl != -1 || s.Bounds != (SubModel{}).Bounds {
				return layoutErr("subModels[%d] narrow records store no vertex declaration or bounds", i)
			}
		}
	}
	return nil
}

// Encode flattens p into a new container. Offsets are regenerated from the
// current counts.
func Encode(p *Package) ([]byte, error) {
	l, err := p.Format.ModelLayout()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var mats []byte
	if p.Materials != nil {
		if mats, err = material.Encode(p.Materials); err != nil {
			return nil, fmt.Errorf("embedded material package: %w", err)
		}
	}

	subModelSize := l.SubModelSize
	if p.XboxSubModels {
		subModelSize = l.XboxSubModelSize
	}

	h := &Header{
		Version:  p.Format.Version,
		Flags:    p.Flags,
		UID:      p.UID,
		Reserved: p.Reserved,
	}
	h.Models.Count = uint32(len(p.Models))
	h.LodInstances.Count = uint32(len(p.LodInstances))
	h.SubModels.Count = uint32(len(p.SubModels))
	h.VertexDecls.Count = uint32(len(p.VertexDecls))
	h.VertexBuffer.Count = uint32(len(p.VertexBuffer))
	h.IndexBuffer.Count = uint32(len(p.IndexBuffer))
	h.Materials.Count = uint32(len(mats))
	end := h.GenerateOffsets(l, subModelSize)

	e := &encoder{p: p, l: l, h: h, subModelSize: subModelSize}
	w := binio.NewWriterSize(l.ByteOrder, int(end))
	h.EncodeTo(w, l)

	steps := []func(*binio.Writer) error{
		e.writeModels,
		e.writeLodInstances,
		e.writeSubModels,
		e.writeVertexDecls,
	}
	for _, step := range steps {
		if err := step(w); err != nil {
			return nil, err
		}
	}
	for _, blob := range []struct {
		s    material.Section
		data []byte
	}{
		{h.VertexBuffer, p.VertexBuffer},
		{h.IndexBuffer, p.IndexBuffer},
		{h.Materials, mats},
	} {
		if len(blob.data) == 0 {
			continue
		}
		if err := w.PadTo(int64(blob.s.Offset)); err != nil {
			return nil, err
		}
		w.Write(blob.data)
	}
	return w.Bytes(), nil
}

// MarshalBinary encodes the package.
func (p *Package) MarshalBinary() ([]byte, error) {
	return Encode(p)
}

type encoder struct {
	p *Package
	l *format.ModelLayout
	h *Header

	subModelSize int64
}

func (e *encoder) instanceOffset(idx []int) uint32 {
	first, _ := runStart(idx, len(e.p.LodInstances))
	return e.h.LodInstances.Offset + uint32(int64(first)*e.l.LodInstanceSize)
}

func (e *encoder) subModelOffset(idx []int) uint32 {
	first, _ := runStart(idx, len(e.p.SubModels))
	return e.h.SubModels.Offset + uint32(int64(first)*e.subModelSize)
}

func (e *encoder) writeModels(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.Models.Offset)); err != nil {
		return err
	}
	nameOff := modelLods + format.MaxLods*int(e.l.LodSize)
	for i := range e.p.Models {
		m := &e.p.Models[i]
		rec := w.Record(int(e.l.ModelSize))
		rec.PutU32(0, m.UID)
		rec.PutF32s(4, m.Scale[:])
		rec.PutF32s(16, m.Transform[:])
		rec.PutF32s(80, m.Pivot[:])
		rec.PutU32(modelLodCount, uint32(len(m.Lods)))
		for j := range m.Lods {
			lod := &m.Lods[j]
			base := modelLods + j*int(e.l.LodSize)
			rec.PutU32(base, lod.Mask)
			rec.PutU32(base+4, lod.Flags)
			rec.PutF32(base+8, lod.Distance)
			rec.PutU32(base+12, uint32(len(lod.Instances)))
			rec.PutU32(base+16, e.instanceOffset(lod.Instances))
			copy(rec.Bytes()[base+20:base+int(e.l.LodSize)], lod.Reserved)
		}
		if !rec.PutCString(nameOff, e.l.ModelNameSize, m.Name) {
			return layoutErr("models[%d] name %q too long", i, m.Name)
		}
	}
	return nil
}

func (e *encoder) writeLodInstances(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.LodInstances.Offset)); err != nil {
		return err
	}
	for i := range e.p.LodInstances {
		li := &e.p.LodInstances[i]
		rec := w.Record(int(e.l.LodInstanceSize))
		rec.PutF32s(0, li.Transform[:])
		if li.UseTransform {
			rec.PutU8(64, 1)
		}
		rec.PutU8(65, li.Flags)
		rec.PutU32(66, li.Handle)
		rec.PutU32(70, uint32(len(li.SubModels)))
		rec.PutU32(74, e.subModelOffset(li.SubModels))
		if e.l.LodInstanceSize > 0x4E {
			copy(rec.Bytes()[0x4E:], li.Reserved)
		}
	}
	return nil
}

func (e *encoder) writeSubModels(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.SubModels.Offset)); err != nil {
		return err
	}
	for i := range e.p.SubModels {
		s := &e.p.SubModels[i]
		rec := w.Record(int(e.subModelSize))
		if e.p.XboxSubModels {
			putNarrowSubModel(rec, s)
			continue
		}
		rec.PutU32(0, uint32(s.Topology))
		rec.PutU32(4, s.VertexBase)
		rec.PutU32(8, s.VertexOffset)
		rec.PutU32(12, s.VertexCount)
		rec.PutU32(16, s.IndexOffset)
		rec.PutU32(20, s.IndexCount)
		rec.PutU32(24, uint32(s.Material))
		if s.VertexDecl >= 0 {
			rec.PutU32(28, e.h.VertexDecls.Offset+uint32(int64(s.VertexDecl)*e.l.VertexDeclSize))
		}
		rec.PutF32s(32, s.Bounds[:])
		copy(rec.Bytes()[48:], s.Reserved)
	}
	return nil
}

func putNarrowSubModel(rec binio.Record, s *SubModel) {
	rec.PutU8(0, uint8(s.Topology))
	rec.PutU16(2, uint16(s.VertexCount))
	rec.PutU32(4, s.VertexBase)
	rec.PutU32(8, s.VertexOffset)
	rec.PutU32(12, s.IndexOffset)
	rec.PutU32(16, s.IndexCount)
	rec.PutU32(20, uint32(s.Material))
}

func (e *encoder) writeVertexDecls(w *binio.Writer) error {
	if err := w.PadTo(int64(e.h.VertexDecls.Offset)); err != nil {
		return err
	}
	for i := range e.p.VertexDecls {
		v := &e.p.VertexDecls[i]
		rec := w.Record(int(e.l.VertexDeclSize))
		rec.PutU32(0, v.Stride)
		rec.PutU32(4, v.Elements)
		copy(rec.Bytes()[8:], v.Reserved)
	}
	return nil
}
