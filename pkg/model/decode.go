package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
	"github.com/heisthecat31/racepack/pkg/ref"
)

// Options configures Decode.
type Options struct {
	// Platform the package was built for. Defaults to PC.
	Platform format.Platform
}

type decoder struct {
	r   *binio.Reader
	h   *Header
	l   *format.ModelLayout
	pkg *Package

	subModelSize int64

	instanceTable *ref.Table
	subModelTable *ref.Table
	declTable     *ref.Table
}

// Decode parses a complete model package.
func Decode(data []byte, opts Options) (*Package, error) {
	r := binio.NewReader(data, binary.LittleEndian)
	h, l, err := DecodeHeader(r, opts.Platform)
	if err != nil {
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
			Format:   format.Format{Version: h.Version, Platform: opts.Platform},
			Flags:    h.Flags,
			UID:      h.UID,
			Reserved: h.Reserved,
		},
	}
	d.subModelSize, d.pkg.XboxSubModels = subModelLayout(h, l)
	if err := h.checkSections(l, d.subModelSize, len(data)); err != nil {
		return nil, err
	}

	d.instanceTable = ref.Strided("lodInstance", h.LodInstances.Offset, uint32(l.LodInstanceSize), int(h.LodInstances.Count))
	d.subModelTable = ref.Strided("subModel", h.SubModels.Offset, uint32(d.subModelSize), int(h.SubModels.Count))
	d.declTable = ref.Strided("vertexDecl", h.VertexDecls.Offset, uint32(l.VertexDeclSize), int(h.VertexDecls.Count))

	steps := []func() error{
		d.readBuffers,
		d.readVertexDecls,
		d.readSubModels,
		d.checkAmbiguity,
		d.readLodInstances,
		d.readModels,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return d.pkg, nil
}

// DecodeFrom is Decode for callers holding a Format.
func DecodeFrom(data []byte, f format.Format) (*Package, error) {
	p, err := Decode(data, Options{Platform: f.Platform})
	if err != nil {
		return nil, err
	}
	if p.Format.Version != f.Version {
		return nil, format.Errorf(0, fmt.Errorf("%w: got version %d, want %d", format.ErrUnsupportedFormat, p.Format.Version, f.Version), "header.version")
	}
	return p, nil
}

func (d *decoder) section(name string, s material.Section) ([]byte, error) {
	if s.Count == 0 {
		return nil, nil
	}
	if err := d.r.SeekAbsolute(int64(s.Offset)); err != nil {
		return nil, format.Errorf(int64(s.Offset), err, "%s", name)
	}
	b, err := d.r.ReadBytes(int64(s.Count))
	if err != nil {
		return nil, format.Errorf(int64(s.Offset), err, "%s", name)
	}
	return b, nil
}

func (d *decoder) readBuffers() error {
	vb, err := d.section("vertexBuffer", d.h.VertexBuffer)
	if err != nil {
		return err
	}
	ib, err := d.section("indexBuffer", d.h.IndexBuffer)
	if err != nil {
		return err
	}
	mp, err := d.section("materials", d.h.Materials)
	if err != nil {
		return err
	}
	d.pkg.VertexBuffer = bytes.Clone(vb)
	d.pkg.IndexBuffer = bytes.Clone(ib)

	if mp != nil {
		mats, err := material.Decode(mp)
		if err != nil {
			return fmt.Errorf("embedded material package at 0x%x: %w", d.h.Materials.Offset, err)
		}
		d.pkg.Materials = mats
	}
	return nil
}

func (d *decoder) entries(name string, s material.Section, size int64, fn func(i int, rec binio.Record, at int64) error) error {
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

func (d *decoder) readVertexDecls() error {
	d.pkg.VertexDecls = make([]VertexDecl, d.h.VertexDecls.Count)
	return d.entries("vertexDecls", d.h.VertexDecls, d.l.VertexDeclSize, func(i int, rec binio.Record, _ int64) error {
		v := &d.pkg.VertexDecls[i]
		v.Stride = rec.U32(0)
		v.Elements = rec.U32(4)
		v.Reserved = bytes.Clone(rec.Bytes()[8:])
		return nil
	})
}

func decodeNarrowSubModel(rec binio.Record) SubModel {
	return SubModel{
		Topology:     Topology(rec.U8(0)),
		VertexCount:  uint32(rec.U16(2)),
		VertexBase:   rec.U32(4),
		VertexOffset: rec.U32(8),
		IndexOffset:  rec.U32(12),
		IndexCount:   rec.U32(16),
		Material:     material.MaterialHandle(rec.U32(20)),
		VertexDecl:   -1,
	}
}

func (d *decoder) readSubModels() error {
	d.pkg.SubModels = make([]SubModel, d.h.SubModels.Count)
	return d.entries("subModels", d.h.SubModels, d.subModelSize, func(i int, rec binio.Record, at int64) error {
		if d.pkg.XboxSubModels {
			d.pkg.SubModels[i] = decodeNarrowSubModel(rec)
			return nil
		}

		s := &d.pkg.SubModels[i]
		s.Topology = Topology(rec.U32(0))
		s.VertexBase = rec.U32(4)
		s.VertexOffset = rec.U32(8)
		s.VertexCount = rec.U32(12)
		s.IndexOffset = rec.U32(16)
		s.IndexCount = rec.U32(20)
		s.Material = material.MaterialHandle(rec.U32(24))
		rec.F32s(32, s.Bounds[:])
		s.Reserved = bytes.Clone(rec.Bytes()[48:])

		s.VertexDecl = -1
		if off := rec.U32(28); off != 0 {
			idx, err := d.declTable.Resolve(off)
			if err != nil {
				return format.Errorf(at+28, err, "subModels[%d].vertexDecl", i)
			}
			s.VertexDecl = idx
		}
		return nil
	})
}

// plausible reports whether s could be a real narrow submodel record.
func (d *decoder) plausible(s *SubModel) bool {
	indices := uint64(len(d.pkg.IndexBuffer) / 2)
	return s.Topology.Valid() && uint64(s.IndexOffset)+uint64(s.IndexCount) <= indices
}

// checkAmbiguity flags packages whose submodels also decode as plausible,
// different narrow records.
func (d *decoder) checkAmbiguity() error {
	if d.pkg.XboxSubModels || !narrowAlsoFits(d.h, d.l) {
		return nil
	}
	if err := d.r.SeekAbsolute(int64(d.h.SubModels.Offset)); err != nil {
		return nil
	}
	differs := false
	for i := range d.pkg.SubModels {
		rec, err := d.r.ReadRecord(d.l.XboxSubModelSize)
		if err != nil {
			return nil
		}
		alt := decodeNarrowSubModel(rec)
		if !d.plausible(&alt) {
			return nil
		}
		if !alt.sameDraw(&d.pkg.SubModels[i]) {
			differs = true
		}
	}
	d.pkg.LayoutAmbiguous = differs
	return nil
}

func (d *decoder) readLodInstances() error {
	d.pkg.LodInstances = make([]LodInstance, d.h.LodInstances.Count)
	return d.entries("lodInstances", d.h.LodInstances, d.l.LodInstanceSize, func(i int, rec binio.Record, at int64) error {
		li := &d.pkg.LodInstances[i]
		rec.F32s(0, li.Transform[:])
		li.UseTransform = rec.U8(64) != 0
		li.Flags = rec.U8(65)
		li.Handle = rec.U32(66)
		if d.l.LodInstanceSize > 0x4E {
			li.Reserved = bytes.Clone(rec.Bytes()[0x4E:])
		}

		run, err := d.subModelTable.ResolveRun(rec.U32(74), int(rec.U32(70)))
		if err != nil {
			return format.Errorf(at+74, err, "lodInstances[%d].subModels", i)
		}
		li.SubModels = run
		return nil
	})
}

const (
	modelLodCount = 144
	modelLods     = 148
)

func (d *decoder) readModels() error {
	d.pkg.Models = make([]Model, d.h.Models.Count)
	nameOff := modelLods + format.MaxLods*int(d.l.LodSize)
	return d.entries("models", d.h.Models, d.l.ModelSize, func(i int, rec binio.Record, at int64) error {
		m := &d.pkg.Models[i]
		m.UID = rec.U32(0)
		rec.F32s(4, m.Scale[:])
		rec.F32s(16, m.Transform[:])
		rec.F32s(80, m.Pivot[:])
		m.Name = rec.CString(nameOff, d.l.ModelNameSize)

		count := int(rec.U32(modelLodCount))
		if count > format.MaxLods {
			return format.Errorf(at+modelLodCount, fmt.Errorf("%d lods exceed %d slots", count, format.MaxLods), "models[%d].lodCount", i)
		}
		m.Lods = make([]Lod, count)
		for j := range m.Lods {
			base := modelLods + j*int(d.l.LodSize)
			lod := &m.Lods[j]
			lod.Mask = rec.U32(base)
			lod.Flags = rec.U32(base + 4)
			lod.Distance = rec.F32(base + 8)
			lod.Reserved = bytes.Clone(rec.Bytes()[base+20 : base+int(d.l.LodSize)])

			run, err := d.instanceTable.ResolveRun(rec.U32(base+16), int(rec.U32(base+12)))
			if err != nil {
				return format.Errorf(at+int64(base+16), err, "models[%d].lods[%d].instances", i, j)
			}
			lod.Instances = run
		}
		return nil
	})
}
