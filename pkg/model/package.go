// Package model implements the model package container: models with up to
// six levels of detail, the instances each level places, and the submodels
// (draw calls) those instances are built from.
//
// Geometry buffers are kept as raw bytes; submodels address them by
// vertex/index ranges. Every model package may embed a material package
// holding the materials its submodels reference by handle.
package model

import (
	"fmt"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
)

// Topology is the primitive type of a submodel.
type Topology uint32

const (
	TopologyPointList     Topology = 1
	TopologyLineList      Topology = 2
	TopologyLineStrip     Topology = 3
	TopologyTriangleList  Topology = 4
	TopologyTriangleStrip Topology = 5
	TopologyTriangleFan   Topology = 6
)

// Valid reports whether t is a known primitive type.
func (t Topology) Valid() bool {
	return t >= TopologyPointList && t <= TopologyTriangleFan
}

func (t Topology) String() string {
	switch t {
	case TopologyPointList:
		return "PointList"
	case TopologyLineList:
		return "LineList"
	case TopologyLineStrip:
		return "LineStrip"
	case TopologyTriangleList:
		return "TriangleList"
	case TopologyTriangleStrip:
		return "TriangleStrip"
	case TopologyTriangleFan:
		return "TriangleFan"
	}
	return fmt.Sprintf("Topology(%d)", uint32(t))
}

// Lod is one level of detail of a model.
type Lod struct {
	// Mask is the engine slot constant, one bit per slot (0x01..0x20).
	Mask     uint32
	Flags    uint32
	Distance float32

	// Instances indexes Package.LodInstances and must be a contiguous run.
	Instances []int

	Reserved []byte
}

// Slot returns the slot index (0-5) encoded by the mask.
func (l *Lod) Slot() (int, bool) {
	return SlotForMask(l.Mask)
}

// SlotForMask maps a single-bit lod mask to its slot index.
func SlotForMask(mask uint32) (int, bool) {
	if mask == 0 || mask&(mask-1) != 0 {
		return 0, false
	}
	slot := bits.TrailingZeros32(mask)
	if slot >= format.MaxLods {
		return 0, false
	}
	return slot, true
}

// MaskForSlot is the inverse of SlotForMask.
func MaskForSlot(slot int) uint32 {
	return 1 << uint(slot)
}

// Model is a named, transformed mesh hierarchy.
type Model struct {
	UID       uint32
	Name      string
	Scale     mgl32.Vec3
	Transform mgl32.Mat4
	Pivot     mgl32.Mat4
	Lods      []Lod
}

// Matrix returns the model transform with its scale applied first.
func (m *Model) Matrix() mgl32.Mat4 {
	return m.Transform.Mul4(mgl32.Scale3D(m.Scale.X(), m.Scale.Y(), m.Scale.Z()))
}

// Lod returns the level of detail stored for slot, if any.
func (m *Model) Lod(slot int) (*Lod, bool) {
	for i := range m.Lods {
		if s, ok := m.Lods[i].Slot(); ok && s == slot {
			return &m.Lods[i], true
		}
	}
	return nil, false
}

// LodInstance places a set of submodels.
type LodInstance struct {
	Transform    mgl32.Mat4
	UseTransform bool
	Flags        uint8
	Handle       uint32

	// SubModels indexes Package.SubModels and must be a contiguous run.
	SubModels []int

	Reserved []byte
}

// World returns the instance transform composed with the model matrix.
func (li *LodInstance) World(m *Model) mgl32.Mat4 {
	world := m.Matrix()
	if li.UseTransform {
		world = world.Mul4(li.Transform)
	}
	return world
}

// SubModel is one draw call.
type SubModel struct {
	Topology     Topology
	VertexBase   uint32
	VertexOffset uint32
	VertexCount  uint32
	IndexOffset  uint32
	IndexCount   uint32
	Material     material.MaterialHandle

	// VertexDecl indexes Package.VertexDecls, -1 for none.
	VertexDecl int
	// Bounds is a bounding sphere: center xyz, radius w.
	Bounds mgl32.Vec4

	Reserved []byte
}

// sameDraw reports whether two submodels describe the same draw call.
func (s *SubModel) sameDraw(o *SubModel) bool {
	return s.Topology == o.Topology &&
		s.VertexBase == o.VertexBase && s.VertexOffset == o.VertexOffset && s.VertexCount == o.VertexCount &&
		s.IndexOffset == o.IndexOffset && s.IndexCount == o.IndexCount && s.Material == o.Material
}

// VertexDecl describes the vertex layout of the submodels using it.
type VertexDecl struct {
	Stride   uint32
	Elements uint32
	Reserved []byte
}

// Package is a decoded model package.
type Package struct {
	Format   format.Format
	Flags    uint32
	UID      uint32
	Reserved uint32 // v6

	Models       []Model
	LodInstances []LodInstance
	SubModels    []SubModel
	VertexDecls  []VertexDecl
	VertexBuffer []byte
	IndexBuffer  []byte

	// Materials is the embedded material package, nil when absent.
	Materials *material.Package

	// XboxSubModels selects the narrow submodel records (version 9).
	XboxSubModels bool
	// LayoutAmbiguous is set by Decode when the narrow submodel layout
	// would also have parsed but produced different submodels.
	LayoutAmbiguous bool
}

// ResolveMaterial resolves the material handle of submodel i against the
// embedded material package and lookup.
func (p *Package) ResolveMaterial(i int, lookup material.PackageLookup) material.Resolution {
	return material.ResolveHandle(p.SubModels[i].Material, p.Materials, lookup)
}

// Bounds returns a sphere enclosing the bounds of every submodel, in model
// space.
func (p *Package) Bounds() mgl32.Vec4 {
	var out mgl32.Vec4
	first := true
	for i := range p.SubModels {
		b := p.SubModels[i].Bounds
		if b.W() <= 0 {
			continue
		}
		if first {
			out, first = b, false
			continue
		}
		out = mergeSpheres(out, b)
	}
	return out
}

func mergeSpheres(a, b mgl32.Vec4) mgl32.Vec4 {
	ca, cb := a.Vec3(), b.Vec3()
	d := cb.Sub(ca).Len()
	switch {
	case d+b.W() <= a.W():
		return a
	case d+a.W() <= b.W():
		return b
	}
	r := (d + a.W() + b.W()) / 2
	center := ca.Add(cb.Sub(ca).Mul((r - a.W()) / d))
	return center.Vec4(r)
}
