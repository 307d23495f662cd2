package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
)

// samplePackage builds two models over three lod instances and n >= 2
// submodels. Narrow packages get no vertex declarations or bounds.
func samplePackage(f format.Format, n int, narrow bool) *Package {
	p := &Package{
		Format:        f,
		Flags:         0x10,
		UID:           0xABCD,
		XboxSubModels: narrow,
		Models: []Model{
			{
				UID:       1,
				Name:      "car_body",
				Scale:     mgl32.Vec3{1, 2, 1},
				Transform: mgl32.Translate3D(1, 2, 3),
				Pivot:     mgl32.Ident4(),
				Lods: []Lod{
					{Mask: 0x01, Flags: 1, Distance: 50, Instances: []int{0}},
					{Mask: 0x04, Distance: 200, Instances: []int{1, 2}},
				},
			},
			{
				UID:       2,
				Name:      "wheel",
				Scale:     mgl32.Vec3{1, 1, 1},
				Transform: mgl32.Ident4(),
				Pivot:     mgl32.Translate3D(0, -1, 0),
				Lods:      []Lod{{Mask: 0x20, Distance: 1000}},
			},
		},
		LodInstances: []LodInstance{
			{Transform: mgl32.HomogRotate3DY(0.5), UseTransform: true, Flags: 2, Handle: 7},
			{Transform: mgl32.Ident4(), Handle: 8},
			{Transform: mgl32.Ident4(), Handle: 9},
		},
		VertexBuffer: bytes.Repeat([]byte{0xAB}, 256),
		IndexBuffer:  make([]byte, n*6*2),
		Materials: &material.Package{
			Format:    format.Format{Version: 6, Platform: f.Platform},
			Materials: []material.Material{{Handle: 0}, {Handle: 1, Type: material.TypeAnimated, AnimSpeed: 2}},
		},
	}

	for i := range n {
		s := SubModel{
			Topology:     TopologyTriangleList,
			VertexBase:   uint32(i * 10),
			VertexOffset: uint32(i),
			VertexCount:  4,
			IndexOffset:  uint32(i * 6),
			IndexCount:   6,
			Material:     material.PackHandle(uint16(i%2), material.UIDLocal),
			VertexDecl:   -1,
		}
		if !narrow {
			if i%2 == 0 {
				s.VertexDecl = 0
			}
			s.Bounds = mgl32.Vec4{float32(i), 0, 0, 1}
		}
		p.SubModels = append(p.SubModels, s)
	}
	p.LodInstances[0].SubModels = []int{0}
	for i := 1; i < n-1; i++ {
		p.LodInstances[0].SubModels = append(p.LodInstances[0].SubModels, i)
	}
	p.LodInstances[1].SubModels = []int{n - 1}

	if !narrow {
		p.VertexDecls = []VertexDecl{{Stride: 32, Elements: 3}}
	}
	return p
}

func roundTrip(t *testing.T, want *Package) *Package {
	t.Helper()
	b1, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p1, err := Decode(b1, Options{Platform: want.Format.Platform})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b2, err := Encode(p1)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Errorf("re-encoded container differs: %d vs %d bytes", len(b1), len(b2))
	}
	p2, err := Decode(b2, Options{Platform: want.Format.Platform})
	if err != nil {
		t.Fatalf("re-Decode: %v", err)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Errorf("decode(encode(decode(x))) != decode(x)")
	}
	return p1
}

func checkGraph(t *testing.T, want, got *Package) {
	t.Helper()
	if got.Format != want.Format || got.Flags != want.Flags || got.UID != want.UID {
		t.Errorf("header: got %s/%x/%x, want %s/%x/%x", got.Format, got.Flags, got.UID, want.Format, want.Flags, want.UID)
	}
	if got.XboxSubModels != want.XboxSubModels {
		t.Errorf("XboxSubModels: got %v, want %v", got.XboxSubModels, want.XboxSubModels)
	}

	if len(got.Models) != len(want.Models) {
		t.Fatalf("models: got %d, want %d", len(got.Models), len(want.Models))
	}
	for i := range want.Models {
		w, g := &want.Models[i], &got.Models[i]
		if g.UID != w.UID || g.Name != w.Name || g.Scale != w.Scale || g.Transform != w.Transform || g.Pivot != w.Pivot {
			t.Errorf("models[%d]: got %+v, want %+v", i, g, w)
		}
		if len(g.Lods) != len(w.Lods) {
			t.Fatalf("models[%d].lods: got %d, want %d", i, len(g.Lods), len(w.Lods))
		}
		for j := range w.Lods {
			wl, gl := &w.Lods[j], &g.Lods[j]
			if gl.Mask != wl.Mask || gl.Flags != wl.Flags || gl.Distance != wl.Distance || !slices.Equal(gl.Instances, wl.Instances) {
				t.Errorf("models[%d].lods[%d]: got %+v, want %+v", i, j, gl, wl)
			}
		}
	}

	if len(got.LodInstances) != len(want.LodInstances) {
		t.Fatalf("lod instances: got %d, want %d", len(got.LodInstances), len(want.LodInstances))
	}
	for i := range want.LodInstances {
		w, g := &want.LodInstances[i], &got.LodInstances[i]
		if g.Transform != w.Transform || g.UseTransform != w.UseTransform || g.Flags != w.Flags ||
			g.Handle != w.Handle || !slices.Equal(g.SubModels, w.SubModels) {
			t.Errorf("lodInstances[%d]: got %+v, want %+v", i, g, w)
		}
	}

	if len(got.SubModels) != len(want.SubModels) {
		t.Fatalf("submodels: got %d, want %d", len(got.SubModels), len(want.SubModels))
	}
	for i := range want.SubModels {
		w, g := &want.SubModels[i], &got.SubModels[i]
		if !g.sameDraw(w) || g.VertexDecl != w.VertexDecl || g.Bounds != w.Bounds {
			t.Errorf("subModels[%d]: got %+v, want %+v", i, g, w)
		}
	}

	if !bytes.Equal(got.VertexBuffer, want.VertexBuffer) || !bytes.Equal(got.IndexBuffer, want.IndexBuffer) {
		t.Error("geometry buffers differ")
	}
	if got.Materials == nil || len(got.Materials.Materials) != len(want.Materials.Materials) {
		t.Errorf("embedded materials: got %+v", got.Materials)
	}
}

func TestRoundTrip(t *testing.T) {
	formats := []format.Format{
		{Version: 1, Platform: format.PlatformPC},
		{Version: 6, Platform: format.PlatformPC},
		{Version: 9, Platform: format.PlatformPC},
		{Version: 1, Platform: format.PlatformXbox},
		{Version: 6, Platform: format.PlatformXbox},
		{Version: 9, Platform: format.PlatformXbox},
	}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			want := samplePackage(f, 6, false)
			got := roundTrip(t, want)
			checkGraph(t, want, got)
			if got.LayoutAmbiguous {
				t.Error("standard layout with six submodels flagged ambiguous")
			}
		})
	}
}

func TestXboxSubModels(t *testing.T) {
	xbox9 := format.Format{Version: 9, Platform: format.PlatformXbox}

	t.Run("Narrow", func(t *testing.T) {
		want := samplePackage(xbox9, 6, true)
		got := roundTrip(t, want)
		checkGraph(t, want, got)
		if got.LayoutAmbiguous {
			t.Error("narrow layout flagged ambiguous")
		}
	})

	t.Run("Detection", func(t *testing.T) {
		b, err := Encode(samplePackage(xbox9, 6, true))
		if err != nil {
			t.Fatal(err)
		}
		h, l, err := DecodeHeader(binio.NewReader(b, binary.LittleEndian), format.PlatformXbox)
		if err != nil {
			t.Fatal(err)
		}
		// 6 narrow records end 0x90 past the section; standard ones would need 0x150
		if got := h.VertexDecls.Offset - h.SubModels.Offset; got != 0x100 {
			t.Errorf("narrow section span: got 0x%x, want 0x100", got)
		}
		if size, narrow := subModelLayout(h, l); !narrow || size != 0x18 {
			t.Errorf("subModelLayout: got 0x%x/%v, want 0x18/true", size, narrow)
		}
	})

	t.Run("Ambiguous", func(t *testing.T) {
		// Two narrow records fit the same 128-byte slot as two standard
		// ones, so the standard layout wins and the package is flagged.
		b, err := Encode(samplePackage(xbox9, 2, false))
		if err != nil {
			t.Fatal(err)
		}
		narrow := samplePackage(xbox9, 2, true).SubModels
		// The first standard record reads this word as its vertex declaration.
		narrow[1].VertexBase = 0
		overwriteNarrow(t, b, narrow)

		got, err := Decode(b, Options{Platform: format.PlatformXbox})
		if err != nil {
			t.Fatal(err)
		}
		if got.XboxSubModels {
			t.Error("expected the standard layout to be chosen")
		}
		if !got.LayoutAmbiguous {
			t.Error("expected LayoutAmbiguous")
		}
	})

	t.Run("UndetectableCounts", func(t *testing.T) {
		for _, n := range []int{1, 2} {
			if _, err := Encode(samplePackage(xbox9, n, true)); !errors.Is(err, format.ErrLayout) {
				t.Errorf("%d submodels: got %v, want ErrLayout", n, err)
			}
		}
		for _, n := range []int{3, 4} {
			want := samplePackage(xbox9, n, true)
			got := roundTrip(t, want)
			if !got.XboxSubModels {
				t.Errorf("%d submodels: narrow layout not detected", n)
			}
		}
	})

	t.Run("OnlyVersion9", func(t *testing.T) {
		p := samplePackage(format.Format{Version: 1, Platform: format.PlatformXbox}, 6, true)
		if _, err := Encode(p); !errors.Is(err, format.ErrLayout) {
			t.Errorf("got %v, want ErrLayout", err)
		}
	})

	t.Run("NarrowRejectsBounds", func(t *testing.T) {
		p := samplePackage(xbox9, 6, true)
		p.SubModels[3].Bounds = mgl32.Vec4{0, 0, 0, 1}
		if _, err := Encode(p); !errors.Is(err, format.ErrLayout) {
			t.Errorf("got %v, want ErrLayout", err)
		}
	})
}

// overwriteNarrow replaces the submodel section of b with narrow records.
func overwriteNarrow(t *testing.T, b []byte, subs []SubModel) {
	t.Helper()
	h, l, err := DecodeHeader(binio.NewReader(b, binary.LittleEndian), format.PlatformXbox)
	if err != nil {
		t.Fatal(err)
	}
	w := binio.NewWriterSize(l.ByteOrder, len(subs)*int(l.XboxSubModelSize))
	for i := range subs {
		putNarrowSubModel(w.Record(int(l.XboxSubModelSize)), &subs[i])
	}
	section := b[h.SubModels.Offset:h.SubModels.End(l.SubModelSize)]
	clear(section)
	copy(section, w.Bytes())
}

func TestGenerateOffsets(t *testing.T) {
	l, err := format.Format{Version: 1, Platform: format.PlatformPC}.ModelLayout()
	if err != nil {
		t.Fatal(err)
	}
	h := &Header{}
	h.Models.Count = 2
	h.SubModels.Count = 5
	h.GenerateOffsets(l, l.SubModelSize)

	modelsOffset := binio.Align(l.HeaderSize, format.SectionAlign)
	instancesOffset := binio.Align(modelsOffset+2*l.ModelSize, format.SectionAlign)
	declsOffset := binio.Align(instancesOffset+5*l.SubModelSize, format.SectionAlign)

	checks := []struct {
		name      string
		got, want uint32
	}{
		{"Models", h.Models.Offset, 0x80},
		{"LodInstances", h.LodInstances.Offset, 0x380},
		{"SubModels", h.SubModels.Offset, 0x380},
		{"VertexDecls", h.VertexDecls.Offset, 0x500},
		{"Models formula", h.Models.Offset, uint32(modelsOffset)},
		{"LodInstances formula", h.LodInstances.Offset, uint32(instancesOffset)},
		{"VertexDecls formula", h.VertexDecls.Offset, uint32(declsOffset)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got 0x%x, want 0x%x", c.name, c.got, c.want)
		}
	}

	prev := uint32(0)
	for i, s := range h.sections() {
		if s.Offset < prev {
			t.Errorf("section %d: offset 0x%x before 0x%x", i, s.Offset, prev)
		}
		prev = s.Offset
	}
}

func TestDecodeErrors(t *testing.T) {
	pc9 := format.Format{Version: 9, Platform: format.PlatformPC}
	valid, err := Encode(samplePackage(pc9, 6, false))
	if err != nil {
		t.Fatal(err)
	}
	h, _, err := DecodeHeader(binio.NewReader(valid, binary.LittleEndian), format.PlatformPC)
	if err != nil {
		t.Fatal(err)
	}
	mutate := func(off uint32, v uint32) []byte {
		b := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(b[off:], v)
		return b
	}

	tests := []struct {
		name     string
		data     []byte
		platform format.Platform
		want     error
		field    string
	}{
		{"Empty", nil, format.PlatformPC, binio.ErrTruncatedInput, "header.version"},
		{"PS2", valid, format.PlatformPS2, format.ErrUnsupportedFormat, "header.version"},
		{"Version", mutate(0, 3), format.PlatformPC, format.ErrUnsupportedFormat, "header.version"},
		{"TruncatedHeader", valid[:0x30], format.PlatformPC, binio.ErrTruncatedInput, "header"},
		{"OversizedCount", mutate(0x08, 0xFFFFFFFF), format.PlatformPC, binio.ErrTruncatedInput, "header.models"},
		{"SectionPastEnd", mutate(0x24, 0x7FFFFFF0), format.PlatformPC, binio.ErrTruncatedInput, "header.vertexDecls"},
		{"DanglingSubModels", mutate(h.LodInstances.Offset+74, h.SubModels.Offset+4), format.PlatformPC,
			format.ErrDanglingReference, "lodInstances[0].subModels"},
		{"DanglingVertexDecl", mutate(h.SubModels.Offset+28, 0x9999), format.PlatformPC,
			format.ErrDanglingReference, "subModels[0].vertexDecl"},
		{"DanglingInstances", mutate(h.Models.Offset+148+16, 0x10), format.PlatformPC,
			format.ErrDanglingReference, "models[0].lods[0].instances"},
		{"TooManyLods", mutate(h.Models.Offset+144, 7), format.PlatformPC, nil, "models[0].lodCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, Options{Platform: tt.platform})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var de *format.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error %v is not a DecodeError", err)
			}
			if de.Field != tt.field {
				t.Errorf("Field: got %q, want %q", de.Field, tt.field)
			}
		})
	}

	t.Run("DecodeFromVersionMismatch", func(t *testing.T) {
		if _, err := DecodeFrom(valid, format.Format{Version: 6, Platform: format.PlatformPC}); !errors.Is(err, format.ErrUnsupportedFormat) {
			t.Errorf("got %v, want ErrUnsupportedFormat", err)
		}
	})
}

func TestValidate(t *testing.T) {
	pc6 := format.Format{Version: 6, Platform: format.PlatformPC}
	tests := []struct {
		name   string
		mutate func(p *Package)
	}{
		{"NonContiguousInstances", func(p *Package) { p.Models[0].Lods[1].Instances = []int{0, 2} }},
		{"InstanceOutOfRange", func(p *Package) { p.Models[1].Lods[0].Instances = []int{3} }},
		{"NonContiguousSubModels", func(p *Package) { p.LodInstances[0].SubModels = []int{1, 0} }},
		{"TooManyLods", func(p *Package) { p.Models[1].Lods = make([]Lod, 7) }},
		{"LongName", func(p *Package) { p.Models[0].Name = string(bytes.Repeat([]byte("n"), 52)) }},
		{"VertexDecl", func(p *Package) { p.SubModels[1].VertexDecl = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePackage(pc6, 6, false)
			tt.mutate(p)
			if _, err := Encode(p); !errors.Is(err, format.ErrLayout) {
				t.Errorf("got %v, want ErrLayout", err)
			}
		})
	}

	t.Run("LongestName", func(t *testing.T) {
		p := samplePackage(pc6, 6, false)
		p.Models[0].Name = string(bytes.Repeat([]byte("n"), 51))
		got := roundTrip(t, p)
		if got.Models[0].Name != p.Models[0].Name {
			t.Errorf("name: got %q", got.Models[0].Name)
		}
	})
}

func TestLodSlots(t *testing.T) {
	for slot := range format.MaxLods {
		got, ok := SlotForMask(MaskForSlot(slot))
		if !ok || got != slot {
			t.Errorf("slot %d: got %d/%v", slot, got, ok)
		}
	}
	for _, mask := range []uint32{0, 0x03, 0x40, 0x80000000} {
		if _, ok := SlotForMask(mask); ok {
			t.Errorf("mask 0x%x: expected no slot", mask)
		}
	}

	m := &samplePackage(format.Format{Version: 1, Platform: format.PlatformPC}, 3, false).Models[0]
	if lod, ok := m.Lod(2); !ok || lod.Distance != 200 {
		t.Errorf("Lod(2): got %+v/%v", lod, ok)
	}
	if _, ok := m.Lod(1); ok {
		t.Error("Lod(1): expected no lod")
	}
}

func TestTransforms(t *testing.T) {
	m := &Model{Scale: mgl32.Vec3{2, 2, 2}, Transform: mgl32.Translate3D(1, 0, 0)}
	p := m.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{3, 0, 0, 1}) {
		t.Errorf("Matrix: got %v, want [3 0 0 1]", p)
	}

	li := &LodInstance{Transform: mgl32.Translate3D(0, 1, 0), UseTransform: true}
	p = li.World(m).Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{3, 2, 0, 1}) {
		t.Errorf("World: got %v, want [3 2 0 1]", p)
	}

	li.UseTransform = false
	if li.World(m) != m.Matrix() {
		t.Error("World without UseTransform should equal the model matrix")
	}
}

func TestBounds(t *testing.T) {
	p := &Package{SubModels: []SubModel{
		{Bounds: mgl32.Vec4{0, 0, 0, 1}},
		{Bounds: mgl32.Vec4{4, 0, 0, 1}},
		{Bounds: mgl32.Vec4{2, 0, 0, 0.5}},
		{},
	}}
	if got := p.Bounds(); !got.ApproxEqual(mgl32.Vec4{2, 0, 0, 3}) {
		t.Errorf("Bounds: got %v, want [2 0 0 3]", got)
	}
}

func TestResolveMaterial(t *testing.T) {
	p := roundTrip(t, samplePackage(format.Format{Version: 6, Platform: format.PlatformPC}, 3, false))

	res := p.ResolveMaterial(1, nil)
	if !res.OK() || res.Material().Handle != 1 || res.Material().AnimSpeed != 2 {
		t.Errorf("submodel 1: got %s", res.Status)
	}

	p.SubModels[0].Material = material.PackHandle(5, 0x0300)
	reg := material.NewRegistry()
	if res := p.ResolveMaterial(0, reg); res.Status != material.StatusMissingPackage {
		t.Errorf("unregistered package: got %s", res.Status)
	}
	if err := reg.Add(0x0300, &material.Package{Materials: []material.Material{{Handle: 5}}}); err != nil {
		t.Fatal(err)
	}
	if res := p.ResolveMaterial(0, reg); !res.OK() {
		t.Errorf("registered package: got %s", res.Status)
	}

	p.Materials = nil
	p.SubModels[1].Material = material.PackHandle(1, material.UIDLocal)
	if res := p.ResolveMaterial(1, reg); res.Status != material.StatusLocalWithoutContext {
		t.Errorf("no embedded package: got %s", res.Status)
	}
}
