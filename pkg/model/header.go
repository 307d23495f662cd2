package model

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
)

// Header is the model package header. Buffer sections store a byte size in
// Count.
type Header struct {
	Version uint32
	Flags   uint32

	Models       material.Section
	LodInstances material.Section
	SubModels    material.Section
	VertexDecls  material.Section
	VertexBuffer material.Section
	IndexBuffer  material.Section
	Materials    material.Section

	UID      uint32
	Reserved uint32 // v6
}

// sections returns the header sections in file order.
func (h *Header) sections() []*material.Section {
	return []*material.Section{
		&h.Models, &h.LodInstances, &h.SubModels, &h.VertexDecls,
		&h.VertexBuffer, &h.IndexBuffer, &h.Materials,
	}
}

var sectionNames = []string{
	"models", "lodInstances", "subModels", "vertexDecls",
	"vertexBuffer", "indexBuffer", "materials",
}

// checkSections rejects counts that run past the end of the container.
func (h *Header) checkSections(l *format.ModelLayout, subModelSize int64, n int) error {
	sizes := sectionSizes(l, subModelSize)
	for i, s := range h.sections() {
		if !s.Fits(sizes[i], n) {
			return format.Errorf(0, fmt.Errorf("%w: %d entries at 0x%x exceed container of 0x%x bytes",
				binio.ErrTruncatedInput, s.Count, s.Offset, n), "header.%s", sectionNames[i])
		}
	}
	return nil
}

func sectionSizes(l *format.ModelLayout, subModelSize int64) []int64 {
	return []int64{l.ModelSize, l.LodInstanceSize, subModelSize, l.VertexDeclSize, 1, 1, 1}
}

// GenerateOffsets lays out every section from the current counts at
// 128-byte alignment and returns the end of the container. subModelSize
// selects the standard or narrow submodel records.
func (h *Header) GenerateOffsets(l *format.ModelLayout, subModelSize int64) int64 {
	secs := h.sections()
	sizes := sectionSizes(l, subModelSize)
	lengths := make([]int64, len(secs))
	for i, s := range secs {
		lengths[i] = int64(s.Count) * sizes[i]
	}
	offsets, _ := format.Place(l.HeaderSize, lengths, format.SectionAlign)
	for i, s := range secs {
		s.Offset = uint32(offsets[i])
	}
	last := secs[len(secs)-1]
	return int64(last.Offset) + int64(last.Count)
}

// DecodeHeader reads the header of a model package built for platform.
// Model packages carry no magic, so the platform cannot be detected.
func DecodeHeader(r *binio.Reader, platform format.Platform) (*Header, *format.ModelLayout, error) {
	if err := r.SeekAbsolute(0); err != nil {
		return nil, nil, err
	}
	version, err := r.ReadU32()
	if err != nil {
		return nil, nil, format.Errorf(0, err, "header.version")
	}
	l, err := format.Format{Version: version, Platform: platform}.ModelLayout()
	if err != nil {
		return nil, nil, format.Errorf(0, err, "header.version")
	}

	if err := r.SeekAbsolute(0); err != nil {
		return nil, nil, err
	}
	rec, err := r.ReadRecord(l.HeaderSize)
	if err != nil {
		return nil, nil, format.Errorf(0, err, "header")
	}

	h := &Header{Version: version, Flags: rec.U32(4)}
	for i, s := range h.sections() {
		off := 0x08 + i*8
		s.Count = rec.U32(off)
		s.Offset = rec.U32(off + 4)
	}
	h.UID = rec.U32(0x40)
	if l.HeaderSize >= 0x48 {
		h.Reserved = rec.U32(0x44)
	}
	return h, l, nil
}

// EncodeTo appends the header to w.
func (h *Header) EncodeTo(w *binio.Writer, l *format.ModelLayout) {
	rec := w.Record(int(l.HeaderSize))
	rec.PutU32(0, h.Version)
	rec.PutU32(4, h.Flags)
	for i, s := range h.sections() {
		off := 0x08 + i*8
		rec.PutU32(off, s.Count)
		rec.PutU32(off+4, s.Offset)
	}
	rec.PutU32(0x40, h.UID)
	if l.HeaderSize >= 0x48 {
		rec.PutU32(0x44, h.Reserved)
	}
}

// subModelLayout applies the narrow submodel detection of version 9: when
// the stored vertex declaration offset comes before the aligned end of
// standard-size submodels, the records must be narrow.
func subModelLayout(h *Header, l *format.ModelLayout) (size int64, narrow bool) {
	if !l.XboxSizeHack {
		return l.SubModelSize, false
	}
	expected := binio.Align(h.SubModels.End(l.SubModelSize), format.SectionAlign)
	if int64(h.VertexDecls.Offset) < expected {
		return l.XboxSubModelSize, true
	}
	return l.SubModelSize, false
}

// narrowAlsoFits reports whether narrow submodel records would place the
// vertex declarations at the stored offset as well.
func narrowAlsoFits(h *Header, l *format.ModelLayout) bool {
	if !l.XboxSizeHack || h.SubModels.Count == 0 {
		return false
	}
	return binio.Align(h.SubModels.End(l.XboxSubModelSize), format.SectionAlign) == int64(h.VertexDecls.Offset)
}
