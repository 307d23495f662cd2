package material

import (
	"encoding/binary"
	"fmt"

	"github.com/heisthecat31/racepack/pkg/binio"
	"github.com/heisthecat31/racepack/pkg/format"
)

// Section is a (count, offset) pair of the header.
type Section struct {
	Count  uint32
	Offset uint32
}

// End returns the first byte after count entries of size bytes.
func (s Section) End(size int64) int64 {
	return int64(s.Offset) + int64(s.Count)*size
}

// Header is the material package header. PS2 headers store counts only;
// their offsets are filled in by GenerateOffsets.
type Header struct {
	Magic  uint32
	Format format.Format

	Materials  Section
	Substances Section
	Textures   Section
	Palettes   Section
	References Section

	// DataSize and DataOffset locate the texture blob.
	DataSize   uint32
	DataOffset uint32

	// Version 9 sub-header.
	UID         uint32
	Flags       uint32
	SubReserved [8]byte
}

// sections returns the header sections in file order.
func (h *Header) sections() []*Section {
	return []*Section{&h.Materials, &h.Substances, &h.Textures, &h.Palettes, &h.References}
}

var sectionNames = []string{"materials", "substances", "textures", "palettes", "references"}

// Fits reports whether count entries of size bytes lie inside a container
// of n bytes. Empty sections always fit.
func (s Section) Fits(size int64, n int) bool {
	return s.Count == 0 || s.End(size) <= int64(n)
}

// checkSections rejects counts that run past the end of the container
// before any table is sized from them.
func (h *Header) checkSections(l *format.MaterialLayout, n int) error {
	sizes := sectionSizes(l)
	for i, s := range h.sections() {
		if !s.Fits(sizes[i], n) {
			return format.Errorf(0, fmt.Errorf("%w: %d entries at 0x%x exceed container of 0x%x bytes",
				binio.ErrTruncatedInput, s.Count, s.Offset, n), "header.%s", sectionNames[i])
		}
	}
	return nil
}

func sectionSizes(l *format.MaterialLayout) []int64 {
	return []int64{l.MaterialSize, l.SubstanceSize, l.TextureSize, l.PaletteSize, l.ReferenceSize}
}

// GenerateOffsets lays out every section from the current counts: each
// section starts 128-byte aligned after its predecessor and the texture blob
// starts at the platform data alignment. It returns the blob offset.
func (h *Header) GenerateOffsets(l *format.MaterialLayout) uint32 {
	secs := h.sections()
	sizes := sectionSizes(l)
	lengths := make([]int64, len(secs))
	for i, s := range secs {
		lengths[i] = int64(s.Count) * sizes[i]
	}
	offsets, end := format.Place(l.HeaderSize, lengths, format.SectionAlign)
	for i, s := range secs {
		s.Offset = uint32(offsets[i])
	}
	h.DataOffset = uint32(binio.Align(end, l.DataAlign))
	return h.DataOffset
}

// DecodeHeader reads the header at the start of r and returns it with the
// layout of its format.
func DecodeHeader(r *binio.Reader) (*Header, *format.MaterialLayout, error) {
	if err := r.SeekAbsolute(0); err != nil {
		return nil, nil, err
	}
	magic, err := r.ReadU32()
	if err != nil {
		return nil, nil, format.Errorf(0, err, "header.magic")
	}
	platform, err := format.PlatformForMagic(magic)
	if err != nil {
		return nil, nil, format.Errorf(0, err, "header.magic")
	}

	h := &Header{Magic: magic, Format: format.Format{Platform: platform}}
	if platform == format.PlatformPS2 {
		return decodePS2Header(r, h)
	}

	if h.Format.Version, err = r.ReadU32(); err != nil {
		return nil, nil, format.Errorf(4, err, "header.version")
	}
	l, err := h.Format.MaterialLayout()
	if err != nil {
		return nil, nil, format.Errorf(4, err, "header.version")
	}

	rec, err := readHeaderRecord(r, l)
	if err != nil {
		return nil, nil, err
	}
	h.Materials = readSection(rec, 0x08)
	h.Substances = readSection(rec, 0x10)
	h.Textures = readSection(rec, 0x18)
	if l.Palettes {
		h.Palettes = readSection(rec, 0x20)
		h.References = readSection(rec, 0x28)
	} else {
		h.References = readSection(rec, 0x20)
	}
	if l.DataSection {
		h.DataSize = rec.U32(0x30)
		h.DataOffset = rec.U32(0x34)
	}
	if l.SubHeader {
		h.UID = rec.U32(0x38)
		h.Flags = rec.U32(0x3C)
		copy(h.SubReserved[:], rec.Bytes()[0x40:0x48])
	}
	return h, l, nil
}

func decodePS2Header(r *binio.Reader, h *Header) (*Header, *format.MaterialLayout, error) {
	v, err := r.ReadU16()
	if err != nil {
		return nil, nil, format.Errorf(4, err, "header.version")
	}
	h.Format.Version = uint32(v)
	l, err := h.Format.MaterialLayout()
	if err != nil {
		return nil, nil, format.Errorf(4, err, "header.version")
	}

	rec, err := readHeaderRecord(r, l)
	if err != nil {
		return nil, nil, err
	}
	for i, s := range h.sections() {
		s.Count = uint32(rec.U16(0x06 + i*2))
	}
	h.DataSize = rec.U32(0x10)
	h.GenerateOffsets(l)
	return h, l, nil
}

func readHeaderRecord(r *binio.Reader, l *format.MaterialLayout) (binio.Record, error) {
	if err := r.SeekAbsolute(0); err != nil {
		return binio.Record{}, err
	}
	rec, err := r.ReadRecord(l.HeaderSize)
	if err != nil {
		return binio.Record{}, format.Errorf(0, err, "header")
	}
	return rec, nil
}

func readSection(rec binio.Record, off int) Section {
	return Section{Count: rec.U32(off), Offset: rec.U32(off + 4)}
}

func putSection(rec binio.Record, off int, s Section) {
	rec.PutU32(off, s.Count)
	rec.PutU32(off+4, s.Offset)
}

// EncodeTo appends the header to w, which must be empty.
func (h *Header) EncodeTo(w *binio.Writer, l *format.MaterialLayout) error {
	if w.Pos() != 0 {
		return fmt.Errorf("header must start the container, writer at 0x%x", w.Pos())
	}
	rec := w.Record(int(l.HeaderSize))
	rec.PutU32(0, h.Magic)

	if l.Generated {
		rec.PutU16(4, uint16(h.Format.Version))
		for i, s := range h.sections() {
			if s.Count > 0xFFFF {
				return fmt.Errorf("%w: %d entries in section %d exceed a 16-bit count", format.ErrLayout, s.Count, i)
			}
			rec.PutU16(0x06+i*2, uint16(s.Count))
		}
		rec.PutU32(0x10, h.DataSize)
		return nil
	}

	rec.PutU32(4, h.Format.Version)
	putSection(rec, 0x08, h.Materials)
	putSection(rec, 0x10, h.Substances)
	putSection(rec, 0x18, h.Textures)
	if l.Palettes {
		putSection(rec, 0x20, h.Palettes)
		putSection(rec, 0x28, h.References)
	} else {
		putSection(rec, 0x20, h.References)
	}
	if l.DataSection {
		rec.PutU32(0x30, h.DataSize)
		rec.PutU32(0x34, h.DataOffset)
	}
	if l.SubHeader {
		rec.PutU32(0x38, h.UID)
		rec.PutU32(0x3C, h.Flags)
		copy(rec.Bytes()[0x40:0x48], h.SubReserved[:])
	}
	return nil
}

// IsPackage reports whether data starts with a material package magic.
func IsPackage(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	_, err := format.PlatformForMagic(binary.LittleEndian.Uint32(data))
	return err == nil
}
