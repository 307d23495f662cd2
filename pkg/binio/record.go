package binio

import (
	"encoding/binary"
	"math"
)

// Record is a fixed-size view over one table entry. Accessors take offsets
// relative to the start of the entry and do not bounds-check beyond what the
// slice itself does; callers size records from the format layout tables.
type Record struct {
	b     []byte
	order binary.ByteOrder
}

// NewRecord wraps b.
func NewRecord(b []byte, order binary.ByteOrder) Record {
	return Record{b: b, order: order}
}

// Bytes returns the underlying slice.
func (r Record) Bytes() []byte { return r.b }

// Len returns the record size.
func (r Record) Len() int { return len(r.b) }

func (r Record) U8(off int) uint8 { return r.b[off] }

func (r Record) U16(off int) uint16 { return r.order.Uint16(r.b[off:]) }

func (r Record) U32(off int) uint32 { return r.order.Uint32(r.b[off:]) }

func (r Record) F32(off int) float32 { return math.Float32frombits(r.U32(off)) }

// U24 reads a 24-bit value stored in three bytes.
func (r Record) U24(off int) uint32 {
	if r.order == binary.BigEndian {
		return uint32(r.b[off])<<16 | uint32(r.b[off+1])<<8 | uint32(r.b[off+2])
	}
	return uint32(r.b[off]) | uint32(r.b[off+1])<<8 | uint32(r.b[off+2])<<16
}

// F32s fills dst with consecutive singles starting at off.
func (r Record) F32s(off int, dst []float32) {
	for i := range dst {
		dst[i] = r.F32(off + i*4)
	}
}

// CString returns the NUL-terminated string inside the fixed field [off, off+n).
func (r Record) CString(off, n int) string {
	field := r.b[off : off+n]
	for i, c := range field {
		if c == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

func (r Record) PutU8(off int, v uint8) { r.b[off] = v }

func (r Record) PutU16(off int, v uint16) { r.order.PutUint16(r.b[off:], v) }

func (r Record) PutU32(off int, v uint32) { r.order.PutUint32(r.b[off:], v) }

func (r Record) PutF32(off int, v float32) { r.PutU32(off, math.Float32bits(v)) }

// PutU24 stores the low 24 bits of v.
func (r Record) PutU24(off int, v uint32) {
	if r.order == binary.BigEndian {
		r.b[off], r.b[off+1], r.b[off+2] = byte(v>>16), byte(v>>8), byte(v)
		return
	}
	r.b[off], r.b[off+1], r.b[off+2] = byte(v), byte(v>>8), byte(v>>16)
}

// PutF32s stores src as consecutive singles starting at off.
func (r Record) PutF32s(off int, src []float32) {
	for i, v := range src {
		r.PutF32(off+i*4, v)
	}
}

// PutCString copies s into the fixed field [off, off+n), NUL-padded.
// It reports false when s does not fit with its terminator.
func (r Record) PutCString(off, n int, s string) bool {
	if len(s) >= n {
		return false
	}
	field := r.b[off : off+n]
	copy(field, s)
	clear(field[len(s):])
	return true
}
