package binio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer is an append-only output cursor. Containers are always emitted
// front to back; offsets are computed before writing, never patched.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter returns an empty writer using order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// NewWriterSize returns an empty writer with capacity for size bytes.
func NewWriterSize(order binary.ByteOrder, size int) *Writer {
	return &Writer{buf: make([]byte, 0, size), order: order}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int64 {
	return int64(len(w.buf))
}

// Bytes returns the written buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// PadTo zero-fills up to the absolute offset off.
func (w *Writer) PadTo(off int64) error {
	if off < w.Pos() {
		return fmt.Errorf("pad to 0x%x: already at 0x%x", off, w.Pos())
	}
	w.buf = append(w.buf, make([]byte, off-w.Pos())...)
	return nil
}

// Align zero-fills up to the next multiple of n.
func (w *Writer) Align(n int64) {
	_ = w.PadTo(Align(w.Pos(), n))
}

// Write appends p. It never fails.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Record appends a zeroed n-byte entry and returns a view over it.
// The view is only valid until the next append.
func (w *Writer) Record(n int) Record {
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return NewRecord(w.buf[start:start+n:start+n], w.order)
}

func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteCString appends s and a NUL terminator.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}
