// Package binio provides endianness-aware cursors over in-memory byte buffers.
//
// The byte order is fixed when a Reader or Writer is constructed; there is no
// process-wide toggle. Nothing in this package knows about container
// semantics.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncatedInput is returned by every read that runs past the end of the buffer.
var ErrTruncatedInput = errors.New("truncated input")

// Reader is a seekable read cursor over a byte slice.
type Reader struct {
	data  []byte
	pos   int64
	order binary.ByteOrder
}

// NewReader returns a cursor positioned at the start of data.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

// Order returns the byte order the cursor decodes with.
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// Pos returns the absolute cursor position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Len returns the total buffer length.
func (r *Reader) Len() int64 {
	return int64(len(r.data))
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 {
	if r.pos >= int64(len(r.data)) {
		return 0
	}
	return int64(len(r.data)) - r.pos
}

// Seek implements io.Seeker. Seeking past the end is allowed; the next read fails.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = int64(len(r.data)) + offset
	default:
		return r.pos, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return r.pos, fmt.Errorf("negative position %d", abs)
	}
	r.pos = abs
	return abs, nil
}

// SeekAbsolute moves the cursor to an absolute offset.
func (r *Reader) SeekAbsolute(offset int64) error {
	_, err := r.Seek(offset, io.SeekStart)
	return err
}

// SeekRelative moves the cursor by delta bytes.
func (r *Reader) SeekRelative(delta int64) error {
	_, err := r.Seek(delta, io.SeekCurrent)
	return err
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int64) {
	r.pos = Align(r.pos, n)
}

func (r *Reader) take(n int64) ([]byte, error) {
	if n < 0 || r.pos > int64(len(r.data)) || int64(len(r.data))-r.pos < n {
		return nil, fmt.Errorf("%w: need %d bytes at 0x%x, have %d", ErrTruncatedInput, n, r.pos, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadBytes returns the next n bytes. The slice aliases the underlying buffer.
func (r *Reader) ReadBytes(n int64) ([]byte, error) {
	return r.take(n)
}

// ReadRecord returns a fixed-size record view over the next n bytes.
func (r *Reader) ReadRecord(n int64) (Record, error) {
	b, err := r.take(n)
	if err != nil {
		return Record{}, err
	}
	return NewRecord(b, r.order), nil
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, fmt.Errorf("%w: peek at 0x%x", ErrTruncatedInput, r.pos)
	}
	return r.data[r.pos], nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit value.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// ReadI16 reads a signed 16-bit value.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit value.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadI32 reads a signed 32-bit value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit value.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// ReadI64 reads a signed 64-bit value.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE 754 single.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadCString reads bytes up to a NUL terminator and consumes the terminator.
// A buffer that ends before the terminator fails with ErrTruncatedInput.
func (r *Reader) ReadCString() (string, error) {
	start := r.pos
	for i := start; i < int64(len(r.data)); i++ {
		if r.data[i] == 0 {
			r.pos = i + 1
			return string(r.data[start:i]), nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at 0x%x", ErrTruncatedInput, start)
}
