// Package archive stores containers in a zstd envelope: a fixed header
// naming the container kind and format, followed by one zstd frame.
package archive

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/heisthecat31/racepack/pkg/format"
)

// Magic bytes identifying an envelope.
var Magic = [4]byte{0x5a, 0x53, 0x54, 0x44} // "ZSTD"

// HeaderSize is the fixed binary size of an envelope header.
const HeaderSize = 32

// MaxLength bounds the uncompressed size an envelope may declare.
const MaxLength = math.MaxInt32

// headerLength is the size of the header after the magic and length words.
const headerLength = HeaderSize - 8

// Kind is the type of container held in an envelope.
type Kind uint8

const (
	KindMaterial Kind = 1
	KindModel    Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindMaterial:
		return "material"
	case KindModel:
		return "model"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Header is the envelope header. Model packages carry no magic, so the
// platform they were built for travels here.
type Header struct {
	Magic            [4]byte
	HeaderLength     uint32
	Kind             Kind
	Platform         format.Platform
	Version          uint16
	Length           uint64 // Uncompressed size
	CompressedLength uint64
}

// NewHeader returns a header for a container of the given kind and format.
func NewHeader(kind Kind, f format.Format, uncompressedSize uint64) *Header {
	return &Header{
		Magic:        Magic,
		HeaderLength: headerLength,
		Kind:         kind,
		Platform:     f.Platform,
		Version:      uint16(f.Version),
		Length:       uncompressedSize,
	}
}

// Format returns the format of the enclosed container.
func (h *Header) Format() format.Format {
	return format.Format{Version: uint32(h.Version), Platform: h.Platform}
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: expected %x, got %x", ErrInvalidMagic, Magic, h.Magic)
	}
	if h.HeaderLength != headerLength {
		return fmt.Errorf("%w: header length %d, want %d", ErrInvalidHeader, h.HeaderLength, headerLength)
	}
	if h.Kind != KindMaterial && h.Kind != KindModel {
		return fmt.Errorf("%w: unknown container %s", ErrInvalidHeader, h.Kind)
	}
	if h.Length == 0 || h.CompressedLength == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidHeader)
	}
	if h.Length > MaxLength {
		return fmt.Errorf("%w: length %d exceeds %d", ErrInvalidHeader, h.Length, MaxLength)
	}
	return nil
}

// MarshalBinary encodes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to buf, which must hold HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderLength)
	buf[8] = uint8(h.Kind)
	buf[9] = uint8(h.Platform)
	binary.LittleEndian.PutUint16(buf[10:12], h.Version)
	clear(buf[12:16])
	binary.LittleEndian.PutUint64(buf[16:24], h.Length)
	binary.LittleEndian.PutUint64(buf[24:32], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from buf without validating it.
func (h *Header) DecodeFrom(buf []byte) {
	copy(h.Magic[:], buf[0:4])
	h.HeaderLength = binary.LittleEndian.Uint32(buf[4:8])
	h.Kind = Kind(buf[8])
	h.Platform = format.Platform(buf[9])
	h.Version = binary.LittleEndian.Uint16(buf[10:12])
	h.Length = binary.LittleEndian.Uint64(buf[16:24])
	h.CompressedLength = binary.LittleEndian.Uint64(buf[24:32])
}

// IsArchive reports whether data starts with the envelope magic.
func IsArchive(data []byte) bool {
	return len(data) >= HeaderSize && [4]byte(data[:4]) == Magic
}
