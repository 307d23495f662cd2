package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
)

const (
	// DefaultCompressionLevel is the default compression level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Reader decompresses the payload of an envelope.
type Reader struct {
	header    *Header
	zReader   io.ReadCloser
	headerBuf [HeaderSize]byte
}

// NewReader reads and validates the envelope header from r and returns a
// reader for the decompressed container.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	reader.zReader = zstd.NewReader(r)
	return reader, nil
}

// Header returns the envelope header.
func (r *Reader) Header() *Header {
	return r.header
}

// Read reads decompressed data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.zReader.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// ReadAll decompresses a complete envelope. The payload must decompress to
// exactly the length recorded in the header.
func ReadAll(r io.Reader) (*Header, []byte, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	// One byte past the recorded length exposes a long payload.
	data, err := io.ReadAll(io.LimitReader(reader, int64(reader.header.Length)+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrSizeMismatch
		}
		return nil, nil, fmt.Errorf("read content: %w", err)
	}
	switch n := uint64(len(data)); {
	case n < reader.header.Length:
		return nil, nil, fmt.Errorf("read content: %w: payload shorter than %d bytes", ErrSizeMismatch, reader.header.Length)
	case n > reader.header.Length:
		return nil, nil, fmt.Errorf("%w: payload longer than %d bytes", ErrSizeMismatch, reader.header.Length)
	}
	return reader.header, data, nil
}
