package archive

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/heisthecat31/racepack/pkg/format"
)

// Writer compresses a container into an envelope. The header is patched
// with the compressed size on Close, so dst must be seekable.
type Writer struct {
	dst     io.WriteSeeker
	zWriter *zstd.Writer
	header  *Header
	level   int
	start   int64
	written uint64
	buf     [HeaderSize]byte
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the compression level for the writer.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter writes a placeholder header for a container of the given kind
// and format at the current position of dst. Exactly uncompressedSize bytes
// must be written before Close.
func NewWriter(dst io.WriteSeeker, kind Kind, f format.Format, uncompressedSize uint64, opts ...WriterOption) (*Writer, error) {
	if uncompressedSize > MaxLength {
		return nil, fmt.Errorf("%w: length %d exceeds %d", ErrInvalidHeader, uncompressedSize, MaxLength)
	}
	w := &Writer{
		dst:    dst,
		level:  DefaultCompressionLevel,
		header: NewHeader(kind, f, uncompressedSize),
	}
	for _, opt := range opts {
		opt(w)
	}

	start, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	w.start = start
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	w.zWriter = zstd.NewWriterLevel(dst, w.level)
	return w, nil
}

func (w *Writer) writeHeader() error {
	w.header.EncodeTo(w.buf[:])
	if _, err := w.dst.Write(w.buf[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Write compresses p.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.zWriter.Write(p)
	w.written += uint64(n)
	return n, err
}

// Close flushes the compressor and patches the compressed size into the
// header, leaving dst positioned at the end of the envelope.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	if w.written != w.header.Length {
		return fmt.Errorf("%w: wrote %d bytes, header declares %d", ErrSizeMismatch, w.written, w.header.Length)
	}

	end, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	w.header.CompressedLength = uint64(end - w.start - HeaderSize)

	if _, err := w.dst.Seek(w.start, io.SeekStart); err != nil {
		return fmt.Errorf("seek to header: %w", err)
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	if _, err := w.dst.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	return nil
}

// Encode compresses a container of the given kind and format into dst.
func Encode(dst io.WriteSeeker, kind Kind, f format.Format, data []byte, opts ...WriterOption) error {
	w, err := NewWriter(dst, kind, f, uint64(len(data)), opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return w.Close()
}
