package format

import (
	"errors"
	"fmt"
)

// Sentinel errors for container decoding. Use errors.Is in callers.
var (
	// ErrInvalidMagic means the container does not start with a known magic.
	ErrInvalidMagic = errors.New("invalid magic")
	// ErrUnsupportedFormat means the version/platform combination has no layout.
	ErrUnsupportedFormat = errors.New("unsupported version/platform combination")
	// ErrDanglingReference means a stored offset does not address any entry of the target table.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrInvalidPalette means a palette entry count or data size is malformed.
	ErrInvalidPalette = errors.New("invalid palette")
	// ErrLayout means an in-memory package cannot be laid out in its format.
	ErrLayout = errors.New("package cannot be laid out")
)

// DecodeError is a hard decode failure annotated with where it happened.
type DecodeError struct {
	Offset int64  // absolute byte offset of the field being parsed
	Field  string // field path, e.g. "substances[3].textureRefs"
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at 0x%x: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Errorf wraps err as a DecodeError. A nil err yields nil.
func Errorf(offset int64, err error, field string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		field = fmt.Sprintf(field, args...)
	}
	return &DecodeError{Offset: offset, Field: field, Err: err}
}
