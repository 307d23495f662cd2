package archive

import "errors"

var (
	// ErrInvalidMagic means the data does not start with the envelope magic.
	ErrInvalidMagic = errors.New("invalid envelope magic")
	// ErrInvalidHeader means the envelope header fields are inconsistent.
	ErrInvalidHeader = errors.New("invalid envelope header")
	// ErrSizeMismatch means the payload does not decompress to the recorded length.
	ErrSizeMismatch = errors.New("envelope size mismatch")
)
