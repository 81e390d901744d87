package writer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned for operations attempted before
	// Initialize or after Finalize.
	ErrNotInitialized = errors.New("writer: not initialized")
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("writer: already initialized")
	// ErrUnsupportedFormat is returned for an unrecognized format identifier.
	ErrUnsupportedFormat = errors.New("writer: unsupported format")
)

// EncodingError means a sample could not be serialized for a format, for
// example a malformed processed payload or a sample variant that does not
// match the stream's bound data type.
type EncodingError struct {
	Format Format
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s encoding: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// SinkError means the underlying byte sink rejected a write or close.
type SinkError struct {
	Format Format
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Format, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
