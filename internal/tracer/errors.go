package tracer

import (
	"errors"
	"fmt"
)

// Domain errors for the stitching pipeline.
var (
	// ErrFormat indicates malformed input while parsing a text export or trajectory.
	ErrFormat = errors.New("tracer: malformed input")

	// ErrShapeMismatch indicates arrays, grids or trajectories with inconsistent lengths.
	ErrShapeMismatch = errors.New("tracer: shape mismatch")

	// ErrOutOfRange indicates a value or index outside the domain it is applied to.
	ErrOutOfRange = errors.New("tracer: value out of range")

	// ErrIO indicates a missing or unreadable file.
	ErrIO = errors.New("tracer: i/o failure")

	// ErrNonMonotonic indicates a joined time column that is not strictly increasing.
	ErrNonMonotonic = errors.New("tracer: time column not strictly increasing")
)

// FormatError locates a parse failure in its source file.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// TracerError wraps an error with the index of the tracer it belongs to.
type TracerError struct {
	Index   int
	Wrapped error
}

func (e *TracerError) Error() string {
	return fmt.Sprintf("tracer %d: %v", e.Index, e.Wrapped)
}

func (e *TracerError) Unwrap() error {
	return e.Wrapped
}

// IOError wraps err so that it matches both ErrIO and the underlying cause.
func IOError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// Shapef returns an ErrShapeMismatch with context.
func Shapef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

// Rangef returns an ErrOutOfRange with context.
func Rangef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfRange, fmt.Sprintf(format, args...))
}
