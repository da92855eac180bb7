package walk

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a traversal is requested without any roots.
var ErrInvalidInput = errors.New("invalid input")

// DirError is a non-fatal problem encountered while listing one directory.
// The walk skips that directory's children and continues with its siblings.
type DirError struct {
	Path string // Directory whose listing failed
	Err  error  // Underlying filesystem error
}

// Error implements the error interface for DirError.
func (e *DirError) Error() string {
	return fmt.Sprintf("list %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *DirError) Unwrap() error {
	return e.Err
}
