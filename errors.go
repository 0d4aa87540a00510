package lexgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lexgo/attrs"
)

var (
	// ErrNotFound is returned when an orth id does not resolve to a known string.
	ErrNotFound = errors.New("not found")
	// ErrFlagsExhausted is returned when no free flag bit remains for auto-assignment.
	ErrFlagsExhausted = errors.New("no free flag bits")
	// ErrUnsupported is returned by operations that are intentionally not implemented,
	// such as whole-table opaque serialization.
	ErrUnsupported = errors.New("operation not supported")
	// ErrVectorBounds is returned when a binary vector record declares a length
	// outside [1, MaxVectorLength).
	ErrVectorBounds = errors.New("vector length out of bounds")
)

// ErrStringMismatch is a consistency fault: an indexed lexeme's orth id does
// not round-trip through the string store. It indicates corruption, not a
// missing entry.
type ErrStringMismatch struct {
	Orth   uint64
	Stored string
	Got    string
	cause  error
}

func (e *ErrStringMismatch) Error() string {
	return fmt.Sprintf("string store mismatch for orth %d: index has %q, caller saw %q", e.Orth, e.Stored, e.Got)
}

func (e *ErrStringMismatch) Unwrap() error { return e.cause }

// ErrVectorSize indicates a vector file entry whose component count disagrees
// with the established dimension. Record is the zero-based line or record
// index of the offending entry.
type ErrVectorSize struct {
	Record   int
	Expected int
	Actual   int
}

func (e *ErrVectorSize) Error() string {
	return fmt.Sprintf("vector size mismatch at record %d: expected %d, got %d", e.Record, e.Expected, e.Actual)
}

// ErrInvalidFlag indicates a flag bit outside the assignable range [1, 63].
type ErrInvalidFlag struct {
	Bit attrs.FlagID
}

func (e *ErrInvalidFlag) Error() string {
	return fmt.Sprintf("invalid flag bit %d: must be in [1, %d]", e.Bit, attrs.MaxFlag)
}

// ErrInvalidDimension indicates an invalid requested vector dimensionality.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}
