// Package errs defines the error taxonomy of the serialization boundary.
//
// Callers classify failures with errors.Is against the sentinel values and,
// for the structured kinds, extract detail with errors.As. BufferTooSmallError
// is the one designed-for-retry condition: the caller reallocates the named
// field's buffer to the reported size and re-invokes the deserialize call.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates an unrecognized serialization format tag
	// at encode or decode time.
	ErrUnsupportedFormat = errors.New("unsupported serialization format")
	// ErrMalformedInput indicates a corrupt, truncated or version-mismatched
	// payload, detected before any object fields are populated.
	ErrMalformedInput = errors.New("malformed serialized input")
	// ErrSchemaDecode indicates a structurally invalid schema payload.
	ErrSchemaDecode = errors.New("invalid schema payload")
	// ErrBufferTooSmall indicates a target buffer with insufficient capacity.
	// Use errors.As with *BufferTooSmallError to obtain the required size.
	ErrBufferTooSmall = errors.New("target buffer too small")
	// ErrDomainSizeMismatch indicates caller-provided non-empty domain storage
	// whose size disagrees with what the array schema implies.
	ErrDomainSizeMismatch = errors.New("non-empty domain storage size mismatch")
	// ErrBufferCapacity indicates an append that would exceed the fixed size
	// of a non-owning buffer view.
	ErrBufferCapacity = errors.New("append exceeds fixed buffer capacity")
	// ErrBufferNotOwned indicates a resize or grow attempt on a borrowed view.
	ErrBufferNotOwned = errors.New("buffer does not own its data")
	// ErrFieldDecode indicates a failure while populating a single query
	// field. Use errors.As with *FieldDecodeError for partial progress.
	ErrFieldDecode = errors.New("query field decode failed")
	// ErrInvalidSchema indicates a schema that fails structural validation
	// before encoding is attempted.
	ErrInvalidSchema = errors.New("invalid array schema")
	// ErrInvalidQuery indicates a query with no registered field buffers or
	// an invalid layout.
	ErrInvalidQuery = errors.New("invalid query")
)

// BufferTooSmallError reports a recoverable capacity shortfall while
// deserializing a query field. Required is the exact byte size the caller
// must reallocate to before retrying.
type BufferTooSmallError struct {
	Field    string
	Kind     string // "data", "offsets" or "validity"
	Required uint64
	Capacity uint64
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("buffer for field %q (%s) too small: capacity %d, required %d",
		e.Field, e.Kind, e.Capacity, e.Required)
}

// Unwrap makes errors.Is(err, ErrBufferTooSmall) succeed.
func (e *BufferTooSmallError) Unwrap() error {
	return ErrBufferTooSmall
}

// DomainSizeMismatchError reports the schema-implied byte size of the
// non-empty domain storage versus what the caller supplied.
type DomainSizeMismatchError struct {
	Expected uint64
	Got      uint64
}

func (e *DomainSizeMismatchError) Error() string {
	return fmt.Sprintf("non-empty domain storage size mismatch: schema implies %d bytes, got %d",
		e.Expected, e.Got)
}

func (e *DomainSizeMismatchError) Unwrap() error {
	return ErrDomainSizeMismatch
}

// FieldDecodeError reports a mid-stream failure while populating query
// fields. Fields decoded before the failing one keep their contents;
// Completed counts them.
type FieldDecodeError struct {
	Field     string
	Completed int
	Err       error
}

func (e *FieldDecodeError) Error() string {
	return fmt.Sprintf("decoding query field %q failed after %d completed field(s): %v",
		e.Field, e.Completed, e.Err)
}

func (e *FieldDecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFieldDecode) succeed regardless of the cause.
func (e *FieldDecodeError) Is(target error) bool {
	return target == ErrFieldDecode
}
