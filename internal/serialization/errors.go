package serialization

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCheckpoint is wrapped by every ValidationError.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTensorNotFound     = errors.New("tensor not found")
	ErrStateMismatch      = errors.New("checkpoint does not match module")
)

// ValidationKind classifies a header or tensor-table defect.
type ValidationKind string

// Validation kinds.
const (
	KindOutOfBounds      ValidationKind = "out_of_bounds"
	KindNegativeOffset   ValidationKind = "negative_offset"
	KindOverlap          ValidationKind = "offset_overlap"
	KindInvalidName      ValidationKind = "invalid_name"
	KindNameTooLong      ValidationKind = "name_too_long"
	KindDuplicateName    ValidationKind = "duplicate_name"
	KindUnsupportedDType ValidationKind = "unsupported_dtype"
	KindInvalidShape     ValidationKind = "invalid_shape"
	KindSizeMismatch     ValidationKind = "size_mismatch"
	KindTooManyTensors   ValidationKind = "too_many_tensors"
)

// ValidationError reports which tensor entry is malformed and how.
type ValidationError struct {
	Kind   ValidationKind
	Name   string // tensor involved, if any
	Other  string // second tensor for overlaps
	Detail string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Other != "":
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Kind, e.Name, e.Other, e.Detail)
	case e.Name != "":
		return fmt.Sprintf("%s: tensor %q: %s", e.Kind, e.Name, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns ErrInvalidCheckpoint.
func (e *ValidationError) Unwrap() error { return ErrInvalidCheckpoint }
