package tensor

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every convnet package. Callers test with errors.Is.
var (
	// ErrDimensionMismatch reports shape-incompatible operands.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidArgument reports a bad axis selector, size or layer configuration.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUninitialized reports use of state that has not been produced yet,
	// e.g. a backward pass without a preceding forward pass.
	ErrUninitialized = errors.New("uninitialized state")
)

// mismatch wraps ErrDimensionMismatch with the operation name and both shapes.
func mismatch(op string, a, b *Tensor) error {
	return fmt.Errorf("%s: %w: %dx%d vs %dx%d", op, ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols)
}

// invalid wraps ErrInvalidArgument with a formatted detail message.
func invalid(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, fmt.Sprintf(format, args...))
}
