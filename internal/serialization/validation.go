package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 16 * 1024 * 1024 // 16MB - maximum header size
	MaxTensorCount   = 10_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 256              // Maximum tensor name length
)

// ValidationLevel selects which header checks Read performs.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and shapes but not offsets.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateTensorOffsets checks that every tensor region lies inside the
// data section and that no two regions share a byte.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int { return cmp.Compare(a.Offset, b.Offset) })

	var prev *TensorMeta
	for i := range byOffset {
		cur := &byOffset[i]
		if cur.Offset < 0 || cur.Size < 0 {
			return &ValidationError{
				Kind:   KindNegativeOffset,
				Name:   cur.Name,
				Detail: fmt.Sprintf("offset=%d, size=%d", cur.Offset, cur.Size),
			}
		}
		end := cur.Offset + cur.Size
		if end > dataSize {
			return &ValidationError{
				Kind:   KindOutOfBounds,
				Name:   cur.Name,
				Detail: fmt.Sprintf("ends at byte %d of %d", end, dataSize),
			}
		}
		if prev != nil && prev.Offset+prev.Size > cur.Offset {
			return &ValidationError{
				Kind:   KindOverlap,
				Name:   prev.Name,
				Other:  cur.Name,
				Detail: fmt.Sprintf("[%d, %d) runs into [%d, %d)", prev.Offset, prev.Offset+prev.Size, cur.Offset, end),
			}
		}
		prev = cur
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Kind: KindInvalidName, Detail: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Kind:   KindNameTooLong,
			Name:   name,
			Detail: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Kind: KindInvalidName, Name: name, Detail: "contains '..'"}
	case strings.ContainsAny(name, "/\\\x00"):
		return &ValidationError{Kind: KindInvalidName, Name: name, Detail: "contains a path separator or null byte"}
	}
	return nil
}

// validateTensorMeta checks dtype and that the byte size matches the shape.
func validateTensorMeta(t TensorMeta) error {
	if t.DType != DTypeFloat32 {
		return &ValidationError{Kind: KindUnsupportedDType, Name: t.Name, Detail: t.DType}
	}
	if t.Rows < 0 || t.Cols < 0 {
		return &ValidationError{
			Kind:   KindInvalidShape,
			Name:   t.Name,
			Detail: fmt.Sprintf("%dx%d", t.Rows, t.Cols),
		}
	}
	if want := int64(t.Rows) * int64(t.Cols) * bytesPerFloat32; t.Size != want {
		return &ValidationError{
			Kind:   KindSizeMismatch,
			Name:   t.Name,
			Detail: fmt.Sprintf("%dx%d needs %d bytes, header says %d", t.Rows, t.Cols, want, t.Size),
		}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:   KindTooManyTensors,
			Detail: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, meta := range h.Tensors {
		if err := ValidateTensorName(meta.Name); err != nil {
			return err
		}
		if _, dup := seen[meta.Name]; dup {
			return &ValidationError{Kind: KindDuplicateName, Name: meta.Name, Detail: "tensor listed twice"}
		}
		seen[meta.Name] = struct{}{}
		if err := validateTensorMeta(meta); err != nil {
			return err
		}
	}
	if level != ValidationStrict {
		return nil
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}
