// Package data provides the sample contract consumed by training drivers,
// min-max normalization, CSV loading and deterministic synthetic datasets.
//
// A Sample carries its input either as an image (for convolutional models)
// or as a column vector (for dense models), plus a one-hot label column.
// Loaders normalize inputs to [0, 1] before handing samples out.
package data

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Sample is one labeled training example.
type Sample struct {
	Image  *tensor.Image  // Set for image datasets, nil otherwise.
	Vector *tensor.Tensor // Flattened input column; always set.
	Label  *tensor.Tensor // One-hot column, classes x 1.
}

// Class returns the index of the hot label entry.
func (s Sample) Class() int {
	return s.Label.ArgMax()
}

// Validate checks that the label is a one-hot column of classes entries
// and that Vector agrees with Image when both are present.
func (s Sample) Validate(classes int) error {
	if s.Vector == nil || s.Label == nil {
		return fmt.Errorf("data: %w: sample without input or label", tensor.ErrUninitialized)
	}
	if s.Label.Rows() != classes || s.Label.Cols() != 1 {
		return fmt.Errorf("data: %w: label %dx%d, want %dx1",
			tensor.ErrDimensionMismatch, s.Label.Rows(), s.Label.Cols(), classes)
	}
	var ones int
	for _, v := range s.Label.Data() {
		switch v {
		case 0:
		case 1:
			ones++
		default:
			return fmt.Errorf("data: %w: label value %v is not 0 or 1", tensor.ErrInvalidArgument, v)
		}
	}
	if ones != 1 {
		return fmt.Errorf("data: %w: label has %d hot entries", tensor.ErrInvalidArgument, ones)
	}
	if s.Image != nil && s.Image.Len() != s.Vector.Len() {
		return fmt.Errorf("data: %w: image %s vs vector of %d",
			tensor.ErrDimensionMismatch, s.Image.ShapeString(), s.Vector.Len())
	}
	return nil
}

// NewSample builds a sample from raw pixels in CHW order and a class index.
// When channels*height*width is zero the sample is vector-only.
func NewSample(pixels []float32, class, classes, channels, height, width int) (Sample, error) {
	label, err := tensor.OneHot(class, classes)
	if err != nil {
		return Sample{}, fmt.Errorf("data: %w", err)
	}
	vec, err := tensor.FromSlice(len(pixels), 1, pixels)
	if err != nil {
		return Sample{}, fmt.Errorf("data: %w", err)
	}
	s := Sample{Vector: vec, Label: label}
	if channels*height*width == 0 {
		return s, nil
	}
	if s.Image, err = tensor.ImageFromVector(vec, channels, height, width); err != nil {
		return Sample{}, fmt.Errorf("data: %w", err)
	}
	return s, nil
}
