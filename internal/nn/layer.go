// Package nn implements the layer pipeline of convnet.
//
// This package provides building blocks for constructing networks:
//   - Layer contracts: Layer, VectorLayer, ImageLayer
//   - Parameter: trainable tensors with accumulated gradients
//   - Layers: Linear, Conv2D, MaxPool2D, AvgPool2D, LocalResponseNorm,
//     ReLU, LeakyReLU, Softmax, Dropout, Flatten
//   - Module: ordered container threading data through its layers
//   - Losses: CrossEntropyLoss, MSELoss
//
// A layer is statically image-shaped, vector-shaped, or both. Flatten is the
// only conversion point between the two and is driven through its own
// FlattenImage/UnflattenGrad pair.
package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Layer is the capability every layer shares.
type Layer interface {
	// Name returns a short type name such as "Linear" or "Conv2D".
	Name() string

	// ZeroGrad resets accumulated parameter gradients to zero. Idempotent.
	ZeroGrad()

	// SetTraining switches between training and evaluation behavior.
	SetTraining(training bool)

	// Accept lets an optimizer update the layer's parameters.
	// Layers without parameters return nil without calling v.
	Accept(v Visitor) error
}

// VectorLayer operates on column-vector (or column-batch) tensors.
type VectorLayer interface {
	Layer

	// Forward computes the layer output and caches what Backward needs.
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)

	// Backward takes the gradient w.r.t. the most recent Forward output and
	// returns the gradient w.r.t. its input, accumulating parameter gradients.
	Backward(grad *tensor.Tensor) (*tensor.Tensor, error)
}

// ImageLayer operates on multi-channel images.
type ImageLayer interface {
	Layer

	// ForwardImage computes the layer output and caches what BackwardImage needs.
	ForwardImage(x *tensor.Image) (*tensor.Image, error)

	// BackwardImage is the image-shaped counterpart of VectorLayer.Backward.
	BackwardImage(grad *tensor.Image) (*tensor.Image, error)
}

// Visitor is implemented by optimizers. Each parameterized layer dispatches
// to its own Visit method from Accept.
type Visitor interface {
	VisitLinear(l *Linear) error
	VisitConv2D(c *Conv2D) error
}

// Parameterized is implemented by layers that own trainable parameters.
type Parameterized interface {
	Params() []*Parameter
}

// modeFlag is embedded by layers to track the training flag.
type modeFlag struct {
	training bool
}

func (m *modeFlag) SetTraining(training bool) { m.training = training }

// Training reports whether the layer is in training mode.
func (m *modeFlag) Training() bool { return m.training }

// stateless is embedded by layers without parameters.
type stateless struct {
	modeFlag
}

func (stateless) ZeroGrad()              {}
func (stateless) Accept(_ Visitor) error { return nil }

func errNoForward(layer string) error {
	return fmt.Errorf("%s: %w: backward called before forward", layer, tensor.ErrUninitialized)
}

func errGradShape(layer string, got, want *tensor.Tensor) error {
	return fmt.Errorf("%s: %w: gradient %dx%d, want %dx%d",
		layer, tensor.ErrDimensionMismatch, got.Rows(), got.Cols(), want.Rows(), want.Cols())
}

func errGradImageShape(layer string, got *tensor.Image, want string) error {
	return fmt.Errorf("%s: %w: gradient %s, want %s",
		layer, tensor.ErrDimensionMismatch, got.ShapeString(), want)
}

func shapeString(c, h, w int) string {
	return fmt.Sprintf("%dx%dx%d", c, h, w)
}
