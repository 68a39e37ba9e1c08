package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Flatten is the conversion point between image-shaped and vector-shaped
// layers. FlattenImage turns a [C, H, W] image into a (C*H*W) x 1 column with
// element (c, h, w) at row (c*H+h)*W+w; UnflattenGrad reverses it for the
// gradient.
type Flatten struct {
	stateless
	shape [3]int
	ready bool
}

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Name returns "Flatten".
func (f *Flatten) Name() string { return "Flatten" }

// FlattenImage reshapes x into a column vector and remembers its shape.
func (f *Flatten) FlattenImage(x *tensor.Image) (*tensor.Tensor, error) {
	f.shape = [3]int{x.Channels(), x.Height(), x.Width()}
	f.ready = true
	return x.Flatten(), nil
}

// UnflattenGrad reshapes a column-vector gradient back into the image shape
// seen by the last FlattenImage.
func (f *Flatten) UnflattenGrad(grad *tensor.Tensor) (*tensor.Image, error) {
	if !f.ready {
		return nil, errNoForward("Flatten")
	}
	img, err := tensor.ImageFromVector(grad, f.shape[0], f.shape[1], f.shape[2])
	if err != nil {
		return nil, fmt.Errorf("Flatten: %w", err)
	}
	return img, nil
}
