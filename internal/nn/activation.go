package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/convnet/internal/tensor"
)

// elementwise caches the input of an element-wise activation for either the
// vector or the image path. Only the path used by the last forward is set.
type elementwise struct {
	stateless
	vec *tensor.Tensor
	img *tensor.Image
}

func (e *elementwise) cacheVector(x *tensor.Tensor) {
	e.vec, e.img = x.Clone(), nil
}

func (e *elementwise) cacheImage(x *tensor.Image) {
	e.vec, e.img = nil, x.Clone()
}

// backwardVector computes grad ⊙ f'(x) for the cached vector input.
func (e *elementwise) backwardVector(layer string, grad *tensor.Tensor, df func(x float32) float32) (*tensor.Tensor, error) {
	if e.vec == nil {
		return nil, errNoForward(layer)
	}
	if !grad.SameShape(e.vec) {
		return nil, errGradShape(layer, grad, e.vec)
	}
	dx := tensor.New(grad.Rows(), grad.Cols())
	derivInto(dx.Data(), grad.Data(), e.vec.Data(), df)
	return dx, nil
}

func (e *elementwise) backwardImage(layer string, grad *tensor.Image, df func(x float32) float32) (*tensor.Image, error) {
	if e.img == nil {
		return nil, errNoForward(layer)
	}
	if !grad.SameShape(e.img) {
		return nil, errGradImageShape(layer, grad, e.img.ShapeString())
	}
	dx := tensor.NewImage(grad.Channels(), grad.Height(), grad.Width())
	derivInto(dx.Data(), grad.Data(), e.img.Data(), df)
	return dx, nil
}

func derivInto(dst, grad, x []float32, df func(x float32) float32) {
	for i, g := range grad {
		dst[i] = g * df(x[i])
	}
}

func applyImage(x *tensor.Image, f func(float32) float32) *tensor.Image {
	out := tensor.NewImage(x.Channels(), x.Height(), x.Width())
	dst := out.Data()
	for i, v := range x.Data() {
		dst[i] = f(v)
	}
	return out
}

// ReLU is a Rectified Linear Unit activation layer.
//
// Applies the element-wise function: f(x) = max(0, x).
// Backward passes the gradient where the cached input was positive and
// zeroes it elsewhere (including x == 0).
//
// ReLU works on both vectors and images.
type ReLU struct {
	elementwise
}

// NewReLU creates a new ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Name returns "ReLU".
func (r *ReLU) Name() string { return "ReLU" }

func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

func reluGrad(x float32) float32 {
	if x > 0 {
		return 1
	}
	return 0
}

// Forward applies max(0, x).
func (r *ReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	r.cacheVector(x)
	return x.Apply(relu), nil
}

// Backward masks grad with the sign of the cached input.
func (r *ReLU) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	return r.backwardVector("ReLU", grad, reluGrad)
}

// ForwardImage applies max(0, x) to every pixel.
func (r *ReLU) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	r.cacheImage(x)
	return applyImage(x, relu), nil
}

// BackwardImage masks grad with the sign of the cached input.
func (r *ReLU) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	return r.backwardImage("ReLU", grad, reluGrad)
}

// LeakyReLU scales negative inputs by slope instead of zeroing them:
// f(x) = x for x > 0, slope*x otherwise.
type LeakyReLU struct {
	elementwise
	slope float32
}

// DefaultLeakySlope is the slope used by NewLeakyReLU when given 0.
const DefaultLeakySlope = 0.01

// NewLeakyReLU creates a LeakyReLU layer. A zero slope selects DefaultLeakySlope.
func NewLeakyReLU(slope float32) *LeakyReLU {
	if slope == 0 {
		slope = DefaultLeakySlope
	}
	return &LeakyReLU{slope: slope}
}

// Name returns "LeakyReLU".
func (l *LeakyReLU) Name() string { return "LeakyReLU" }

// Slope returns the negative-side slope.
func (l *LeakyReLU) Slope() float32 { return l.slope }

func (l *LeakyReLU) f(x float32) float32 {
	if x > 0 {
		return x
	}
	return l.slope * x
}

func (l *LeakyReLU) df(x float32) float32 {
	if x > 0 {
		return 1
	}
	return l.slope
}

// Forward applies the leaky rectifier.
func (l *LeakyReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	l.cacheVector(x)
	return x.Apply(l.f), nil
}

// Backward scales grad by 1 or slope depending on the cached input.
func (l *LeakyReLU) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	return l.backwardVector("LeakyReLU", grad, l.df)
}

// ForwardImage applies the leaky rectifier to every pixel.
func (l *LeakyReLU) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	l.cacheImage(x)
	return applyImage(x, l.f), nil
}

// BackwardImage scales grad by 1 or slope depending on the cached input.
func (l *LeakyReLU) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	return l.backwardImage("LeakyReLU", grad, l.df)
}

// Softmax normalizes every column into a probability distribution.
//
// The column maximum is subtracted before exponentiating, so large logits
// neither overflow nor change the result.
//
// Backward is the identity: Softmax is meant to be followed by
// CrossEntropyLoss, whose gradient (p - y) already contains the Jacobian.
type Softmax struct {
	stateless
	out *tensor.Tensor
}

// NewSoftmax creates a Softmax layer.
func NewSoftmax() *Softmax {
	return &Softmax{}
}

// Name returns "Softmax".
func (s *Softmax) Name() string { return "Softmax" }

// Forward computes softmax over each column of x.
func (s *Softmax) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := SoftmaxColumns(x)
	s.out = out
	return out.Clone(), nil
}

// Backward returns grad unchanged after checking its shape.
func (s *Softmax) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if s.out == nil {
		return nil, errNoForward("Softmax")
	}
	if !grad.SameShape(s.out) {
		return nil, errGradShape("Softmax", grad, s.out)
	}
	return grad.Clone(), nil
}

// SoftmaxColumns returns the column-wise softmax of x.
func SoftmaxColumns(x *tensor.Tensor) *tensor.Tensor {
	rows, cols := x.Rows(), x.Cols()
	out := tensor.New(rows, cols)
	src, dst := x.Data(), out.Data()
	for j := 0; j < cols; j++ {
		m := float32(math.Inf(-1))
		for i := 0; i < rows; i++ {
			m = max(m, src[i*cols+j])
		}
		var sum float64
		for i := 0; i < rows; i++ {
			e := math.Exp(float64(src[i*cols+j] - m))
			dst[i*cols+j] = float32(e)
			sum += e
		}
		for i := 0; i < rows; i++ {
			dst[i*cols+j] = float32(float64(dst[i*cols+j]) / sum)
		}
	}
	return out
}

// String implements fmt.Stringer for debugging output.
func (l *LeakyReLU) String() string {
	return fmt.Sprintf("LeakyReLU(slope=%g)", l.slope)
}
