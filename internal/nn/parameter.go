package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that receive gradients during the backward pass.
// They typically represent weights and biases of layers.
//
// The gradient is nil until the first backward pass. From then on it
// accumulates (+=) across backward calls until ZeroGrad resets it to zero.
//
// Example:
//
//	w := layer.Weight()
//	value := w.Value()
//	grad := w.Grad() // nil before the first Backward
type Parameter struct {
	name  string
	value *tensor.Tensor
	grad  *tensor.Tensor
}

// NewParameter creates a parameter holding value.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor. Optimizers update it in place.
func (p *Parameter) Value() *tensor.Tensor {
	return p.value
}

// Grad returns the accumulated gradient, or nil before the first backward pass.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// Len returns the number of scalar values in the parameter.
func (p *Parameter) Len() int {
	return p.value.Len()
}

// Set replaces the parameter value with a copy of v. The shape must match.
func (p *Parameter) Set(v *tensor.Tensor) error {
	if !v.SameShape(p.value) {
		return fmt.Errorf("%s: %w: %dx%d, want %dx%d", p.name, tensor.ErrDimensionMismatch,
			v.Rows(), v.Cols(), p.value.Rows(), p.value.Cols())
	}
	p.value.Assign(v)
	return nil
}

// ZeroGrad resets the accumulated gradient to zero.
func (p *Parameter) ZeroGrad() {
	if p.grad != nil {
		p.grad.Fill(0)
	}
}

// accumulate adds g into the gradient, allocating it on first use.
func (p *Parameter) accumulate(g *tensor.Tensor) error {
	if p.grad == nil {
		p.grad = tensor.New(p.value.Rows(), p.value.Cols())
	}
	if err := p.grad.AddInPlace(g); err != nil {
		return fmt.Errorf("%s gradient: %w", p.name, err)
	}
	return nil
}
