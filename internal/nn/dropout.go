package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Dropout randomly zeroes activations during training.
//
// p is the probability of dropping an element. Kept elements are scaled by
// 1/(1-p) (inverted dropout) so evaluation needs no rescaling. This differs
// from a plain unscaled 0/1 Bernoulli mask, where p would be the keep rate
// and evaluation outputs would have to be multiplied by it. In evaluation
// mode both passes are the identity and no mask is kept, so a stale training
// mask is never applied.
//
// Dropout works on both vectors and images.
type Dropout struct {
	modeFlag
	p   float32
	rng *tensor.RNG

	forwarded bool
	mask      []float32 // nil after an evaluation-mode forward
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
// The layer starts in training mode.
func NewDropout(p float32, rng *tensor.RNG) (*Dropout, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("Dropout: %w: probability %g outside [0, 1)", tensor.ErrInvalidArgument, p)
	}
	if rng == nil {
		return nil, fmt.Errorf("Dropout: %w: nil random context", tensor.ErrInvalidArgument)
	}
	return &Dropout{modeFlag: modeFlag{training: true}, p: p, rng: rng}, nil
}

// Name returns "Dropout".
func (d *Dropout) Name() string { return "Dropout" }

// P returns the drop probability.
func (d *Dropout) P() float32 { return d.p }

// ZeroGrad is a no-op; Dropout has no parameters.
func (d *Dropout) ZeroGrad() {}

// Accept is a no-op; Dropout has no parameters.
func (d *Dropout) Accept(_ Visitor) error { return nil }

// SetTraining switches mode. Leaving training mode discards the mask.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
	if !training {
		d.mask = nil
	}
}

// newMask samples a fresh inverted-dropout mask of n elements.
func (d *Dropout) newMask(n int) ([]float32, error) {
	keep := 1 - d.p
	m, err := tensor.Bernoulli(n, 1, keep, d.rng)
	if err != nil {
		return nil, fmt.Errorf("Dropout: %w", err)
	}
	m.ScaleInPlace(1 / keep)
	return m.Data(), nil
}

func (d *Dropout) forward(src, dst []float32) error {
	d.forwarded = true
	if !d.training {
		d.mask = nil
		copy(dst, src)
		return nil
	}
	mask, err := d.newMask(len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		dst[i] = v * mask[i]
	}
	d.mask = mask
	return nil
}

func (d *Dropout) backward(grad, dst []float32) error {
	if !d.forwarded {
		return errNoForward("Dropout")
	}
	if d.mask == nil {
		copy(dst, grad)
		return nil
	}
	if len(grad) != len(d.mask) {
		return fmt.Errorf("Dropout: %w: gradient has %d elements, mask %d",
			tensor.ErrDimensionMismatch, len(grad), len(d.mask))
	}
	for i, g := range grad {
		dst[i] = g * d.mask[i]
	}
	return nil
}

// Forward applies the dropout mask in training mode.
func (d *Dropout) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(x.Rows(), x.Cols())
	if err := d.forward(x.Data(), out.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

// Backward multiplies grad by the cached mask, or passes it through when the
// last forward ran in evaluation mode.
func (d *Dropout) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(grad.Rows(), grad.Cols())
	if err := d.backward(grad.Data(), out.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

// ForwardImage applies the dropout mask in training mode.
func (d *Dropout) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	out := tensor.NewImage(x.Channels(), x.Height(), x.Width())
	if err := d.forward(x.Data(), out.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

// BackwardImage is the image-shaped counterpart of Backward.
func (d *Dropout) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	out := tensor.NewImage(grad.Channels(), grad.Height(), grad.Width())
	if err := d.backward(grad.Data(), out.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

// Mask returns a copy of the current mask, or nil when none is held.
func (d *Dropout) Mask() []float32 {
	if d.mask == nil {
		return nil
	}
	return append([]float32(nil), d.mask...)
}
