package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = W·x + b
// where:
//   - x is the input with shape [in_features, k], one sample per column
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias column with shape [out_features, 1], broadcast across columns
//   - y is the output with shape [out_features, k]
//
// Weights are initialized with He normal initialization, biases with zeros.
//
// Example:
//
//	rng := tensor.NewRNG(42)
//	layer, err := nn.NewLinear(784, 128, true, rng)
//	output, err := layer.Forward(input) // input: [784, 1] -> output: [128, 1]
type Linear struct {
	modeFlag
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter // nil when bias is disabled
	input       *tensor.Tensor
}

// NewLinear creates a new Linear layer.
//
// Parameters:
//   - inFeatures: Number of input features
//   - outFeatures: Number of output features
//   - bias: Whether the layer learns an additive bias
//   - rng: Random context for weight initialization; nil leaves weights at zero
//
// Returns ErrInvalidArgument for non-positive sizes.
func NewLinear(inFeatures, outFeatures int, bias bool, rng *tensor.RNG) (*Linear, error) {
	if inFeatures <= 0 || outFeatures <= 0 {
		return nil, fmt.Errorf("Linear: %w: features %d -> %d must be positive",
			tensor.ErrInvalidArgument, inFeatures, outFeatures)
	}

	w := tensor.New(outFeatures, inFeatures)
	if rng != nil {
		var err error
		if w, err = HeNormal(outFeatures, inFeatures, inFeatures, rng); err != nil {
			return nil, err
		}
	}

	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", w),
	}
	if bias {
		l.bias = NewParameter("bias", tensor.New(outFeatures, 1))
	}
	return l, nil
}

// Name returns "Linear".
func (l *Linear) Name() string { return "Linear" }

// InFeatures returns the input size.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output size.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter, or nil when bias is disabled.
func (l *Linear) Bias() *Parameter { return l.bias }

// HasBias reports whether the layer learns a bias.
func (l *Linear) HasBias() bool { return l.bias != nil }

// Params returns the trainable parameters (weight, then bias if enabled).
func (l *Linear) Params() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}

// Forward computes y = W·x + b.
//
// Input shape: [in_features, k]
// Output shape: [out_features, k]
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rows() != l.inFeatures {
		return nil, fmt.Errorf("Linear: %w: input %dx%d, want %d rows",
			tensor.ErrDimensionMismatch, x.Rows(), x.Cols(), l.inFeatures)
	}

	y, err := tensor.MatMul(l.weight.Value(), x)
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	if l.bias != nil {
		if err := addBiasColumns(y, l.bias.Value()); err != nil {
			return nil, fmt.Errorf("Linear: %w", err)
		}
	}

	l.input = x.Clone()
	return y, nil
}

// Backward computes:
//
//	dW += grad·xᵀ
//	db += Σ_columns grad
//	dx  = Wᵀ·grad
func (l *Linear) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.input == nil {
		return nil, errNoForward("Linear")
	}
	if grad.Rows() != l.outFeatures || grad.Cols() != l.input.Cols() {
		return nil, errGradShape("Linear", grad, tensor.New(l.outFeatures, l.input.Cols()))
	}

	dW, err := tensor.MatMulTrans(grad, l.input, false, true)
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	if err := l.weight.accumulate(dW); err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	if l.bias != nil {
		db, err := grad.Sum(tensor.AxisCols)
		if err != nil {
			return nil, fmt.Errorf("Linear: %w", err)
		}
		if err := l.bias.accumulate(db); err != nil {
			return nil, fmt.Errorf("Linear: %w", err)
		}
	}

	dx, err := tensor.MatMulTrans(l.weight.Value(), grad, true, false)
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	return dx, nil
}

// ZeroGrad resets dW and db.
func (l *Linear) ZeroGrad() {
	for _, p := range l.Params() {
		p.ZeroGrad()
	}
}

// Accept dispatches to v.VisitLinear.
func (l *Linear) Accept(v Visitor) error {
	return v.VisitLinear(l)
}

// addBiasColumns adds the column vector b to every column of y.
func addBiasColumns(y, b *tensor.Tensor) error {
	if y.Cols() == 0 {
		return nil
	}
	bb, err := b.BroadcastCol(y.Cols())
	if err != nil {
		return err
	}
	return y.AddInPlace(bb)
}
