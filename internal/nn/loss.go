package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/convnet/internal/tensor"
)

// Loss scores a prediction against a label and drives the backward pass of
// the model it is bound to.
type Loss interface {
	// Compute returns the scalar loss and caches what Backward needs.
	Compute(output, label *tensor.Tensor) (float32, error)

	// Backward feeds dLoss/dOutput into the bound model.
	Backward() error

	// Prediction returns the prediction seen by the last Compute.
	Prediction() *tensor.Tensor
}

// Probability floor applied before taking logarithms in CrossEntropyLoss.
const probFloor = 1e-7

// CrossEntropyLoss combines softmax and negative log-likelihood.
//
// Compute applies a column-wise softmax to the logits and returns
//
//	L = -(1/k) Σ_columns Σ_rows y · log(clamp(p, 1e-7, 1))
//
// for k columns (samples). Backward sends (p - y)/k into the model, which is
// the gradient w.r.t. the logits. Models trained with this loss should end in
// raw logits; a trailing Softmax layer would apply softmax twice.
//
// Clamping keeps the loss finite when a class receives zero probability.
type CrossEntropyLoss struct {
	model *Module
	pred  *tensor.Tensor
	label *tensor.Tensor
}

// NewCrossEntropyLoss binds a cross-entropy loss to model.
func NewCrossEntropyLoss(model *Module) *CrossEntropyLoss {
	return &CrossEntropyLoss{model: model}
}

// Compute returns the mean cross-entropy between softmax(logits) and label.
func (c *CrossEntropyLoss) Compute(logits, label *tensor.Tensor) (float32, error) {
	if !logits.SameShape(label) {
		return 0, fmt.Errorf("CrossEntropyLoss: %w: logits %dx%d, label %dx%d",
			tensor.ErrDimensionMismatch, logits.Rows(), logits.Cols(), label.Rows(), label.Cols())
	}
	if logits.Cols() == 0 {
		return 0, fmt.Errorf("CrossEntropyLoss: %w: empty batch", tensor.ErrInvalidArgument)
	}

	pred := SoftmaxColumns(logits)
	var entropy float64
	for i, y := range label.Data() {
		if y == 0 {
			continue
		}
		p := min(max(float64(pred.Data()[i]), probFloor), 1)
		entropy -= float64(y) * math.Log(p)
	}

	c.pred = pred
	c.label = label.Clone()
	return float32(entropy / float64(logits.Cols())), nil
}

// Backward drives model.Backward with (prediction - label) / columns.
func (c *CrossEntropyLoss) Backward() error {
	if c.pred == nil {
		return fmt.Errorf("CrossEntropyLoss: %w: backward called before compute", tensor.ErrUninitialized)
	}
	grad, err := tensor.Sub(c.pred, c.label)
	if err != nil {
		return fmt.Errorf("CrossEntropyLoss: %w", err)
	}
	if k := grad.Cols(); k > 1 {
		grad.ScaleInPlace(1 / float32(k))
	}
	return c.model.Backward(grad)
}

// Prediction returns the softmax probabilities of the last Compute.
func (c *CrossEntropyLoss) Prediction() *tensor.Tensor {
	return c.pred
}

// MSELoss computes the mean squared error between output and target:
//
//	L = (1/n) Σ (output - target)²
//
// over all n elements. Backward sends 2(output - target)/n into the model.
type MSELoss struct {
	model  *Module
	output *tensor.Tensor
	diff   *tensor.Tensor
}

// NewMSELoss binds a mean squared error loss to model.
func NewMSELoss(model *Module) *MSELoss {
	return &MSELoss{model: model}
}

// Compute returns the mean squared error.
func (l *MSELoss) Compute(output, target *tensor.Tensor) (float32, error) {
	diff, err := tensor.Sub(output, target)
	if err != nil {
		return 0, fmt.Errorf("MSELoss: %w", err)
	}
	if diff.Len() == 0 {
		return 0, fmt.Errorf("MSELoss: %w: empty output", tensor.ErrInvalidArgument)
	}
	var sq float64
	for _, v := range diff.Data() {
		sq += float64(v) * float64(v)
	}
	l.output = output.Clone()
	l.diff = diff
	return float32(sq / float64(diff.Len())), nil
}

// Backward drives model.Backward with 2(output - target)/n.
func (l *MSELoss) Backward() error {
	if l.diff == nil {
		return fmt.Errorf("MSELoss: %w: backward called before compute", tensor.ErrUninitialized)
	}
	return l.model.Backward(l.diff.Scale(2 / float32(l.diff.Len())))
}

// Prediction returns the output seen by the last Compute.
func (l *MSELoss) Prediction() *tensor.Tensor {
	return l.output
}
