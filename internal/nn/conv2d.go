package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Forward unfolds the input with im2col and multiplies it by the flattened
// kernel bank, turning the whole convolution into a single GEMM:
//
//	columns = Im2Col(x)              [in_channels*KH*KW, HOut*WOut]
//	y       = W·columns + b          [out_channels, HOut*WOut]
//
// Input shape:  [in_channels, height, width]
// Output shape: [out_channels, out_height, out_width]
//
// Where out_height = (height + 2*PH - KH) / SH + 1 (analogously for width).
//
// Weights are stored as [out_channels, in_channels*KH*KW] and initialized with
// He normal initialization; biases are zero.
//
// Example:
//
//	conv, err := nn.NewConv2D(1, 6, conv.Square(5, 1, 2), true, rng)
//	out, err := conv.ForwardImage(img) // [1, 28, 28] -> [6, 28, 28]
type Conv2D struct {
	modeFlag
	inChannels  int
	outChannels int
	params      conv.Params
	weight      *Parameter
	bias        *Parameter

	// Forward cache.
	columns    *tensor.Tensor
	inH, inW   int
	outH, outW int
}

// NewConv2D creates a new Conv2D layer.
//
// Parameters:
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (filters)
//   - p: Kernel, stride and padding
//   - bias: Whether the layer learns one bias per output channel
//   - rng: Random context for weight initialization; nil leaves weights at zero
func NewConv2D(inChannels, outChannels int, p conv.Params, bias bool, rng *tensor.RNG) (*Conv2D, error) {
	if inChannels <= 0 || outChannels <= 0 {
		return nil, fmt.Errorf("Conv2D: %w: channels %d -> %d must be positive",
			tensor.ErrInvalidArgument, inChannels, outChannels)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}

	fanIn := inChannels * p.KernelH * p.KernelW
	w := tensor.New(outChannels, fanIn)
	if rng != nil {
		var err error
		if w, err = HeNormal(outChannels, fanIn, fanIn, rng); err != nil {
			return nil, err
		}
	}

	c := &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		params:      p,
		weight:      NewParameter("weight", w),
	}
	if bias {
		c.bias = NewParameter("bias", tensor.New(outChannels, 1))
	}
	return c, nil
}

// Name returns "Conv2D".
func (c *Conv2D) Name() string { return "Conv2D" }

// InChannels returns the number of input channels.
func (c *Conv2D) InChannels() int { return c.inChannels }

// OutChannels returns the number of output channels.
func (c *Conv2D) OutChannels() int { return c.outChannels }

// ConvParams returns the window parameters.
func (c *Conv2D) ConvParams() conv.Params { return c.params }

// Weight returns the kernel bank parameter, shaped [out_channels, in_channels*KH*KW].
func (c *Conv2D) Weight() *Parameter { return c.weight }

// Bias returns the bias parameter, or nil when bias is disabled.
func (c *Conv2D) Bias() *Parameter { return c.bias }

// HasBias reports whether the layer learns a bias.
func (c *Conv2D) HasBias() bool { return c.bias != nil }

// Params returns the trainable parameters (weight, then bias if enabled).
func (c *Conv2D) Params() []*Parameter {
	if c.bias == nil {
		return []*Parameter{c.weight}
	}
	return []*Parameter{c.weight, c.bias}
}

// ForwardImage convolves x with the kernel bank.
func (c *Conv2D) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	if x.Channels() != c.inChannels {
		return nil, fmt.Errorf("Conv2D: %w: input %s, want %d channels",
			tensor.ErrDimensionMismatch, x.ShapeString(), c.inChannels)
	}

	hOut, wOut, err := c.params.OutputSize(x.Height(), x.Width())
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	columns, err := conv.Im2Col(x, c.params)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}

	y, err := tensor.MatMul(c.weight.Value(), columns)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	if c.bias != nil {
		if err := addBiasColumns(y, c.bias.Value()); err != nil {
			return nil, fmt.Errorf("Conv2D: %w", err)
		}
	}

	out, err := tensor.ImageFromMatrix(y, c.outChannels, hOut, wOut)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}

	c.columns = columns
	c.inH, c.inW = x.Height(), x.Width()
	c.outH, c.outW = hOut, wOut
	return out, nil
}

// BackwardImage computes:
//
//	G   = grad as [out_channels, HOut*WOut]
//	dW += G·columnsᵀ
//	db += Σ_columns G
//	dx  = Col2Im(Wᵀ·G)
func (c *Conv2D) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	if c.columns == nil {
		return nil, errNoForward("Conv2D")
	}
	if grad.Channels() != c.outChannels || grad.Height() != c.outH || grad.Width() != c.outW {
		return nil, errGradImageShape("Conv2D", grad, shapeString(c.outChannels, c.outH, c.outW))
	}

	g := grad.ToMatrix()
	dW, err := tensor.MatMulTrans(g, c.columns, false, true)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	if err := c.weight.accumulate(dW); err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	if c.bias != nil {
		db, err := g.Sum(tensor.AxisCols)
		if err != nil {
			return nil, fmt.Errorf("Conv2D: %w", err)
		}
		if err := c.bias.accumulate(db); err != nil {
			return nil, fmt.Errorf("Conv2D: %w", err)
		}
	}

	dCols, err := tensor.MatMulTrans(c.weight.Value(), g, true, false)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	dx, err := conv.Col2Im(dCols, c.inChannels, c.inH, c.inW, c.params)
	if err != nil {
		return nil, fmt.Errorf("Conv2D: %w", err)
	}
	return dx, nil
}

// ZeroGrad resets dW and db.
func (c *Conv2D) ZeroGrad() {
	for _, p := range c.Params() {
		p.ZeroGrad()
	}
}

// Accept dispatches to v.VisitConv2D.
func (c *Conv2D) Accept(v Visitor) error {
	return v.VisitConv2D(c)
}
