package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/tensor"
)

// AvgPool2D is a 2D average pooling layer.
//
// Every window is averaged over KH*KW elements; padded positions count as
// zeros in the average. Backward spreads grad/(KH*KW) over every element of
// the window through the col2im scatter-add.
type AvgPool2D struct {
	stateless
	params   conv.Params
	inShape  [3]int
	outShape [3]int
	ready    bool
}

// NewAvgPool2D creates a new 2D average pooling layer.
func NewAvgPool2D(p conv.Params) (*AvgPool2D, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("AvgPool2D: %w", err)
	}
	return &AvgPool2D{params: p}, nil
}

// Name returns "AvgPool2D".
func (a *AvgPool2D) Name() string { return "AvgPool2D" }

// ConvParams returns the window parameters.
func (a *AvgPool2D) ConvParams() conv.Params { return a.params }

// ForwardImage averages every window.
func (a *AvgPool2D) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	C := x.Channels()
	hOut, wOut, err := a.params.OutputSize(x.Height(), x.Width())
	if err != nil {
		return nil, fmt.Errorf("AvgPool2D: %w", err)
	}
	cols, err := conv.Im2Col(x, a.params)
	if err != nil {
		return nil, fmt.Errorf("AvgPool2D: %w", err)
	}

	window := a.params.KernelH * a.params.KernelW
	n := hOut * wOut
	out := tensor.NewImage(C, hOut, wOut)
	src, dst := cols.Data(), out.Data()
	scale := 1 / float32(window)
	for c := 0; c < C; c++ {
		acc := dst[c*n : (c+1)*n]
		for r := c * window; r < (c+1)*window; r++ {
			for j, v := range src[r*n : (r+1)*n] {
				acc[j] += v
			}
		}
		for j := range acc {
			acc[j] *= scale
		}
	}

	a.inShape = [3]int{C, x.Height(), x.Width()}
	a.outShape = [3]int{C, hOut, wOut}
	a.ready = true
	return out, nil
}

// BackwardImage distributes each output gradient evenly over its window.
func (a *AvgPool2D) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	if !a.ready {
		return nil, errNoForward("AvgPool2D")
	}
	C, hOut, wOut := a.outShape[0], a.outShape[1], a.outShape[2]
	if grad.Channels() != C || grad.Height() != hOut || grad.Width() != wOut {
		return nil, errGradImageShape("AvgPool2D", grad, shapeString(C, hOut, wOut))
	}

	window := a.params.KernelH * a.params.KernelW
	n := hOut * wOut
	scale := 1 / float32(window)
	cols := tensor.New(C*window, n)
	g, dst := grad.Data(), cols.Data()
	for c := 0; c < C; c++ {
		gc := g[c*n : (c+1)*n]
		for r := c * window; r < (c+1)*window; r++ {
			row := dst[r*n : (r+1)*n]
			for j, v := range gc {
				row[j] = v * scale
			}
		}
	}

	dx, err := conv.Col2Im(cols, C, a.inShape[1], a.inShape[2], a.params)
	if err != nil {
		return nil, fmt.Errorf("AvgPool2D: %w", err)
	}
	return dx, nil
}
