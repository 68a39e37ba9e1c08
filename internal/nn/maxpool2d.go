package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value in each
// window. MaxPool2D has no learnable parameters.
//
// Input shape:  [channels, height, width]
// Output shape: [channels, out_height, out_width]
//
// Padded positions never win: a window is evaluated over its in-bounds
// elements only. Ties resolve to the first element in row-major window order.
//
// Common configurations:
//   - 2x2 pool, stride=2: Reduces spatial dimensions by half (most common)
//   - 3x3 pool, stride=2: Overlapping pooling (AlexNet)
//
// Example:
//
//	pool, err := nn.NewMaxPool2D(conv.Square(2, 2, 0))
//	out, err := pool.ForwardImage(img) // [6, 28, 28] -> [6, 14, 14]
type MaxPool2D struct {
	stateless
	params conv.Params

	// argmax[i] is the flat input index selected for output i, or -1 when the
	// window lies entirely in padding.
	argmax   []int
	inShape  [3]int
	outShape [3]int
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D(p conv.Params) (*MaxPool2D, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("MaxPool2D: %w", err)
	}
	return &MaxPool2D{params: p}, nil
}

// Name returns "MaxPool2D".
func (m *MaxPool2D) Name() string { return "MaxPool2D" }

// ConvParams returns the window parameters.
func (m *MaxPool2D) ConvParams() conv.Params { return m.params }

// ForwardImage takes the maximum of every window and records its position.
func (m *MaxPool2D) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	C, H, W := x.Channels(), x.Height(), x.Width()
	hOut, wOut, err := m.params.OutputSize(H, W)
	if err != nil {
		return nil, fmt.Errorf("MaxPool2D: %w", err)
	}

	out := tensor.NewImage(C, hOut, wOut)
	argmax := make([]int, C*hOut*wOut)
	src, dst := x.Data(), out.Data()
	p := m.params

	parallel.For(C, func(c int) {
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				best := float32(math.Inf(-1))
				bestIdx := -1
				for ki := 0; ki < p.KernelH; ki++ {
					h := oh*p.StrideH + ki - p.PadH
					if h < 0 || h >= H {
						continue
					}
					for kj := 0; kj < p.KernelW; kj++ {
						w := ow*p.StrideW + kj - p.PadW
						if w < 0 || w >= W {
							continue
						}
						idx := (c*H+h)*W + w
						if bestIdx < 0 || src[idx] > best {
							best, bestIdx = src[idx], idx
						}
					}
				}
				o := (c*hOut+oh)*wOut + ow
				argmax[o] = bestIdx
				if bestIdx >= 0 {
					dst[o] = best
				}
			}
		}
	}, perChannel())

	m.argmax = argmax
	m.inShape = [3]int{C, H, W}
	m.outShape = [3]int{C, hOut, wOut}
	return out, nil
}

// BackwardImage routes each output gradient to the input element that won
// its window. Overlapping windows that picked the same element add up.
func (m *MaxPool2D) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	if m.argmax == nil {
		return nil, errNoForward("MaxPool2D")
	}
	if grad.Channels() != m.outShape[0] || grad.Height() != m.outShape[1] || grad.Width() != m.outShape[2] {
		return nil, errGradImageShape("MaxPool2D", grad, shapeString(m.outShape[0], m.outShape[1], m.outShape[2]))
	}

	dx := tensor.NewImage(m.inShape[0], m.inShape[1], m.inShape[2])
	g, d := grad.Data(), dx.Data()
	plane := m.outShape[1] * m.outShape[2]

	// argmax indices of channel c stay inside input plane c.
	parallel.For(m.outShape[0], func(c int) {
		for o := c * plane; o < (c+1)*plane; o++ {
			if idx := m.argmax[o]; idx >= 0 {
				d[idx] += g[o]
			}
		}
	}, perChannel())
	return dx, nil
}

// perChannel parallelizes over channels one plane per item.
func perChannel() parallel.Config {
	cfg := tensor.ParallelConfig()
	cfg.MinChunkSize = 1
	return cfg
}
