package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// LocalResponseNorm normalizes each activation by the energy of the
// neighboring channels at the same spatial position (AlexNet, section 3.3):
//
//	s_c = k + α Σ_{j∈N(c)} x_j²      N(c) = [max(0, c-n/2), min(C-1, c+n/2)]
//	y_c = x_c · s_c^{-β}
//
// The backward pass differentiates through the neighborhood sum:
//
//	dx_j = g_j s_j^{-β} − 2αβ x_j Σ_{i∈N(j)} g_i x_i s_i^{-β-1}
type LocalResponseNorm struct {
	stateless
	size  int
	alpha float64
	beta  float64
	k     float64

	input *tensor.Image
	scale []float64 // s per element, CHW
}

// NewLocalResponseNorm creates an LRN layer over a window of size channels.
// AlexNet uses size=5, alpha=1e-4, beta=0.75, k=2 (see DefaultLocalResponseNorm).
func NewLocalResponseNorm(size int, alpha, beta, k float32) (*LocalResponseNorm, error) {
	if size <= 0 {
		return nil, fmt.Errorf("LocalResponseNorm: %w: size %d must be positive", tensor.ErrInvalidArgument, size)
	}
	// k > 0 keeps s positive, so s^{-β} stays finite on an all-zero neighborhood.
	if !(k > 0) || !(alpha >= 0) || !(beta >= 0) {
		return nil, fmt.Errorf("LocalResponseNorm: %w: need k > 0, alpha >= 0, beta >= 0 (got k=%g alpha=%g beta=%g)",
			tensor.ErrInvalidArgument, k, alpha, beta)
	}
	return &LocalResponseNorm{size: size, alpha: float64(alpha), beta: float64(beta), k: float64(k)}, nil
}

// DefaultLocalResponseNorm returns LRN with the AlexNet hyperparameters.
func DefaultLocalResponseNorm() *LocalResponseNorm {
	return &LocalResponseNorm{size: 5, alpha: 1e-4, beta: 0.75, k: 2}
}

// Name returns "LocalResponseNorm".
func (l *LocalResponseNorm) Name() string { return "LocalResponseNorm" }

func (l *LocalResponseNorm) window(c, channels int) (int, int) {
	return max(0, c-l.size/2), min(channels-1, c+l.size/2)
}

// ForwardImage normalizes x across channels.
func (l *LocalResponseNorm) ForwardImage(x *tensor.Image) (*tensor.Image, error) {
	C, plane := x.Channels(), x.Height()*x.Width()
	out := tensor.NewImage(C, x.Height(), x.Width())
	scale := make([]float64, x.Len())
	src, dst := x.Data(), out.Data()

	parallel.For(C, func(c int) {
		lo, hi := l.window(c, C)
		for p := 0; p < plane; p++ {
			var sq float64
			for j := lo; j <= hi; j++ {
				v := float64(src[j*plane+p])
				sq += v * v
			}
			s := l.k + l.alpha*sq
			idx := c*plane + p
			scale[idx] = s
			dst[idx] = float32(float64(src[idx]) * math.Pow(s, -l.beta))
		}
	}, perChannel())

	l.input = x.Clone()
	l.scale = scale
	return out, nil
}

// BackwardImage applies the chain rule through the neighborhood sums.
func (l *LocalResponseNorm) BackwardImage(grad *tensor.Image) (*tensor.Image, error) {
	if l.input == nil {
		return nil, errNoForward("LocalResponseNorm")
	}
	if !grad.SameShape(l.input) {
		return nil, errGradImageShape("LocalResponseNorm", grad, l.input.ShapeString())
	}

	C, plane := l.input.Channels(), l.input.Height()*l.input.Width()
	x, g := l.input.Data(), grad.Data()

	// t_i = g_i x_i s_i^{-β-1}, shared by every j whose neighborhood holds i.
	t := make([]float64, len(x))
	for i := range t {
		t[i] = float64(g[i]) * float64(x[i]) * math.Pow(l.scale[i], -l.beta-1)
	}

	dx := tensor.NewImage(C, l.input.Height(), l.input.Width())
	d := dx.Data()
	coef := 2 * l.alpha * l.beta

	parallel.For(C, func(c int) {
		lo, hi := l.window(c, C)
		for p := 0; p < plane; p++ {
			var cross float64
			for i := lo; i <= hi; i++ {
				cross += t[i*plane+p]
			}
			idx := c*plane + p
			direct := float64(g[idx]) * math.Pow(l.scale[idx], -l.beta)
			d[idx] = float32(direct - coef*float64(x[idx])*cross)
		}
	}, perChannel())

	return dx, nil
}
