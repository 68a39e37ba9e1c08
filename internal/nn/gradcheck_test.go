package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/convnet/internal/tensor"
)

// fdSettings uses a central difference with a step large enough for float32.
var fdSettings = &fd.Settings{Formula: fd.Central, Step: 1e-2}

// numericGrad differentiates loss() w.r.t. every element of data using finite
// differences. data is restored before returning.
func numericGrad(data []float32, loss func() float64) []float64 {
	orig := append([]float32(nil), data...)
	x := make([]float64, len(data))
	for i, v := range data {
		x[i] = float64(v)
	}
	g := fd.Gradient(nil, func(p []float64) float64 {
		for i, v := range p {
			data[i] = float32(v)
		}
		return loss()
	}, x, fdSettings)
	copy(data, orig)
	return g
}

// dot returns Σ a⊙b, the scalar probe loss used by the gradient checks.
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func requireGradClose(t *testing.T, want []float64, got []float32, tol float64, what string) {
	t.Helper()
	require.Len(t, got, len(want), what)
	for i := range want {
		require.InDelta(t, want[i], float64(got[i]), tol*(1+abs(want[i])), "%s[%d]", what, i)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func randTensor(t *testing.T, rows, cols int, seed uint64) *tensor.Tensor {
	t.Helper()
	x, err := tensor.Uniform(rows, cols, -1, 1, tensor.NewRNG(seed))
	require.NoError(t, err)
	return x
}

func randImage(t *testing.T, c, h, w int, seed uint64) *tensor.Image {
	t.Helper()
	x := randTensor(t, c, h*w, seed)
	img, err := tensor.ImageFromMatrix(x, c, h, w)
	require.NoError(t, err)
	return img
}
