package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

func TestLRN_SingleChannel(t *testing.T) {
	l, err := NewLocalResponseNorm(5, 1, 0.5, 1)
	require.NoError(t, err)
	x, err := tensor.ImageFromSlice(1, 1, 2, []float32{0, 3})
	require.NoError(t, err)
	y, err := l.ForwardImage(x)
	require.NoError(t, err)
	// y = x / sqrt(1 + x²)
	assert.InDeltaSlice(t, []float32{0, 3 / float32(3.16227766)}, y.Data(), 1e-6)
}

func TestLRN_NeighborhoodIsInclusive(t *testing.T) {
	l, err := NewLocalResponseNorm(3, 1, 1, 1)
	require.NoError(t, err)
	x, err := tensor.ImageFromSlice(3, 1, 1, []float32{1, 2, 3})
	require.NoError(t, err)
	y, err := l.ForwardImage(x)
	require.NoError(t, err)
	// s = 1 + Σ neighbors²: c0 {0,1} -> 6, c1 {0,1,2} -> 15, c2 {1,2} -> 14.
	assert.InDeltaSlice(t, []float32{1.0 / 6, 2.0 / 15, 3.0 / 14}, y.Data(), 1e-6)
}

func TestLRN_GradCheck(t *testing.T) {
	l, err := NewLocalResponseNorm(3, 0.5, 0.75, 1)
	require.NoError(t, err)
	x := randImage(t, 5, 2, 2, 60)

	out, err := l.ForwardImage(x)
	require.NoError(t, err)
	probe := randImage(t, out.Channels(), out.Height(), out.Width(), 61)
	dx, err := l.BackwardImage(probe)
	require.NoError(t, err)

	loss := func() float64 {
		y, err := l.ForwardImage(x)
		require.NoError(t, err)
		return dot(y.Data(), probe.Data())
	}
	requireGradClose(t, numericGrad(x.Data(), loss), dx.Data(), 2e-2, "dx")
}

func TestLRN_Errors(t *testing.T) {
	bad := []struct {
		size           int
		alpha, beta, k float32
	}{
		{size: 0, alpha: 1, beta: 1, k: 1},
		{size: 5, alpha: 1e-4, beta: 0.75, k: 0},
		{size: 5, alpha: 1, beta: 0.75, k: -1},
		{size: 5, alpha: -1, beta: 0.75, k: 2},
		{size: 5, alpha: 1e-4, beta: -0.5, k: 2},
		{size: 5, alpha: 1e-4, beta: 0.75, k: float32(math.NaN())},
	}
	for _, c := range bad {
		_, err := NewLocalResponseNorm(c.size, c.alpha, c.beta, c.k)
		assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "%+v", c)
	}

	l := DefaultLocalResponseNorm()
	_, err := l.BackwardImage(tensor.NewImage(1, 1, 1))
	assert.ErrorIs(t, err, tensor.ErrUninitialized)

	_, err = l.ForwardImage(tensor.NewImage(2, 2, 2))
	require.NoError(t, err)
	_, err = l.BackwardImage(tensor.NewImage(2, 1, 2))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestLRN_ZeroInputStaysFinite(t *testing.T) {
	l, err := NewLocalResponseNorm(5, 1e-4, 0.75, 1e-3)
	require.NoError(t, err)

	// All-zero activations are common after ReLU.
	y, err := l.ForwardImage(tensor.NewImage(3, 2, 2))
	require.NoError(t, err)
	assert.False(t, y.Flatten().HasNaNOrInf())
	assert.Equal(t, make([]float32, 12), y.Data())

	g := randImage(t, 3, 2, 2, 62)
	dx, err := l.BackwardImage(g)
	require.NoError(t, err)
	assert.False(t, dx.Flatten().HasNaNOrInf())
}
