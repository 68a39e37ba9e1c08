package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	l, err := NewLinear(3, 2, true, nil)
	require.NoError(t, err)
	require.NoError(t, l.Weight().Set(tensor.MustFromRows([][]float32{{1, 2, 3}, {4, 5, 6}})))
	require.NoError(t, l.Bias().Set(tensor.MustFromRows([][]float32{{0.5}, {-1}})))

	x := tensor.MustFromRows([][]float32{{1, 0}, {1, 1}, {1, 2}})
	y, err := l.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{6.5, 8.5, 14, 16}, y.Data())

	_, err = l.Forward(tensor.New(2, 1))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestLinear_Init(t *testing.T) {
	l, err := NewLinear(64, 32, true, tensor.NewRNG(1))
	require.NoError(t, err)
	w := l.Weight().Value()
	assert.Equal(t, 32, w.Rows())
	assert.Equal(t, 64, w.Cols())
	assert.NotZero(t, w.MaxValue())
	assert.Zero(t, l.Bias().Value().ReduceSum())
	assert.Len(t, l.Params(), 2)

	_, err = NewLinear(0, 3, true, nil)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestLinear_GradCheck(t *testing.T) {
	l, err := NewLinear(4, 3, true, tensor.NewRNG(2))
	require.NoError(t, err)
	x := randTensor(t, 4, 2, 3)
	probe := randTensor(t, 3, 2, 4)

	loss := func() float64 {
		y, err := l.Forward(x)
		require.NoError(t, err)
		return dot(y.Data(), probe.Data())
	}

	_, err = l.Forward(x)
	require.NoError(t, err)
	dx, err := l.Backward(probe)
	require.NoError(t, err)

	requireGradClose(t, numericGrad(x.Data(), loss), dx.Data(), 1e-2, "dx")
	requireGradClose(t, numericGrad(l.Weight().Value().Data(), loss), l.Weight().Grad().Data(), 1e-2, "dW")
	requireGradClose(t, numericGrad(l.Bias().Value().Data(), loss), l.Bias().Grad().Data(), 1e-2, "db")
}

func TestLinear_GradientsAccumulate(t *testing.T) {
	l, err := NewLinear(2, 1, true, tensor.NewRNG(5))
	require.NoError(t, err)
	x := tensor.MustFromRows([][]float32{{1}, {2}})
	g := tensor.MustFromRows([][]float32{{1}})

	assert.Nil(t, l.Weight().Grad(), "gradient is nil before the first backward")

	_, err = l.Forward(x)
	require.NoError(t, err)
	_, err = l.Backward(g)
	require.NoError(t, err)
	_, err = l.Backward(g)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, l.Weight().Grad().Data())
	assert.Equal(t, []float32{2}, l.Bias().Grad().Data())

	l.ZeroGrad()
	l.ZeroGrad()
	assert.Equal(t, []float32{0, 0}, l.Weight().Grad().Data())
	assert.Equal(t, []float32{0}, l.Bias().Grad().Data())
}

func TestLinear_NoBias(t *testing.T) {
	l, err := NewLinear(2, 2, false, nil)
	require.NoError(t, err)
	assert.False(t, l.HasBias())
	assert.Nil(t, l.Bias())
	assert.Len(t, l.Params(), 1)

	require.NoError(t, l.Weight().Set(tensor.Identity(2)))
	y, err := l.Forward(tensor.MustFromRows([][]float32{{3}, {4}}))
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, y.Data())
}

func TestLinear_BackwardErrors(t *testing.T) {
	l, err := NewLinear(2, 3, true, nil)
	require.NoError(t, err)

	_, err = l.Backward(tensor.New(3, 1))
	assert.ErrorIs(t, err, tensor.ErrUninitialized)

	_, err = l.Forward(tensor.New(2, 1))
	require.NoError(t, err)
	_, err = l.Backward(tensor.New(2, 1))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	assert.ErrorIs(t, l.Weight().Set(tensor.New(2, 2)), tensor.ErrDimensionMismatch)
}

func TestInit_StdClamped(t *testing.T) {
	// fanIn = 1 would give std = sqrt(2) without the clamp.
	w, err := HeNormal(200, 200, 1, tensor.NewRNG(3))
	require.NoError(t, err)
	s := w.Stats()
	assert.Less(t, s.Max, float32(1))
	assert.Greater(t, s.Min, float32(-1))

	x, err := XavierNormal(10, 10, 1<<30, 1<<30, tensor.NewRNG(3))
	require.NoError(t, err)
	assert.False(t, x.Equal(tensor.New(10, 10)), "std floor keeps weights non-zero")
}
