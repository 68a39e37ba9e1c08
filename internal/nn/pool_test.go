package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/tensor"
)

// spacedImage fills an image with a permutation of well separated values so
// finite differences never flip a max.
func spacedImage(c, h, w int) *tensor.Image {
	img := tensor.NewImage(c, h, w)
	n := img.Len()
	for i := range img.Data() {
		img.Data()[i] = float32((i*7)%n)*0.1 - float32(n)*0.05
	}
	return img
}

func TestMaxPool2D_Forward(t *testing.T) {
	img, err := tensor.ImageFromSlice(1, 4, 4, []float32{
		1, 3, 2, 1,
		4, 2, 0, 5,
		7, 1, 6, 6,
		0, 2, 6, 3,
	})
	require.NoError(t, err)

	m, err := NewMaxPool2D(conv.Square(2, 2, 0))
	require.NoError(t, err)
	out, err := m.ForwardImage(img)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 7, 6}, out.Data())

	grad, err := tensor.ImageFromSlice(1, 2, 2, []float32{10, 20, 30, 40})
	require.NoError(t, err)
	dx, err := m.BackwardImage(grad)
	require.NoError(t, err)
	assert.Equal(t, []float32{
		0, 0, 0, 0,
		10, 0, 0, 20,
		30, 0, 40, 0,
		0, 0, 0, 0,
	}, dx.Data(), "ties resolve to the first element of the window")
}

func TestMaxPool2D_PaddingNeverWins(t *testing.T) {
	img, err := tensor.ImageFromSlice(1, 2, 2, []float32{-4, -3, -2, -1})
	require.NoError(t, err)
	m, err := NewMaxPool2D(conv.Square(2, 1, 1))
	require.NoError(t, err)

	out, err := m.ForwardImage(img)
	require.NoError(t, err)
	assert.Equal(t, "1x3x3", out.ShapeString())
	assert.Equal(t, []float32{-4, -3, -3, -2, -1, -1, -2, -1, -1}, out.Data())
}

func TestMaxPool2D_OverlappingWindowsAdd(t *testing.T) {
	img, err := tensor.ImageFromSlice(1, 1, 3, []float32{0, 9, 0})
	require.NoError(t, err)
	m, err := NewMaxPool2D(conv.Params{KernelH: 1, KernelW: 2, StrideH: 1, StrideW: 1})
	require.NoError(t, err)
	_, err = m.ForwardImage(img)
	require.NoError(t, err)

	grad, err := tensor.ImageFromSlice(1, 1, 2, []float32{1, 2})
	require.NoError(t, err)
	dx, err := m.BackwardImage(grad)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 3, 0}, dx.Data())
}

func TestMaxPool2D_GradCheck(t *testing.T) {
	m, err := NewMaxPool2D(conv.Square(3, 2, 1))
	require.NoError(t, err)
	x := spacedImage(2, 5, 5)

	out, err := m.ForwardImage(x)
	require.NoError(t, err)
	probe := randImage(t, out.Channels(), out.Height(), out.Width(), 21)
	dx, err := m.BackwardImage(probe)
	require.NoError(t, err)

	loss := func() float64 {
		y, err := m.ForwardImage(x)
		require.NoError(t, err)
		return dot(y.Data(), probe.Data())
	}
	requireGradClose(t, numericGrad(x.Data(), loss), dx.Data(), 1e-2, "dx")
}

func TestAvgPool2D_Forward(t *testing.T) {
	img, err := tensor.ImageFromSlice(1, 2, 4, []float32{
		1, 3, 2, 2,
		5, 7, 4, 0,
	})
	require.NoError(t, err)
	a, err := NewAvgPool2D(conv.Square(2, 2, 0))
	require.NoError(t, err)
	out, err := a.ForwardImage(img)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 2}, out.Data())

	grad, err := tensor.ImageFromSlice(1, 1, 2, []float32{4, 8})
	require.NoError(t, err)
	dx, err := a.BackwardImage(grad)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 2, 2, 1, 1, 2, 2}, dx.Data())
}

func TestAvgPool2D_PaddingCountsAsZero(t *testing.T) {
	img, err := tensor.ImageFromSlice(1, 1, 1, []float32{4})
	require.NoError(t, err)
	a, err := NewAvgPool2D(conv.Square(2, 1, 1))
	require.NoError(t, err)
	out, err := a.ForwardImage(img)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1, 1}, out.Data())
}

func TestAvgPool2D_GradCheck(t *testing.T) {
	a, err := NewAvgPool2D(conv.Square(3, 1, 1))
	require.NoError(t, err)
	x := randImage(t, 2, 4, 4, 30)

	out, err := a.ForwardImage(x)
	require.NoError(t, err)
	probe := randImage(t, out.Channels(), out.Height(), out.Width(), 31)
	dx, err := a.BackwardImage(probe)
	require.NoError(t, err)

	loss := func() float64 {
		y, err := a.ForwardImage(x)
		require.NoError(t, err)
		return dot(y.Data(), probe.Data())
	}
	requireGradClose(t, numericGrad(x.Data(), loss), dx.Data(), 1e-2, "dx")
}

func TestPool_BackwardBeforeForward(t *testing.T) {
	m, err := NewMaxPool2D(conv.Square(2, 2, 0))
	require.NoError(t, err)
	_, err = m.BackwardImage(tensor.NewImage(1, 1, 1))
	assert.ErrorIs(t, err, tensor.ErrUninitialized)

	a, err := NewAvgPool2D(conv.Square(2, 2, 0))
	require.NoError(t, err)
	_, err = a.BackwardImage(tensor.NewImage(1, 1, 1))
	assert.ErrorIs(t, err, tensor.ErrUninitialized)

	_, err = NewMaxPool2D(conv.Square(0, 2, 0))
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}
