package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

func TestFlatten(t *testing.T) {
	f := NewFlatten()
	_, err := f.UnflattenGrad(tensor.New(4, 1))
	assert.ErrorIs(t, err, tensor.ErrUninitialized)

	img := tensor.NewImage(2, 2, 3)
	for i := range img.Data() {
		img.Data()[i] = float32(i)
	}
	v, err := f.FlattenImage(img)
	require.NoError(t, err)
	assert.Equal(t, 12, v.Rows())
	assert.Equal(t, img.At(1, 0, 2), v.At((1*2+0)*3+2, 0))

	back, err := f.UnflattenGrad(v)
	require.NoError(t, err)
	assert.True(t, back.AllClose(img, 0))

	_, err = f.UnflattenGrad(tensor.New(11, 1))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}
