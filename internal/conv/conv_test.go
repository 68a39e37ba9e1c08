package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

// rampImage returns a 1xHxW image with pixel (h, w) = h + w.
func rampImage(h, w int) *tensor.Image {
	img := tensor.NewImage(1, h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			img.Set(0, i, j, float32(i+j))
		}
	}
	return img
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name       string
		p          Params
		h, w       int
		wantH      int
		wantW      int
		wantErrMsg bool
	}{
		{"valid", Square(3, 1, 0), 5, 5, 3, 3, false},
		{"same padding", Square(3, 1, 1), 5, 5, 5, 5, false},
		{"stride 2", Square(3, 2, 0), 5, 5, 2, 2, false},
		{"rectangular", Params{KernelH: 1, KernelW: 3, StrideH: 1, StrideW: 2, PadW: 1}, 4, 6, 4, 3, false},
		{"lenet c1", Square(5, 1, 2), 28, 28, 28, 28, false},
		{"window too large", Square(7, 1, 0), 5, 5, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, w, err := tt.p.OutputSize(tt.h, tt.w)
			if tt.wantErrMsg {
				assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantW, w)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Square(2, 2, 0).Validate())
	assert.ErrorIs(t, Square(0, 1, 0).Validate(), tensor.ErrInvalidArgument)
	assert.ErrorIs(t, Square(2, 0, 0).Validate(), tensor.ErrInvalidArgument)
	assert.ErrorIs(t, Square(2, 1, -1).Validate(), tensor.ErrInvalidArgument)
}

func TestIm2Col_Ramp(t *testing.T) {
	cols, err := Im2Col(rampImage(5, 5), Square(3, 2, 0))
	require.NoError(t, err)

	want := tensor.MustFromRows([][]float32{
		{0, 2, 2, 4},
		{1, 3, 3, 5},
		{2, 4, 4, 6},
		{1, 3, 3, 5},
		{2, 4, 4, 6},
		{3, 5, 5, 7},
		{2, 4, 4, 6},
		{3, 5, 5, 7},
		{4, 6, 6, 8},
	})
	assert.True(t, cols.Equal(want), "got %v", cols)
}

func TestIm2Col_PaddingIsZero(t *testing.T) {
	img := tensor.NewImage(1, 2, 2)
	for i := range img.Data() {
		img.Data()[i] = 1
	}
	cols, err := Im2Col(img, Square(3, 1, 1))
	require.NoError(t, err)
	require.Equal(t, 9, cols.Rows())
	require.Equal(t, 4, cols.Cols())

	// Each 3x3 window over a padded 2x2 image sees exactly 4 real pixels.
	s, err := cols.Sum(tensor.AxisRows)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 4, 4, 4}, s.Data())
}

func TestIm2Col_MultiChannelRowOrder(t *testing.T) {
	img := tensor.NewImage(2, 3, 3)
	for i := range img.Data() {
		img.Data()[i] = float32(i)
	}
	p := Square(2, 1, 0)
	cols, err := Im2Col(img, p)
	require.NoError(t, err)
	require.Equal(t, 2*2*2, cols.Rows())

	// Row (c*KH+ki)*KW+kj, column oh*WOut+ow.
	for c := 0; c < 2; c++ {
		for ki := 0; ki < 2; ki++ {
			for kj := 0; kj < 2; kj++ {
				for oh := 0; oh < 2; oh++ {
					for ow := 0; ow < 2; ow++ {
						assert.Equal(t, img.At(c, oh+ki, ow+kj), cols.At((c*2+ki)*2+kj, oh*2+ow))
					}
				}
			}
		}
	}
}

func TestCol2Im_CoverageCount(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"overlapping", Square(3, 1, 1)},
		{"strided", Square(3, 2, 0)},
		{"disjoint", Square(2, 2, 0)},
		{"rectangular", Params{KernelH: 2, KernelW: 3, StrideH: 1, StrideW: 2, PadH: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const C, H, W = 2, 5, 5
			ones := tensor.NewImage(C, H, W)
			for i := range ones.Data() {
				ones.Data()[i] = 1
			}
			coverage, err := Col2Im(mustIm2Col(t, ones, tt.p), C, H, W, tt.p)
			require.NoError(t, err)

			img := tensor.NewImage(C, H, W)
			for i := range img.Data() {
				img.Data()[i] = float32(i%7) - 3
			}
			got, err := Col2Im(mustIm2Col(t, img, tt.p), C, H, W, tt.p)
			require.NoError(t, err)

			for i, v := range img.Data() {
				assert.Equal(t, v*coverage.Data()[i], got.Data()[i], "pixel %d", i)
			}
		})
	}
}

func TestCol2Im_DisjointIsInverse(t *testing.T) {
	img := rampImage(4, 4)
	p := Square(2, 2, 0)
	back, err := Col2Im(mustIm2Col(t, img, p), 1, 4, 4, p)
	require.NoError(t, err)
	assert.True(t, back.AllClose(img, 0))
}

func TestCol2Im_ShapeMismatch(t *testing.T) {
	_, err := Col2Im(tensor.New(4, 4), 1, 5, 5, Square(3, 1, 0))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestCol2ImAdd_Accumulates(t *testing.T) {
	img := rampImage(3, 3)
	p := Square(3, 1, 0)
	cols := mustIm2Col(t, img, p)

	dst := img.Clone()
	require.NoError(t, Col2ImAdd(dst, cols, p))
	for i, v := range img.Data() {
		assert.Equal(t, 2*v, dst.Data()[i])
	}
}

func mustIm2Col(t *testing.T, img *tensor.Image, p Params) *tensor.Tensor {
	t.Helper()
	cols, err := Im2Col(img, p)
	require.NoError(t, err)
	return cols
}

func BenchmarkIm2Col(b *testing.B) {
	img := tensor.NewImage(16, 32, 32)
	p := Square(3, 1, 1)
	for i := 0; i < b.N; i++ {
		_, _ = Im2Col(img, p)
	}
}
