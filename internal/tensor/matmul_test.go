package tensor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withGEMM(t *testing.T, k GEMMKind) {
	t.Helper()
	prev := CurrentGEMM()
	SetGEMM(k)
	t.Cleanup(func() { SetGEMM(prev) })
}

func TestMatMul(t *testing.T) {
	for _, kind := range []GEMMKind{GEMMNaive, GEMMBLAS} {
		t.Run(kind.String(), func(t *testing.T) {
			withGEMM(t, kind)

			a := MustFromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
			b := MustFromRows([][]float32{{7, 8}, {9, 10}, {11, 12}})
			c, err := MatMul(a, b)
			require.NoError(t, err)
			assert.Equal(t, []float32{58, 64, 139, 154}, c.Data())

			_, err = MatMul(a, a)
			assert.ErrorIs(t, err, ErrDimensionMismatch)
		})
	}
}

func TestMatMul_ZeroInner(t *testing.T) {
	for _, kind := range []GEMMKind{GEMMNaive, GEMMBLAS} {
		withGEMM(t, kind)
		c, err := MatMul(New(3, 0), New(0, 2))
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 6), c.Data())
	}
}

func TestMatMulTrans(t *testing.T) {
	rng := NewRNG(7)
	a, err := Normal(4, 3, 0, 1, rng)
	require.NoError(t, err)
	b, err := Normal(4, 5, 0, 1, rng)
	require.NoError(t, err)
	c, err := Normal(6, 3, 0, 1, rng)
	require.NoError(t, err)
	d, err := Normal(6, 4, 0, 1, rng)
	require.NoError(t, err)

	tests := []struct {
		name           string
		x, y           *Tensor
		transA, transB bool
		wantX, wantY   *Tensor
	}{
		{"trans-a", a, b, true, false, a.Transpose(), b},
		{"trans-b", a, c, false, true, a, c.Transpose()},
		{"both", a, d, true, true, a.Transpose(), d.Transpose()},
	}

	approx := cmpopts.EquateApprox(1e-5, 1e-5)
	for _, kind := range []GEMMKind{GEMMNaive, GEMMBLAS} {
		for _, tt := range tests {
			t.Run(kind.String()+"/"+tt.name, func(t *testing.T) {
				withGEMM(t, kind)

				want, err := MatMul(tt.wantX, tt.wantY)
				require.NoError(t, err)
				got, err := MatMulTrans(tt.x, tt.y, tt.transA, tt.transB)
				require.NoError(t, err)
				assert.Equal(t, want.Rows(), got.Rows())
				assert.Equal(t, want.Cols(), got.Cols())
				assert.Empty(t, cmp.Diff(want.Data(), got.Data(), approx))
			})
		}
	}

	_, err = MatMulTrans(a, b, false, true)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMatMul_BackendsAgree(t *testing.T) {
	rng := NewRNG(11)
	a, err := Normal(37, 53, 0, 1, rng)
	require.NoError(t, err)
	b, err := Normal(53, 29, 0, 1, rng)
	require.NoError(t, err)

	withGEMM(t, GEMMNaive)
	naive, err := MatMul(a, b)
	require.NoError(t, err)

	SetGEMM(GEMMBLAS)
	blas, err := MatMul(a, b)
	require.NoError(t, err)

	assert.True(t, naive.AllClose(blas, 1e-4))
}

func TestMatMul_Associative(t *testing.T) {
	rng := NewRNG(3)
	a, _ := Uniform(6, 8, -1, 1, rng)
	b, _ := Uniform(8, 5, -1, 1, rng)
	c, _ := Uniform(5, 4, -1, 1, rng)

	ab, err := MatMul(a, b)
	require.NoError(t, err)
	left, err := MatMul(ab, c)
	require.NoError(t, err)

	bc, err := MatMul(b, c)
	require.NoError(t, err)
	right, err := MatMul(a, bc)
	require.NoError(t, err)

	assert.True(t, left.AllClose(right, 1e-4))
}

func TestParseGEMM(t *testing.T) {
	k, err := ParseGEMM("naive")
	require.NoError(t, err)
	assert.Equal(t, GEMMNaive, k)

	k, err = ParseGEMM("")
	require.NoError(t, err)
	assert.Equal(t, GEMMBLAS, k)

	_, err = ParseGEMM("cuda")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func BenchmarkMatMul(b *testing.B) {
	rng := NewRNG(1)
	x, _ := Normal(256, 256, 0, 1, rng)
	y, _ := Normal(256, 256, 0, 1, rng)
	prev := CurrentGEMM()
	defer SetGEMM(prev)

	for _, kind := range []GEMMKind{GEMMNaive, GEMMBLAS} {
		b.Run(kind.String(), func(b *testing.B) {
			SetGEMM(kind)
			for i := 0; i < b.N; i++ {
				_, _ = MatMul(x, y)
			}
		})
	}
}
