package tensor

import (
	"fmt"
	"sync/atomic"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/convnet/internal/parallel"
)

// GEMMKind selects the general matrix-multiply backend.
type GEMMKind int32

const (
	// GEMMBLAS delegates to gonum's single-precision BLAS.
	GEMMBLAS GEMMKind = iota
	// GEMMNaive is the portable row-parallel triple loop.
	GEMMNaive
)

func (k GEMMKind) String() string {
	switch k {
	case GEMMBLAS:
		return "blas"
	case GEMMNaive:
		return "naive"
	default:
		return fmt.Sprintf("GEMMKind(%d)", int32(k))
	}
}

// ParseGEMM maps "blas" or "naive" to a GEMMKind.
func ParseGEMM(s string) (GEMMKind, error) {
	switch s {
	case "blas", "":
		return GEMMBLAS, nil
	case "naive":
		return GEMMNaive, nil
	}
	return 0, invalid("ParseGEMM", "unknown gemm backend %q", s)
}

var gemmKind atomic.Int32

// SetGEMM selects the backend used by MatMul and MatMulTrans.
// Both backends agree within float32 rounding.
func SetGEMM(k GEMMKind) {
	gemmKind.Store(int32(k))
}

// CurrentGEMM returns the backend in effect.
func CurrentGEMM() GEMMKind {
	return GEMMKind(gemmKind.Load())
}

// MatMul returns the matrix product a·b.
// Returns ErrDimensionMismatch when a.Cols() != b.Rows().
//
// MatMul may run in parallel and must not be called from inside a parallel loop body.
func MatMul(a, b *Tensor) (*Tensor, error) {
	return MatMulTrans(a, b, false, false)
}

// MatMulTrans returns op(a)·op(b) where op transposes its operand when the
// corresponding flag is set. Backward passes use it to avoid materializing
// transposed weights.
func MatMulTrans(a, b *Tensor, transA, transB bool) (*Tensor, error) {
	m, k := a.rows, a.cols
	if transA {
		m, k = k, m
	}
	kb, n := b.rows, b.cols
	if transB {
		kb, n = n, kb
	}
	if k != kb {
		return nil, fmt.Errorf("MatMul: %w: inner dimensions %d and %d (op(a) %dx%d, op(b) %dx%d)",
			ErrDimensionMismatch, k, kb, m, k, kb, n)
	}

	out := New(m, n)
	if m == 0 || n == 0 || k == 0 {
		return out, nil
	}

	if CurrentGEMM() == GEMMBLAS {
		gemmBLAS(a, b, out, transA, transB)
		return out, nil
	}

	if transA {
		a = a.Transpose()
	}
	if transB {
		b = b.Transpose()
	}
	gemmNaive(a, b, out)
	return out, nil
}

func general(t *Tensor) blas32.General {
	return blas32.General{Rows: t.rows, Cols: t.cols, Stride: t.cols, Data: t.data}
}

func gemmBLAS(a, b, out *Tensor, transA, transB bool) {
	ta, tb := blas.NoTrans, blas.NoTrans
	if transA {
		ta = blas.Trans
	}
	if transB {
		tb = blas.Trans
	}
	blas32.Gemm(ta, tb, 1, general(a), general(b), 0, general(out))
}

// gemmNaive computes out = a·b, parallel over output rows. Each row is owned
// by exactly one worker. The i-p-j loop order keeps b and out accesses sequential.
func gemmNaive(a, b, out *Tensor) {
	k, n := a.cols, b.cols
	parallel.For(a.rows, func(i int) {
		row := out.data[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			aip := a.data[i*k+p]
			bRow := b.data[p*n : (p+1)*n]
			for j, bv := range bRow {
				row[j] += aip * bv
			}
		}
	}, gemmConfig())
}

// gemmConfig lowers the chunk size for GEMM rows, which carry far more work
// than single elements.
func gemmConfig() parallel.Config {
	cfg := ParallelConfig()
	cfg.MinChunkSize = 1
	return cfg
}
