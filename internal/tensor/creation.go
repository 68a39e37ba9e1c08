package tensor

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/convnet/internal/parallel"
)

var parallelCfg atomic.Pointer[parallel.Config]

func init() {
	cfg := parallel.DefaultConfig()
	parallelCfg.Store(&cfg)
}

// SetParallelConfig replaces the configuration used by element-wise loops,
// reductions and random fills. Intended for tests and benchmarks.
func SetParallelConfig(cfg parallel.Config) {
	parallelCfg.Store(&cfg)
}

// ParallelConfig returns the configuration in effect.
func ParallelConfig() parallel.Config {
	return *parallelCfg.Load()
}

// Zeros creates a rows x cols tensor filled with zeros.
func Zeros(rows, cols int) *Tensor {
	return New(rows, cols)
}

// Full creates a tensor filled with value.
//
// Example:
//
//	t := tensor.Full(3, 3, 3.14)
func Full(rows, cols int, value float32) *Tensor {
	t := New(rows, cols)
	t.Fill(value)
	return t
}

// Ones creates a tensor filled with ones.
func Ones(rows, cols int) *Tensor {
	return Full(rows, cols, 1)
}

// ValuesLike creates a tensor shaped like t and filled with value.
func ValuesLike(value float32, t *Tensor) *Tensor {
	return Full(t.rows, t.cols, value)
}

// Identity creates an n x n identity matrix.
func Identity(n int) *Tensor {
	t := New(n, n)
	for i := 0; i < n; i++ {
		t.data[i*n+i] = 1
	}
	return t
}

// OneHot creates an n x 1 column vector with a single 1 at index.
func OneHot(index, n int) (*Tensor, error) {
	if n <= 0 || index < 0 || index >= n {
		return nil, invalid("OneHot", "index %d outside [0, %d)", index, n)
	}
	t := New(n, 1)
	t.data[index] = 1
	return t, nil
}

// OneHotValue encodes value against an ordered list of class values as a
// len(classes) x 1 column vector. Every class equal to value is set to 1.
func OneHotValue(value float32, classes []float32) *Tensor {
	t := New(len(classes), 1)
	for i, c := range classes {
		if c == value {
			t.data[i] = 1
		}
	}
	return t
}

// Arange returns a column vector holding start, start+1, ..., end-1.
// When end < start the values count down from start.
func Arange(start, end int) *Tensor {
	n := end - start
	step := 1
	if n < 0 {
		n, step = -n, -1
	}
	t := New(n, 1)
	for i := 0; i < n; i++ {
		t.data[i] = float32(start + i*step)
	}
	return t
}

// MustFromRows is FromRows that panics on error. Intended for literals in tests
// and examples.
func MustFromRows(rows [][]float32) *Tensor {
	t, err := FromRows(rows)
	if err != nil {
		panic(fmt.Sprintf("tensor.MustFromRows: %v", err))
	}
	return t
}
