package tensor

import (
	"math"

	"github.com/born-ml/convnet/internal/parallel"
)

// Axis selectors for Sum, Mean and Max.
const (
	// AxisRows reduces over rows, producing a 1 x cols row vector.
	AxisRows = 0
	// AxisCols reduces over columns, producing a rows x 1 column vector.
	AxisCols = 1
)

// ReduceSum returns the sum of every element.
func (t *Tensor) ReduceSum() float32 {
	return parallel.SumFloat32(len(t.data), func(start, end int) float64 {
		var s float64
		for _, v := range t.data[start:end] {
			s += float64(v)
		}
		return s
	}, ParallelConfig())
}

// Sum reduces along axis: 0 sums each column into a 1 x cols row vector,
// 1 sums each row into a rows x 1 column vector.
func (t *Tensor) Sum(axis int) (*Tensor, error) {
	switch axis {
	case AxisRows:
		out := New(1, t.cols)
		parallel.For(t.cols, func(j int) {
			var s float32
			for i := 0; i < t.rows; i++ {
				s += t.data[i*t.cols+j]
			}
			out.data[j] = s
		}, ParallelConfig())
		return out, nil
	case AxisCols:
		out := New(t.rows, 1)
		parallel.For(t.rows, func(i int) {
			var s float32
			for _, v := range t.data[i*t.cols : (i+1)*t.cols] {
				s += v
			}
			out.data[i] = s
		}, ParallelConfig())
		return out, nil
	}
	return nil, invalid("Sum", "axis %d not in {0, 1}", axis)
}

// Mean reduces along axis like Sum and divides by the reduced extent.
// Averaging over zero elements is ErrInvalidArgument.
func (t *Tensor) Mean(axis int) (*Tensor, error) {
	s, err := t.Sum(axis)
	if err != nil {
		return nil, invalid("Mean", "axis %d not in {0, 1}", axis)
	}
	n := t.rows
	if axis == AxisCols {
		n = t.cols
	}
	if n == 0 {
		return nil, invalid("Mean", "axis %d of %dx%d tensor is empty", axis, t.rows, t.cols)
	}
	s.ScaleInPlace(1 / float32(n))
	return s, nil
}

// Max reduces along axis taking the maximum. Reducing an empty extent yields -Inf.
func (t *Tensor) Max(axis int) (*Tensor, error) {
	negInf := float32(math.Inf(-1))
	switch axis {
	case AxisRows:
		out := Full(1, t.cols, negInf)
		for i := 0; i < t.rows; i++ {
			for j, v := range t.data[i*t.cols : (i+1)*t.cols] {
				out.data[j] = max(out.data[j], v)
			}
		}
		return out, nil
	case AxisCols:
		out := Full(t.rows, 1, negInf)
		parallel.For(t.rows, func(i int) {
			for _, v := range t.data[i*t.cols : (i+1)*t.cols] {
				out.data[i] = max(out.data[i], v)
			}
		}, ParallelConfig())
		return out, nil
	}
	return nil, invalid("Max", "axis %d not in {0, 1}", axis)
}

// MaxValue returns the largest element, or -Inf for an empty tensor.
func (t *Tensor) MaxValue() float32 {
	return parallel.MaxFloat32(len(t.data), func(start, end int) float32 {
		best := float32(math.Inf(-1))
		for _, v := range t.data[start:end] {
			best = max(best, v)
		}
		return best
	}, ParallelConfig())
}

// MinValue returns the smallest element, or +Inf for an empty tensor.
func (t *Tensor) MinValue() float32 {
	return -parallel.MaxFloat32(len(t.data), func(start, end int) float32 {
		best := float32(math.Inf(-1))
		for _, v := range t.data[start:end] {
			best = max(best, -v)
		}
		return best
	}, ParallelConfig())
}

// ArgMax returns the flat row-major index of the largest element. Ties resolve
// to the first occurrence. Returns -1 for an empty tensor.
func (t *Tensor) ArgMax() int {
	best := -1
	for i, v := range t.data {
		if best < 0 || v > t.data[best] {
			best = i
		}
	}
	return best
}

// SquaredNorm returns Σ x² of a column vector.
func (t *Tensor) SquaredNorm() (float32, error) {
	if t.cols != 1 {
		return 0, invalid("SquaredNorm", "want a column vector, got %dx%d", t.rows, t.cols)
	}
	var s float64
	for _, v := range t.data {
		s += float64(v) * float64(v)
	}
	return float32(s), nil
}

// Summary holds descriptive statistics of a tensor.
type Summary struct {
	Min  float32
	Max  float32
	Mean float32
}

// Stats returns min, max and mean of every element. The mean of an empty
// tensor is NaN.
func (t *Tensor) Stats() Summary {
	return Summary{
		Min:  t.MinValue(),
		Max:  t.MaxValue(),
		Mean: t.ReduceSum() / float32(len(t.data)),
	}
}
