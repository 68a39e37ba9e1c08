package tensor

import (
	"fmt"

	"github.com/born-ml/convnet/internal/parallel"
)

// Transpose returns a new cols x rows tensor.
func (t *Tensor) Transpose() *Tensor {
	out := New(t.cols, t.rows)
	parallel.For(t.rows, func(i int) {
		for j := 0; j < t.cols; j++ {
			out.data[j*t.rows+i] = t.data[i*t.cols+j]
		}
	}, ParallelConfig())
	return out
}

// Flatten returns a (rows*cols) x 1 column vector with the same row-major data.
func (t *Tensor) Flatten() *Tensor {
	c := t.Clone()
	c.rows, c.cols = len(c.data), 1
	return c
}

// VStack concatenates a over b along rows. Both must have the same number of
// columns, unless one is the Empty sentinel, in which case a copy of the other
// operand is returned.
//
// Example:
//
//	acc := tensor.Empty()
//	for _, row := range rows {
//		acc, _ = tensor.VStack(acc, row)
//	}
func VStack(a, b *Tensor) (*Tensor, error) {
	if a.IsEmpty() {
		return b.Clone(), nil
	}
	if b.IsEmpty() {
		return a.Clone(), nil
	}
	if a.cols != b.cols {
		return nil, mismatch("VStack", a, b)
	}
	out := New(a.rows+b.rows, a.cols)
	copy(out.data, a.data)
	copy(out.data[len(a.data):], b.data)
	return out, nil
}

// HStack concatenates a and b side by side. Both must have the same number of
// rows; the Empty sentinel acts as identity like in VStack.
func HStack(a, b *Tensor) (*Tensor, error) {
	if a.IsEmpty() {
		return b.Clone(), nil
	}
	if b.IsEmpty() {
		return a.Clone(), nil
	}
	if a.rows != b.rows {
		return nil, mismatch("HStack", a, b)
	}
	cols := a.cols + b.cols
	out := New(a.rows, cols)
	for i := 0; i < a.rows; i++ {
		copy(out.data[i*cols:], a.data[i*a.cols:(i+1)*a.cols])
		copy(out.data[i*cols+a.cols:], b.data[i*b.cols:(i+1)*b.cols])
	}
	return out, nil
}

// BroadcastRow stacks copies of t vertically until it has at least n rows.
// The result may overshoot n when n is not a multiple of t.Rows().
func (t *Tensor) BroadcastRow(n int) (*Tensor, error) {
	if n < t.rows {
		return nil, invalid("BroadcastRow", "target %d rows smaller than %d", n, t.rows)
	}
	if t.rows == 0 && n > 0 {
		return nil, invalid("BroadcastRow", "cannot tile a tensor with no rows")
	}
	reps := 1
	if t.rows > 0 {
		reps = max((n+t.rows-1)/t.rows, 1)
	}
	out := New(t.rows*reps, t.cols)
	for r := 0; r < reps; r++ {
		copy(out.data[r*len(t.data):], t.data)
	}
	return out, nil
}

// BroadcastCol places copies of t side by side until it has at least n columns.
// The result may overshoot n when n is not a multiple of t.Cols().
func (t *Tensor) BroadcastCol(n int) (*Tensor, error) {
	if n < t.cols {
		return nil, invalid("BroadcastCol", "target %d columns smaller than %d", n, t.cols)
	}
	if t.cols == 0 && n > 0 {
		return nil, invalid("BroadcastCol", "cannot tile a tensor with no columns")
	}
	reps := 1
	if t.cols > 0 {
		reps = max((n+t.cols-1)/t.cols, 1)
	}
	cols := t.cols * reps
	out := New(t.rows, cols)
	for i := 0; i < t.rows; i++ {
		src := t.data[i*t.cols : (i+1)*t.cols]
		for r := 0; r < reps; r++ {
			copy(out.data[i*cols+r*t.cols:], src)
		}
	}
	return out, nil
}

// Row returns a 1 x cols copy of row i.
func (t *Tensor) Row(i int) *Tensor {
	if i < 0 || i >= t.rows {
		panic(fmt.Sprintf("tensor.Row: index %d out of range [0, %d)", i, t.rows))
	}
	out := New(1, t.cols)
	copy(out.data, t.data[i*t.cols:(i+1)*t.cols])
	return out
}

// Col returns a rows x 1 copy of column j.
func (t *Tensor) Col(j int) *Tensor {
	if j < 0 || j >= t.cols {
		panic(fmt.Sprintf("tensor.Col: index %d out of range [0, %d)", j, t.cols))
	}
	out := New(t.rows, 1)
	for i := 0; i < t.rows; i++ {
		out.data[i] = t.data[i*t.cols+j]
	}
	return out
}
