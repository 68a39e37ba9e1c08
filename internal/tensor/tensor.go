// Package tensor implements the dense row-major float32 matrix used as the only
// data container of convnet, plus the multi-channel Image it is reshaped into by
// convolution layers.
package tensor

import (
	"fmt"
	"math"
	"strings"
)

// Tensor is a dense 2-D float32 buffer stored row-major.
//
// The zero-sized tensor returned by Empty is a sentinel meaning "nothing stacked
// yet"; VStack and HStack treat it as an identity operand.
//
// Tensors behave as values: Clone duplicates the buffer, Assign replaces the
// receiver's contents with a private copy of another tensor.
//
// Example:
//
//	a, _ := tensor.FromRows([][]float32{{1, 2}, {3, 4}})
//	b := a.Transpose()
//	c, err := tensor.MatMul(a, b) // 2x2
type Tensor struct {
	rows int
	cols int
	data []float32
}

// New creates a zero-filled rows x cols tensor.
// Panics on negative dimensions.
func New(rows, cols int) *Tensor {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tensor.New: negative dimensions %dx%d", rows, cols))
	}
	return &Tensor{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// Empty returns the 0x0 sentinel tensor.
func Empty() *Tensor {
	return &Tensor{}
}

// FromSlice creates a tensor from a row-major slice.
// The slice is copied into the tensor's memory.
func FromSlice(rows, cols int, data []float32) (*Tensor, error) {
	if rows < 0 || cols < 0 {
		return nil, invalid("FromSlice", "negative dimensions %dx%d", rows, cols)
	}
	if rows*cols != len(data) {
		return nil, fmt.Errorf("FromSlice: %w: %dx%d requires %d elements, got %d",
			ErrDimensionMismatch, rows, cols, rows*cols, len(data))
	}
	t := New(rows, cols)
	copy(t.data, data)
	return t, nil
}

// FromRows creates a tensor from a slice of equally sized rows.
func FromRows(rows [][]float32) (*Tensor, error) {
	if len(rows) == 0 {
		return Empty(), nil
	}
	cols := len(rows[0])
	t := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("FromRows: %w: row %d has %d columns, want %d",
				ErrDimensionMismatch, i, len(r), cols)
		}
		copy(t.data[i*cols:], r)
	}
	return t, nil
}

// Rows returns the number of rows.
func (t *Tensor) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Tensor) Cols() int { return t.cols }

// Len returns rows*cols.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the underlying row-major buffer. Writes are visible to the tensor.
func (t *Tensor) Data() []float32 { return t.data }

// IsEmpty reports whether t is the 0x0 sentinel.
func (t *Tensor) IsEmpty() bool {
	return t.rows == 0 && t.cols == 0 && len(t.data) == 0
}

// SameShape reports whether t and other have identical dimensions.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.rows == other.rows && t.cols == other.cols
}

// At returns the element at (i, j).
func (t *Tensor) At(i, j int) float32 {
	return t.data[i*t.cols+j]
}

// Set stores v at (i, j).
func (t *Tensor) Set(i, j int, v float32) {
	t.data[i*t.cols+j] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{rows: t.rows, cols: t.cols, data: make([]float32, len(t.data))}
	copy(c.data, t.data)
	return c
}

// Assign replaces t's shape and contents with a copy of src.
// The copy is made before t is touched, so t is never left half-written.
func (t *Tensor) Assign(src *Tensor) {
	c := src.Clone()
	t.rows, t.cols, t.data = c.rows, c.cols, c.data
}

// Reshape returns a copy with new dimensions and the same row-major data.
func (t *Tensor) Reshape(rows, cols int) (*Tensor, error) {
	if rows < 0 || cols < 0 || rows*cols != len(t.data) {
		return nil, fmt.Errorf("Reshape: %w: cannot view %d elements as %dx%d",
			ErrDimensionMismatch, len(t.data), rows, cols)
	}
	c := t.Clone()
	c.rows, c.cols = rows, cols
	return c, nil
}

// Equal reports exact element-wise equality including shape.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.SameShape(other) {
		return false
	}
	for i, v := range t.data {
		if v != other.data[i] {
			return false
		}
	}
	return true
}

// AllClose reports whether shapes match and every element differs by at most
// tol in absolute terms or tol relative to the larger magnitude.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if !t.SameShape(other) {
		return false
	}
	for i, v := range t.data {
		a, b := float64(v), float64(other.data[i])
		diff := math.Abs(a - b)
		if diff > tol && diff > tol*math.Max(math.Abs(a), math.Abs(b)) {
			return false
		}
	}
	return true
}

// HasNaNOrInf reports whether any element is NaN or ±Inf.
func (t *Tensor) HasNaNOrInf() bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}

// String formats the tensor for debugging.
func (t *Tensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor(%dx%d)[", t.rows, t.cols)
	for i := 0; i < t.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('[')
		for j := 0; j < t.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%g", t.data[i*t.cols+j])
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}
