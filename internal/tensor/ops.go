package tensor

import "github.com/born-ml/convnet/internal/parallel"

// each runs f over contiguous index ranges of [0, n).
func each(n int, f func(start, end int)) {
	parallel.ForRange(n, func(_, start, end int) { f(start, end) }, ParallelConfig())
}

func binary(op string, a, b *Tensor, f func(x, y float32) float32) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, mismatch(op, a, b)
	}
	out := New(a.rows, a.cols)
	each(len(a.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = f(a.data[i], b.data[i])
		}
	})
	return out, nil
}

func binaryInPlace(op string, dst, src *Tensor, f func(x, y float32) float32) error {
	if !dst.SameShape(src) {
		return mismatch(op, dst, src)
	}
	each(len(dst.data), func(start, end int) {
		for i := start; i < end; i++ {
			dst.data[i] = f(dst.data[i], src.data[i])
		}
	})
	return nil
}

// Add returns a + b element-wise.
func Add(a, b *Tensor) (*Tensor, error) {
	return binary("Add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub returns a - b element-wise.
func Sub(a, b *Tensor) (*Tensor, error) {
	return binary("Sub", a, b, func(x, y float32) float32 { return x - y })
}

// Hadamard returns the element-wise product a ⊙ b.
func Hadamard(a, b *Tensor) (*Tensor, error) {
	return binary("Hadamard", a, b, func(x, y float32) float32 { return x * y })
}

// AddInPlace performs t += other.
func (t *Tensor) AddInPlace(other *Tensor) error {
	return binaryInPlace("AddInPlace", t, other, func(x, y float32) float32 { return x + y })
}

// SubInPlace performs t -= other.
func (t *Tensor) SubInPlace(other *Tensor) error {
	return binaryInPlace("SubInPlace", t, other, func(x, y float32) float32 { return x - y })
}

// HadamardInPlace performs t ⊙= other.
func (t *Tensor) HadamardInPlace(other *Tensor) error {
	return binaryInPlace("HadamardInPlace", t, other, func(x, y float32) float32 { return x * y })
}

// AddScaledInPlace performs t += alpha * other (axpy).
func (t *Tensor) AddScaledInPlace(alpha float32, other *Tensor) error {
	return binaryInPlace("AddScaledInPlace", t, other, func(x, y float32) float32 { return x + alpha*y })
}

// Fill sets every element to value.
func (t *Tensor) Fill(value float32) {
	each(len(t.data), func(start, end int) {
		for i := start; i < end; i++ {
			t.data[i] = value
		}
	})
}

// ScaleInPlace performs t *= s.
func (t *Tensor) ScaleInPlace(s float32) {
	t.ApplyInPlace(func(x float32) float32 { return x * s })
}

// ApplyInPlace replaces every element x with f(x). f must be safe for
// concurrent use.
func (t *Tensor) ApplyInPlace(f func(float32) float32) {
	each(len(t.data), func(start, end int) {
		for i := start; i < end; i++ {
			t.data[i] = f(t.data[i])
		}
	})
}

// Apply returns a new tensor with f applied to every element.
// f must be safe for concurrent use.
func (t *Tensor) Apply(f func(float32) float32) *Tensor {
	out := New(t.rows, t.cols)
	each(len(t.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = f(t.data[i])
		}
	})
	return out
}

// Neg returns -t.
func (t *Tensor) Neg() *Tensor {
	return t.Apply(func(x float32) float32 { return -x })
}

// AddScalar returns t + s.
func (t *Tensor) AddScalar(s float32) *Tensor {
	return t.Apply(func(x float32) float32 { return x + s })
}

// SubScalar returns t - s.
func (t *Tensor) SubScalar(s float32) *Tensor {
	return t.Apply(func(x float32) float32 { return x - s })
}

// Scale returns t * s.
func (t *Tensor) Scale(s float32) *Tensor {
	return t.Apply(func(x float32) float32 { return x * s })
}

// DivScalar returns t / s. Division by zero follows IEEE-754.
func (t *Tensor) DivScalar(s float32) *Tensor {
	return t.Apply(func(x float32) float32 { return x / s })
}

// Where selects a[i] where pred(cond[i]) holds and b[i] elsewhere.
// All three tensors must share a shape.
//
// Example:
//
//	relu, _ := tensor.Where(x, x, tensor.Zeros(x.Rows(), x.Cols()), func(v float32) bool { return v > 0 })
func Where(cond, a, b *Tensor, pred func(float32) bool) (*Tensor, error) {
	if !cond.SameShape(a) {
		return nil, mismatch("Where", cond, a)
	}
	if !cond.SameShape(b) {
		return nil, mismatch("Where", cond, b)
	}
	out := New(a.rows, a.cols)
	each(len(a.data), func(start, end int) {
		for i := start; i < end; i++ {
			if pred(cond.data[i]) {
				out.data[i] = a.data[i]
			} else {
				out.data[i] = b.data[i]
			}
		}
	})
	return out, nil
}
