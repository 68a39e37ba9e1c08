// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// Tensor is a dense row-major float32 matrix.
type Tensor = tensor.Tensor

// Image is a dense float32 image in channel, row, column order.
type Image = tensor.Image

// RNG is a seeded, splittable random source.
type RNG = tensor.RNG

// Summary holds descriptive statistics of a tensor.
type Summary = tensor.Summary

// GEMMKind selects the matrix-multiply backend.
type GEMMKind = tensor.GEMMKind

// Features describes the host CPU.
type Features = tensor.Features

// ParallelConfig controls how element-wise loops are chunked.
type ParallelConfig = parallel.Config

// GEMM backends.
const (
	GEMMBLAS  = tensor.GEMMBLAS
	GEMMNaive = tensor.GEMMNaive
)

// Sentinel errors.
var (
	ErrDimensionMismatch = tensor.ErrDimensionMismatch
	ErrInvalidArgument   = tensor.ErrInvalidArgument
	ErrUninitialized     = tensor.ErrUninitialized
)

// Creation

// New creates a zero-filled rows x cols tensor.
func New(rows, cols int) *Tensor { return tensor.New(rows, cols) }

// Zeros creates a zero-filled rows x cols tensor.
func Zeros(rows, cols int) *Tensor { return tensor.Zeros(rows, cols) }

// Ones creates a rows x cols tensor filled with ones.
func Ones(rows, cols int) *Tensor { return tensor.Ones(rows, cols) }

// Full creates a rows x cols tensor filled with value.
func Full(rows, cols int, value float32) *Tensor { return tensor.Full(rows, cols, value) }

// Identity creates an n x n identity matrix.
func Identity(n int) *Tensor { return tensor.Identity(n) }

// FromSlice copies data into a rows x cols tensor.
func FromSlice(rows, cols int, data []float32) (*Tensor, error) {
	return tensor.FromSlice(rows, cols, data)
}

// FromRows builds a tensor from equal-length rows.
func FromRows(rows [][]float32) (*Tensor, error) { return tensor.FromRows(rows) }

// MustFromRows is FromRows that panics on ragged input.
func MustFromRows(rows [][]float32) *Tensor { return tensor.MustFromRows(rows) }

// OneHot returns an n x 1 column with a one at index.
func OneHot(index, n int) (*Tensor, error) { return tensor.OneHot(index, n) }

// NewImage creates a zero-filled image.
func NewImage(channels, height, width int) *Image { return tensor.NewImage(channels, height, width) }

// ImageFromSlice copies CHW data into an image.
func ImageFromSlice(channels, height, width int, data []float32) (*Image, error) {
	return tensor.ImageFromSlice(channels, height, width, data)
}

// ImageFromVector reshapes a column vector into an image.
func ImageFromVector(v *Tensor, channels, height, width int) (*Image, error) {
	return tensor.ImageFromVector(v, channels, height, width)
}

// Arithmetic

// Add returns a + b.
func Add(a, b *Tensor) (*Tensor, error) { return tensor.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Tensor) (*Tensor, error) { return tensor.Sub(a, b) }

// Hadamard returns the element-wise product of a and b.
func Hadamard(a, b *Tensor) (*Tensor, error) { return tensor.Hadamard(a, b) }

// MatMul returns a * b.
func MatMul(a, b *Tensor) (*Tensor, error) { return tensor.MatMul(a, b) }

// MatMulTrans returns op(a) * op(b), transposing each operand on request.
func MatMulTrans(a, b *Tensor, transA, transB bool) (*Tensor, error) {
	return tensor.MatMulTrans(a, b, transA, transB)
}

// Random

// NewRNG creates a generator from seed.
func NewRNG(seed uint64) *RNG { return tensor.NewRNG(seed) }

// Normal fills a rows x cols tensor from N(mu, std^2).
func Normal(rows, cols int, mu, std float32, rng *RNG) (*Tensor, error) {
	return tensor.Normal(rows, cols, mu, std, rng)
}

// Uniform fills a rows x cols tensor from U[lo, hi).
func Uniform(rows, cols int, lo, hi float32, rng *RNG) (*Tensor, error) {
	return tensor.Uniform(rows, cols, lo, hi, rng)
}

// Runtime

// SetGEMM selects the process-wide matrix-multiply backend.
func SetGEMM(k GEMMKind) { tensor.SetGEMM(k) }

// CurrentGEMM returns the backend in effect.
func CurrentGEMM() GEMMKind { return tensor.CurrentGEMM() }

// ParseGEMM parses "blas" or "naive".
func ParseGEMM(s string) (GEMMKind, error) { return tensor.ParseGEMM(s) }

// SetParallel replaces the chunking used by element-wise loops.
func SetParallel(cfg ParallelConfig) { tensor.SetParallelConfig(cfg) }

// DefaultParallel returns chunking sized to the CPU count.
func DefaultParallel() ParallelConfig { return parallel.DefaultConfig() }

// DetectFeatures reports the CPU SIMD capabilities.
func DetectFeatures() Features { return tensor.DetectFeatures() }
