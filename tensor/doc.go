// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float32 matrices and CHW images that
// every convnet layer consumes and produces.
//
// # Overview
//
// This package provides:
//   - Row-major 2-D tensors (Tensor) and channel-major images (Image)
//   - Element-wise arithmetic, row/column broadcasting and axis reductions
//   - Matrix multiplication backed by gonum BLAS or a portable parallel loop
//   - Reproducible random fills driven by a splittable generator (RNG)
//
// # Basic Usage
//
//	import "github.com/born-ml/convnet/tensor"
//
//	func main() {
//	    a := tensor.MustFromRows([][]float32{{1, 2}, {3, 4}})
//	    b := tensor.Ones(2, 3)
//
//	    c, err := tensor.MatMul(a, b) // 2x3
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(c)
//	}
//
// # Vectors
//
// A vector is a column tensor (n x 1). Fully connected layers consume and
// produce vectors; Image.Flatten and ImageFromVector convert between the
// two layouts in channel, row, column order.
//
// # Errors
//
// Shape violations wrap ErrDimensionMismatch, bad arguments wrap
// ErrInvalidArgument and use-before-forward wraps ErrUninitialized.
// Test with errors.Is.
//
// # Compute Backends
//
// MatMul dispatches on a process-wide GEMM kind:
//
//	tensor.SetGEMM(tensor.GEMMNaive) // portable loop
//	tensor.SetGEMM(tensor.GEMMBLAS)  // gonum blas32 (default)
//
// Element-wise loops, reductions and random fills are split into chunks
// according to SetParallelConfig. Results do not depend on the chunking.
package tensor
