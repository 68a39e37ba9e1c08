// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, the sequential Module and the losses used
// to build convolutional classifiers.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, MaxPool2D, AvgPool2D, LocalResponseNorm
//   - Activations: ReLU, LeakyReLU, Softmax
//   - Regularization and reshaping: Dropout, Flatten
//   - Loss functions: CrossEntropyLoss, MSELoss
//   - Initialization: HeNormal, XavierNormal
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convnet/nn"
//	    "github.com/born-ml/convnet/tensor"
//	)
//
//	func main() {
//	    rng := tensor.NewRNG(42)
//	    conv, _ := nn.NewConv2D(1, 6, nn.Square(5, 1, 0), true, rng.Split())
//	    pool, _ := nn.NewMaxPool2D(nn.Square(2, 2, 0))
//	    fc, _ := nn.NewLinear(6*12*12, 10, true, rng.Split())
//
//	    model := nn.NewModule().MustAdd(conv, nn.NewReLU(), pool, nn.NewFlatten(), fc)
//	    logits, err := model.ForwardImage(img)
//	}
//
// # Stages
//
// A Module is an image stage followed by a vector stage. Image layers may
// only appear before the Flatten layer and vector layers only after it.
// Activations and Dropout work in either stage. Add rejects layers that
// cannot run where they are placed.
//
// # Training
//
// Backward accumulates parameter gradients, so several samples can be
// summed before an optimizer step. Call ZeroGrad after each step.
// In evaluation mode Dropout is the identity and Backward does nothing.
package nn
