// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training convnet models.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum and weight decay
//   - AdamW: Adam with decoupled weight decay and bias correction
//   - Schedulers: StepLR, ExponentialLR, CosineLR
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convnet/nn"
//	    "github.com/born-ml/convnet/optim"
//	)
//
//	func main() {
//	    model := buildModel()
//	    loss := nn.NewCrossEntropyLoss(model)
//	    opt := optim.NewAdamW(model, optim.AdamWConfig{LR: 1e-3, WeightDecay: 0.01})
//	    sched := optim.NewCosineLR(opt, epochs, 1e-5)
//
//	    for epoch := 0; epoch < epochs; epoch++ {
//	        for _, s := range samples {
//	            logits, _ := model.ForwardImage(s.Image)
//	            _, _ = loss.Compute(logits, s.Label)
//	            _ = loss.Backward()
//	            _ = opt.Step()
//	            model.ZeroGrad()
//	        }
//	        sched.Step()
//	    }
//	}
//
// # Visitors
//
// An optimizer is an nn.Visitor bound to one Module. Step walks the layers
// in forward order and each parameterized layer calls back into VisitLinear
// or VisitConv2D. Gradients are read, never modified.
package optim
