// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Scheduler adjusts an optimizer's learning rate once per epoch.
type Scheduler = optim.Scheduler

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer bound to model.
//
// Example:
//
//	opt := optim.NewSGD(model, optim.SGDConfig{LR: 0.01, Momentum: 0.9})
func NewSGD(model *nn.Module, config SGDConfig) *SGD {
	return optim.NewSGD(model, config)
}

// AdamW (Adam with decoupled weight decay)

// AdamW represents the AdamW optimizer.
type AdamW = optim.AdamW

// AdamWConfig contains configuration for AdamW optimizer.
type AdamWConfig = optim.AdamWConfig

// NewAdamW creates a new AdamW optimizer bound to model.
//
// Example:
//
//	opt := optim.NewAdamW(model, optim.AdamWConfig{LR: 1e-3, WeightDecay: 0.01})
func NewAdamW(model *nn.Module, config AdamWConfig) *AdamW {
	return optim.NewAdamW(model, config)
}

// Schedulers

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR = optim.StepLR

// NewStepLR creates a StepLR scheduler.
func NewStepLR(optimizer Optimizer, stepSize int, gamma float32) *StepLR {
	return optim.NewStepLR(optimizer, stepSize, gamma)
}

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR = optim.ExponentialLR

// NewExponentialLR creates an ExponentialLR scheduler.
func NewExponentialLR(optimizer Optimizer, gamma float32) *ExponentialLR {
	return optim.NewExponentialLR(optimizer, gamma)
}

// CosineLR anneals the learning rate to minLR over tMax epochs.
type CosineLR = optim.CosineLR

// NewCosineLR creates a CosineLR scheduler.
func NewCosineLR(optimizer Optimizer, tMax int, minLR float32) *CosineLR {
	return optim.NewCosineLR(optimizer, tMax, minLR)
}
