// Package optim implements optimization algorithms for training convnet models.
//
// This package provides:
//   - Optimizer interface: a Visitor over parameterized layers plus Step
//   - SGD: Stochastic Gradient Descent with momentum and weight decay
//   - AdamW: Adam with decoupled weight decay
//   - Schedulers: StepLR, ExponentialLR, CosineLR
//
// An optimizer is bound to one Module. Step visits every layer in forward
// order; each parameterized layer calls back into VisitLinear or VisitConv2D.
// Optimizers only read gradients, never modify them.
//
// Example usage:
//
//	opt := optim.NewAdamW(model, optim.AdamWConfig{LR: 1e-3})
//
//	for _, s := range samples {
//	    logits, _ := model.ForwardImage(s.Image)
//	    _, _ = loss.Compute(logits, s.Label)
//	    _ = loss.Backward()
//	    _ = opt.Step()
//	    model.ZeroGrad()
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	nn.Visitor

	// Step updates every parameterized layer of the bound model.
	// Returns ErrUninitialized, with nothing updated, if any parameter has
	// no gradient yet.
	Step() error

	// LR returns the current learning rate.
	LR() float32

	// SetLR changes the learning rate. Used by schedulers.
	SetLR(lr float32)
}

// paramUpdater applies one optimizer rule to a single parameter.
type paramUpdater func(p *nn.Parameter) error

// visitParams applies update to weight and, when present, bias.
func visitParams(layer string, weight, bias *nn.Parameter, update paramUpdater) error {
	if err := update(weight); err != nil {
		return fmt.Errorf("%s weight: %w", layer, err)
	}
	if bias == nil {
		return nil
	}
	if err := update(bias); err != nil {
		return fmt.Errorf("%s bias: %w", layer, err)
	}
	return nil
}

// gradOf returns the gradient of p or ErrUninitialized.
func gradOf(p *nn.Parameter) (*tensor.Tensor, error) {
	g := p.Grad()
	if g == nil {
		return nil, fmt.Errorf("%w: no gradient accumulated for %s", tensor.ErrUninitialized, p.Name())
	}
	return g, nil
}

// gradCheck visits every parameter without touching it and fails on the
// first one that has no gradient. Step runs it first so a failing step
// leaves weights and optimizer state unchanged.
type gradCheck struct{}

func (gradCheck) VisitLinear(l *nn.Linear) error {
	return visitParams("Linear", l.Weight(), l.Bias(), checkGrad)
}

func (gradCheck) VisitConv2D(c *nn.Conv2D) error {
	return visitParams("Conv2D", c.Weight(), c.Bias(), checkGrad)
}

func checkGrad(p *nn.Parameter) error {
	_, err := gradOf(p)
	return err
}
