package optim

import (
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum and
// weight decay.
//
// Update rule:
//
//	velocity = momentum * velocity + gradient
//	param    = param * (1 - lr * weight_decay) - lr * velocity
//
// With momentum = 0 the velocity is the gradient itself.
//
// Example:
//
//	sgd := optim.NewSGD(model, optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	model       *nn.Module
	lr          float32
	momentum    float32
	weightDecay float32
	velocities  map[*nn.Parameter]*tensor.Tensor
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR          float32 // Learning rate (default: 0.01)
	Momentum    float32 // Momentum factor (default: 0.0, range: [0, 1))
	WeightDecay float32 // Multiplicative weight decay (default: 0.0)
}

// NewSGD creates a new SGD optimizer bound to model.
func NewSGD(model *nn.Module, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		model:       model,
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		velocities:  make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step performs a single optimization step over every layer of the model.
func (s *SGD) Step() error {
	if err := s.model.Accept(gradCheck{}); err != nil {
		return err
	}
	return s.model.Accept(s)
}

// VisitLinear updates a Linear layer.
func (s *SGD) VisitLinear(l *nn.Linear) error {
	return visitParams("Linear", l.Weight(), l.Bias(), s.update)
}

// VisitConv2D updates a Conv2D layer.
func (s *SGD) VisitConv2D(c *nn.Conv2D) error {
	return visitParams("Conv2D", c.Weight(), c.Bias(), s.update)
}

func (s *SGD) update(p *nn.Parameter) error {
	grad, err := gradOf(p)
	if err != nil {
		return err
	}

	step := grad
	if s.momentum != 0 {
		v, ok := s.velocities[p]
		if !ok {
			v = tensor.New(grad.Rows(), grad.Cols())
			s.velocities[p] = v
		}
		v.ScaleInPlace(s.momentum)
		if err := v.AddInPlace(grad); err != nil {
			return err
		}
		step = v
	}

	w := p.Value()
	if s.weightDecay != 0 {
		w.ScaleInPlace(1 - s.lr*s.weightDecay)
	}
	return w.AddScaledInPlace(-s.lr, step)
}

// LR returns the current learning rate.
func (s *SGD) LR() float32 { return s.lr }

// SetLR changes the learning rate.
func (s *SGD) SetLR(lr float32) { s.lr = lr }
