package optim

import (
	"math"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// AdamW implements Adam with decoupled weight decay.
//
// Update rule:
//
//	m_t   = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t   = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                          // Bias correction
//	v_hat = v_t / (1 - beta2^t)                          // Bias correction
//	param = param - lr * weight_decay * param            // Decoupled decay
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)     // Adam step
//
// Moment buffers are created the first time a parameter is visited and reused
// on every later step. The timestep t advances once per Step.
//
// Reference: "Decoupled Weight Decay Regularization" (Loshchilov & Hutter, 2019)
type AdamW struct {
	model       *nn.Module
	lr          float32
	beta1       float32
	beta2       float32
	eps         float32
	weightDecay float32
	t           int
	m           map[*nn.Parameter]*tensor.Tensor // First moment estimates
	v           map[*nn.Parameter]*tensor.Tensor // Second moment estimates

	// Bias corrections for the current step.
	bc1, bc2 float32
}

// AdamWConfig holds configuration for AdamW optimizer.
type AdamWConfig struct {
	LR          float32    // Learning rate (default: 0.001)
	Betas       [2]float32 // Coefficients for running averages (default: [0.9, 0.999])
	Eps         float32    // Term for numerical stability (default: 1e-8)
	WeightDecay float32    // Decoupled weight decay (default: 0.0)
}

// NewAdamW creates a new AdamW optimizer bound to model.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdamW(model *nn.Module, config AdamWConfig) *AdamW {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &AdamW{
		model:       model,
		lr:          config.LR,
		beta1:       config.Betas[0],
		beta2:       config.Betas[1],
		eps:         config.Eps,
		weightDecay: config.WeightDecay,
		m:           make(map[*nn.Parameter]*tensor.Tensor),
		v:           make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step performs a single optimization step over every layer of the model.
func (a *AdamW) Step() error {
	if err := a.model.Accept(gradCheck{}); err != nil {
		return err
	}
	a.t++
	a.bc1 = float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	a.bc2 = float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))
	return a.model.Accept(a)
}

// VisitLinear updates a Linear layer.
func (a *AdamW) VisitLinear(l *nn.Linear) error {
	return visitParams("Linear", l.Weight(), l.Bias(), a.update)
}

// VisitConv2D updates a Conv2D layer.
func (a *AdamW) VisitConv2D(c *nn.Conv2D) error {
	return visitParams("Conv2D", c.Weight(), c.Bias(), a.update)
}

func (a *AdamW) update(p *nn.Parameter) error {
	grad, err := gradOf(p)
	if err != nil {
		return err
	}

	m, ok := a.m[p]
	if !ok {
		m = tensor.New(grad.Rows(), grad.Cols())
		a.m[p] = m
	}
	v, ok := a.v[p]
	if !ok {
		v = tensor.New(grad.Rows(), grad.Cols())
		a.v[p] = v
	}

	gData, mData, vData := grad.Data(), m.Data(), v.Data()
	paramData := p.Value().Data()
	decay := 1 - a.lr*a.weightDecay

	for i := range paramData {
		g := gData[i]
		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

		mHat := mData[i] / a.bc1
		vHat := vData[i] / a.bc2

		paramData[i] = paramData[i]*decay - a.lr*mHat/(float32(math.Sqrt(float64(vHat)))+a.eps)
	}
	return nil
}

// Moments returns the moment buffers of p, or ok == false if p has not been
// visited yet.
func (a *AdamW) Moments(p *nn.Parameter) (m, v *tensor.Tensor, ok bool) {
	m, ok = a.m[p]
	if !ok {
		return nil, nil, false
	}
	return m, a.v[p], true
}

// Timestep returns the number of completed Step calls.
func (a *AdamW) Timestep() int { return a.t }

// LR returns the current learning rate.
func (a *AdamW) LR() float32 { return a.lr }

// SetLR changes the learning rate.
func (a *AdamW) SetLR(lr float32) { a.lr = lr }
