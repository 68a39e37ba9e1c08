package optim

import "math"

// Scheduler adjusts the learning rate of an optimizer once per epoch.
type Scheduler interface {
	// Step advances the schedule by one epoch and updates the optimizer.
	Step()

	// LR returns the optimizer's current learning rate.
	LR() float32
}

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizer Optimizer
	stepSize  int
	gamma     float32
	lastEpoch int
}

// NewStepLR creates a StepLR scheduler. A non-positive stepSize is treated as 1.
func NewStepLR(optimizer Optimizer, stepSize int, gamma float32) *StepLR {
	return &StepLR{optimizer: optimizer, stepSize: max(stepSize, 1), gamma: gamma}
}

// Step advances one epoch.
func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
	}
}

// LR returns the current learning rate.
func (s *StepLR) LR() float32 { return s.optimizer.LR() }

// ExponentialLR decays the learning rate by gamma every epoch.
type ExponentialLR struct {
	optimizer Optimizer
	gamma     float32
}

// NewExponentialLR creates an ExponentialLR scheduler.
func NewExponentialLR(optimizer Optimizer, gamma float32) *ExponentialLR {
	return &ExponentialLR{optimizer: optimizer, gamma: gamma}
}

// Step advances one epoch.
func (s *ExponentialLR) Step() {
	s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
}

// LR returns the current learning rate.
func (s *ExponentialLR) LR() float32 { return s.optimizer.LR() }

// CosineLR anneals the learning rate from its initial value to minLR over
// tMax epochs following half a cosine wave, then stays at minLR.
//
//	lr_t = minLR + (lr_0 - minLR) * (1 + cos(π t / tMax)) / 2
type CosineLR struct {
	optimizer Optimizer
	tMax      int
	minLR     float32
	baseLR    float32
	epoch     int
}

// NewCosineLR creates a CosineLR scheduler starting from the optimizer's
// current learning rate. A non-positive tMax is treated as 1.
func NewCosineLR(optimizer Optimizer, tMax int, minLR float32) *CosineLR {
	return &CosineLR{
		optimizer: optimizer,
		tMax:      max(tMax, 1),
		minLR:     minLR,
		baseLR:    optimizer.LR(),
	}
}

// Step advances one epoch.
func (s *CosineLR) Step() {
	s.epoch = min(s.epoch+1, s.tMax)
	cos := math.Cos(math.Pi * float64(s.epoch) / float64(s.tMax))
	s.optimizer.SetLR(s.minLR + (s.baseLR-s.minLR)*float32((1+cos)/2))
}

// LR returns the current learning rate.
func (s *CosineLR) LR() float32 { return s.optimizer.LR() }
