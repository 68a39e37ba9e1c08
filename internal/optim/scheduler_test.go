package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
)

func newSGD(lr float32) *optim.SGD {
	return optim.NewSGD(nn.NewModule(), optim.SGDConfig{LR: lr})
}

func TestStepLR(t *testing.T) {
	opt := newSGD(0.1)
	s := optim.NewStepLR(opt, 2, 0.5)

	want := []float32{0.1, 0.05, 0.05, 0.025}
	for i, w := range want {
		s.Step()
		assert.InDelta(t, w, s.LR(), 1e-7, "epoch %d", i+1)
	}
	assert.InDelta(t, 0.025, opt.LR(), 1e-7)
}

func TestExponentialLR(t *testing.T) {
	s := optim.NewExponentialLR(newSGD(0.1), 0.9)

	s.Step()
	assert.InDelta(t, 0.09, s.LR(), 1e-7)
	s.Step()
	assert.InDelta(t, 0.081, s.LR(), 1e-7)
}

func TestCosineLR(t *testing.T) {
	opt := newSGD(0.1)
	s := optim.NewCosineLR(opt, 4, 0.01)

	s.Step()
	assert.Less(t, s.LR(), float32(0.1))
	s.Step()
	assert.InDelta(t, 0.055, s.LR(), 1e-6) // halfway
	s.Step()
	s.Step()
	assert.InDelta(t, 0.01, s.LR(), 1e-6)
	s.Step()
	assert.InDelta(t, 0.01, s.LR(), 1e-6)
}

func TestScheduler_Interface(t *testing.T) {
	opt := newSGD(0.1)
	var schedulers = []optim.Scheduler{
		optim.NewStepLR(opt, 1, 1),
		optim.NewExponentialLR(opt, 1),
	}
	for _, s := range schedulers {
		s.Step()
		assert.InDelta(t, 0.1, s.LR(), 1e-7)
	}
}
