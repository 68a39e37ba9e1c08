// Package train drives the per-sample training loop over a Module:
// forward, loss, backward, optimizer step and gradient reset, followed by an
// optional scheduler step and callbacks at the end of every epoch.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/convnet/internal/data"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// ErrStopTraining is returned by a callback to end Fit early. Fit itself
// returns nil when training stops this way.
var ErrStopTraining = errors.New("stop training")

// Metrics summarizes one pass over a sample set.
type Metrics struct {
	Epoch    int
	Samples  int
	Loss     float64 // mean loss per sample
	Accuracy float64 // fraction of samples whose argmax matches the label
	LR       float32
	Elapsed  time.Duration
}

// LogValue implements slog.LogValuer.
func (m Metrics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("epoch", m.Epoch),
		slog.Int("samples", m.Samples),
		slog.Float64("loss", m.Loss),
		slog.Float64("accuracy", m.Accuracy),
		slog.Float64("lr", float64(m.LR)),
		slog.Duration("elapsed", m.Elapsed),
	)
}

// Trainer owns the training loop for one model.
type Trainer struct {
	Model     *nn.Module
	Loss      nn.Loss
	Optimizer optim.Optimizer
	Scheduler optim.Scheduler // optional
	Callbacks []Callback
	Shuffle   *tensor.RNG // shuffles the training set each epoch when set

	runID  string
	logger *slog.Logger
	epoch  int
	steps  int64
}

// New creates a trainer with a fresh run ID. A nil logger uses slog.Default().
func New(model *nn.Module, loss nn.Loss, opt optim.Optimizer, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Trainer{
		Model:     model,
		Loss:      loss,
		Optimizer: opt,
		runID:     id,
		logger:    logger.With("run_id", id),
	}
}

// RunID returns the identifier attached to every log record of this trainer.
func (t *Trainer) RunID() string { return t.runID }

// Steps returns the number of optimizer steps taken so far.
func (t *Trainer) Steps() int64 { return t.steps }

// Epoch returns the number of completed training epochs.
func (t *Trainer) Epoch() int { return t.epoch }

// forward runs the model on the input matching its kind.
func (t *Trainer) forward(s data.Sample) (*tensor.Tensor, error) {
	if t.Model.IsImageModel() {
		if s.Image == nil {
			return nil, fmt.Errorf("%w: image model given a vector sample", tensor.ErrInvalidArgument)
		}
		return t.Model.ForwardImage(s.Image)
	}
	return t.Model.Forward(s.Vector)
}

// score computes the loss of s and whether the prediction is correct.
func (t *Trainer) score(s data.Sample) (float32, bool, error) {
	out, err := t.forward(s)
	if err != nil {
		return 0, false, err
	}
	loss, err := t.Loss.Compute(out, s.Label)
	if err != nil {
		return 0, false, err
	}
	return loss, t.Loss.Prediction().ArgMax() == s.Class(), nil
}

// RunEpoch trains on every sample once, updating the parameters after each
// sample, then steps the scheduler.
func (t *Trainer) RunEpoch(ctx context.Context, samples []data.Sample) (Metrics, error) {
	start := time.Now()
	t.Model.Train()
	if t.Shuffle != nil {
		data.Shuffle(samples, t.Shuffle)
	}

	var total float64
	var correct int
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		loss, ok, err := t.score(s)
		if err != nil {
			return Metrics{}, fmt.Errorf("train: sample %d: %w", i, err)
		}
		if err := t.Loss.Backward(); err != nil {
			return Metrics{}, fmt.Errorf("train: sample %d: backward: %w", i, err)
		}
		if err := t.Optimizer.Step(); err != nil {
			return Metrics{}, fmt.Errorf("train: sample %d: step: %w", i, err)
		}
		t.Model.ZeroGrad()
		t.steps++

		total += float64(loss)
		if ok {
			correct++
		}
	}

	t.epoch++
	m := Metrics{
		Epoch:   t.epoch,
		Samples: len(samples),
		LR:      t.Optimizer.LR(),
		Elapsed: time.Since(start),
	}
	if n := len(samples); n > 0 {
		m.Loss = total / float64(n)
		m.Accuracy = float64(correct) / float64(n)
	}
	if t.Scheduler != nil {
		t.Scheduler.Step()
	}
	t.logger.Info("epoch finished", "train", m)
	return m, nil
}

// Evaluate scores samples in evaluation mode without touching parameters.
// The model is returned to training mode afterwards.
func (t *Trainer) Evaluate(ctx context.Context, samples []data.Sample) (Metrics, error) {
	start := time.Now()
	t.Model.Eval()
	defer t.Model.Train()

	var total float64
	var correct int
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		loss, ok, err := t.score(s)
		if err != nil {
			return Metrics{}, fmt.Errorf("evaluate: sample %d: %w", i, err)
		}
		total += float64(loss)
		if ok {
			correct++
		}
	}

	m := Metrics{Epoch: t.epoch, Samples: len(samples), LR: t.Optimizer.LR(), Elapsed: time.Since(start)}
	if n := len(samples); n > 0 {
		m.Loss = total / float64(n)
		m.Accuracy = float64(correct) / float64(n)
	}
	t.logger.Info("evaluation finished", "eval", m)
	return m, nil
}

// EpochResult is what callbacks see at the end of every epoch.
type EpochResult struct {
	RunID string
	Steps int64
	Train Metrics
	Eval  *Metrics // nil when Fit has no evaluation set
}

// monitored returns the loss callbacks track: evaluation loss when present.
func (r EpochResult) monitored() float64 {
	if r.Eval != nil {
		return r.Eval.Loss
	}
	return r.Train.Loss
}

// Fit trains for the given number of epochs, evaluating on eval after each
// epoch when it is non-empty. It returns the per-epoch results.
func (t *Trainer) Fit(ctx context.Context, trainSet, eval []data.Sample, epochs int) ([]EpochResult, error) {
	t.logger.Info("training started",
		"epochs", epochs,
		"train_samples", len(trainSet),
		"eval_samples", len(eval),
		"params", t.Model.NumParams(),
	)

	var results []EpochResult
	for range epochs {
		m, err := t.RunEpoch(ctx, trainSet)
		if err != nil {
			return results, err
		}
		res := EpochResult{RunID: t.runID, Steps: t.steps, Train: m}
		if len(eval) > 0 {
			em, err := t.Evaluate(ctx, eval)
			if err != nil {
				return results, err
			}
			res.Eval = &em
		}
		results = append(results, res)

		stop, err := t.notify(ctx, res)
		if err != nil {
			return results, err
		}
		if stop {
			t.logger.Info("training stopped early", "epoch", m.Epoch)
			break
		}
	}
	t.logger.Info("training finished", "epochs", len(results), "steps", t.steps)
	return results, nil
}

// notify runs every callback; all callbacks see the result even when an
// earlier one asks to stop.
func (t *Trainer) notify(ctx context.Context, res EpochResult) (bool, error) {
	stop := false
	for _, cb := range t.Callbacks {
		err := cb.OnEpochEnd(ctx, t, res)
		switch {
		case errors.Is(err, ErrStopTraining):
			stop = true
		case err != nil:
			return false, fmt.Errorf("train: callback: %w", err)
		}
	}
	return stop, nil
}
