package train

import (
	"context"
	"math"
	"strconv"

	"github.com/born-ml/convnet/internal/serialization"
)

// Callback is notified at the end of every epoch. Returning ErrStopTraining
// ends Fit after the current epoch; any other error aborts it.
type Callback interface {
	OnEpochEnd(ctx context.Context, t *Trainer, res EpochResult) error
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(ctx context.Context, t *Trainer, res EpochResult) error

// OnEpochEnd calls f.
func (f CallbackFunc) OnEpochEnd(ctx context.Context, t *Trainer, res EpochResult) error {
	return f(ctx, t, res)
}

// EarlyStopping stops training when the monitored loss has not improved by
// more than Threshold for Patience consecutive epochs.
type EarlyStopping struct {
	Patience  int
	Threshold float64

	best    float64
	badRuns int
}

// NewEarlyStopping creates an EarlyStopping callback.
func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{Patience: patience, Threshold: threshold, best: math.Inf(1)}
}

// OnEpochEnd implements Callback.
func (c *EarlyStopping) OnEpochEnd(_ context.Context, _ *Trainer, res EpochResult) error {
	loss := res.monitored()
	if loss < c.best-c.Threshold {
		c.best = loss
		c.badRuns = 0
		return nil
	}
	c.badRuns++
	if c.badRuns >= c.Patience {
		return ErrStopTraining
	}
	return nil
}

// ModelCheckpoint saves the model every time the monitored loss improves.
type ModelCheckpoint struct {
	Path      string
	Model     string             // architecture name stored in the header
	Optimizer string             // optimizer name stored in the header
	Config    map[string]float64 // optimizer hyperparameters stored in the header

	best  float64
	saved int
}

// NewModelCheckpoint creates a ModelCheckpoint writing to path.
func NewModelCheckpoint(path, model string) *ModelCheckpoint {
	return &ModelCheckpoint{Path: path, Model: model, best: math.Inf(1)}
}

// Saved returns how many times a checkpoint was written.
func (c *ModelCheckpoint) Saved() int { return c.saved }

// OnEpochEnd implements Callback.
func (c *ModelCheckpoint) OnEpochEnd(_ context.Context, t *Trainer, res EpochResult) error {
	loss := res.monitored()
	if loss >= c.best {
		return nil
	}
	c.best = loss

	state := &serialization.TrainingState{
		RunID:           res.RunID,
		Epoch:           res.Train.Epoch,
		Step:            res.Steps,
		Loss:            loss,
		Accuracy:        res.Train.Accuracy,
		Optimizer:       c.Optimizer,
		OptimizerConfig: c.Config,
	}
	if res.Eval != nil {
		state.Accuracy = res.Eval.Accuracy
	}
	header := serialization.Header{
		Model:    c.Model,
		Training: state,
		Metadata: map[string]string{"params": strconv.Itoa(t.Model.NumParams())},
	}
	if err := serialization.SaveModule(c.Path, t.Model, header); err != nil {
		return err
	}
	c.saved++
	t.logger.Info("checkpoint saved", "path", c.Path, "loss", loss, "epoch", res.Train.Epoch)
	return nil
}
