package train

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/data"
	"github.com/born-ml/convnet/internal/models"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func synthetic(t *testing.T, n int) []data.Sample {
	t.Helper()
	samples, err := data.Synthetic(data.SyntheticConfig{Samples: n, Classes: 3, Height: 6, Width: 4, Seed: 11})
	require.NoError(t, err)
	return samples
}

func mlpTrainer(t *testing.T, seed uint64, logger *slog.Logger) *Trainer {
	t.Helper()
	m, err := models.MLP(24, []int{16}, 3, tensor.NewRNG(seed))
	require.NoError(t, err)
	return New(m, nn.NewCrossEntropyLoss(m), optim.NewAdamW(m, optim.AdamWConfig{LR: 0.01}), logger)
}

func TestTrainer_LearnsSynthetic(t *testing.T) {
	tr := mlpTrainer(t, 1, discardLogger())
	tr.Shuffle = tensor.NewRNG(2)
	trainSet, evalSet := synthetic(t, 48), synthetic(t, 12)

	results, err := tr.Fit(context.Background(), trainSet, evalSet, 20)
	require.NoError(t, err)
	require.Len(t, results, 20)

	first, last := results[0], results[len(results)-1]
	assert.Less(t, last.Train.Loss, first.Train.Loss/2)
	require.NotNil(t, last.Eval)
	assert.GreaterOrEqual(t, last.Eval.Accuracy, 0.9)
	assert.Equal(t, int64(20*48), tr.Steps())
	assert.Equal(t, 20, tr.Epoch())
	assert.Equal(t, tr.RunID(), last.RunID)
}

func TestTrainer_ImageModel(t *testing.T) {
	rng := tensor.NewRNG(3)
	c, err := nn.NewConv2D(1, 2, conv.Square(3, 1, 1), true, rng)
	require.NoError(t, err)
	pool, err := nn.NewMaxPool2D(conv.Square(2, 2, 0))
	require.NoError(t, err)
	head, err := nn.NewLinear(2*3*2, 3, true, rng)
	require.NoError(t, err)
	m := nn.NewModule().MustAdd(c, nn.NewReLU(), pool, nn.NewFlatten(), head)

	tr := New(m, nn.NewCrossEntropyLoss(m), optim.NewSGD(m, optim.SGDConfig{LR: 0.05}), discardLogger())
	metrics, err := tr.RunEpoch(context.Background(), synthetic(t, 6))
	require.NoError(t, err)
	assert.Equal(t, 6, metrics.Samples)
	assert.Equal(t, 1, metrics.Epoch)
	assert.Greater(t, metrics.Loss, 0.0)

	vec, err := data.NewSample([]float32{1, 2}, 0, 3, 0, 0, 0)
	require.NoError(t, err)
	_, err = tr.RunEpoch(context.Background(), []data.Sample{vec})
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestTrainer_EvaluateLeavesParameters(t *testing.T) {
	tr := mlpTrainer(t, 4, discardLogger())
	before := make([]*tensor.Tensor, 0)
	for _, p := range tr.Model.Params() {
		before = append(before, p.Value().Clone())
	}

	m, err := tr.Evaluate(context.Background(), synthetic(t, 9))
	require.NoError(t, err)
	assert.Equal(t, 9, m.Samples)
	assert.Equal(t, 0, m.Epoch)
	assert.True(t, tr.Model.IsTraining())
	for i, p := range tr.Model.Params() {
		assert.True(t, before[i].Equal(p.Value()))
		assert.Nil(t, p.Grad())
	}
}

func TestTrainer_ContextCanceled(t *testing.T) {
	tr := mlpTrainer(t, 5, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.RunEpoch(ctx, synthetic(t, 3))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = tr.Fit(ctx, synthetic(t, 3), nil, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_Scheduler(t *testing.T) {
	tr := mlpTrainer(t, 6, discardLogger())
	tr.Scheduler = optim.NewStepLR(tr.Optimizer, 1, 0.5)

	results, err := tr.Fit(context.Background(), synthetic(t, 3), nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Metrics carry the rate used during the epoch.
	assert.InDelta(t, 0.01, results[0].Train.LR, 1e-9)
	assert.InDelta(t, 0.005, results[1].Train.LR, 1e-9)
	assert.InDelta(t, 0.0025, results[2].Train.LR, 1e-9)
	assert.InDelta(t, 0.00125, tr.Optimizer.LR(), 1e-9)
	assert.Nil(t, results[0].Eval)
}

func TestTrainer_EarlyStopping(t *testing.T) {
	tr := mlpTrainer(t, 7, discardLogger())
	var seen int
	tr.Callbacks = []Callback{
		NewEarlyStopping(1, 1e9),
		CallbackFunc(func(context.Context, *Trainer, EpochResult) error {
			seen++
			return nil
		}),
	}

	results, err := tr.Fit(context.Background(), synthetic(t, 3), nil, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, seen)
}

func TestTrainer_CallbackError(t *testing.T) {
	tr := mlpTrainer(t, 8, discardLogger())
	boom := errors.New("boom")
	tr.Callbacks = []Callback{CallbackFunc(func(context.Context, *Trainer, EpochResult) error { return boom })}

	results, err := tr.Fit(context.Background(), synthetic(t, 3), nil, 3)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, results, 1)
}

func TestModelCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.cnvt")
	tr := mlpTrainer(t, 9, discardLogger())
	ckpt := NewModelCheckpoint(path, "mlp")
	ckpt.Optimizer = "adamw"
	ckpt.Config = map[string]float64{"lr": 0.01}
	tr.Callbacks = []Callback{ckpt}

	_, err := tr.Fit(context.Background(), synthetic(t, 12), synthetic(t, 6), 3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, ckpt.Saved(), 1)

	loaded, err := serialization.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mlp", loaded.Header.Model)
	require.NotNil(t, loaded.Header.Training)
	assert.Equal(t, tr.RunID(), loaded.Header.Training.RunID)
	assert.Equal(t, "adamw", loaded.Header.Training.Optimizer)

	fresh := mlpTrainer(t, 10, discardLogger())
	assert.NoError(t, serialization.LoadStateDict(fresh.Model, loaded))
}

func TestTrainer_Logging(t *testing.T) {
	var buf bytes.Buffer
	tr := mlpTrainer(t, 12, slog.New(slog.NewJSONHandler(&buf, nil)))

	_, err := tr.Fit(context.Background(), synthetic(t, 3), synthetic(t, 3), 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"`+tr.RunID()+`"`)
	for _, msg := range []string{"training started", "epoch finished", "evaluation finished", "training finished"} {
		assert.True(t, strings.Contains(out, msg), msg)
	}
	assert.Contains(t, out, `"train":{"epoch":1`)
}
