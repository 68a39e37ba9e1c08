// Package config loads the YAML run configuration used by the convnet CLI.
//
// Load starts from Default, overlays the file (unknown keys are rejected),
// and validates the result. The New* helpers turn the validated settings
// into models, optimizers and schedulers.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/convnet/internal/models"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level run configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Data      DataConfig      `yaml:"data"`
	Train     TrainConfig     `yaml:"train"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
}

// ModelConfig selects the architecture and input shape.
type ModelConfig struct {
	Name     string  `yaml:"name"`
	Channels int     `yaml:"channels"`
	Height   int     `yaml:"height"`
	Width    int     `yaml:"width"`
	Classes  int     `yaml:"classes"`
	Hidden   []int   `yaml:"hidden,omitempty"`
	Dropout  float32 `yaml:"dropout,omitempty"`
}

// DataConfig selects the dataset.
type DataConfig struct {
	Source      string  `yaml:"source"` // "synthetic", "csv", "idx" or "folder"
	TrainPath   string  `yaml:"train_path,omitempty"`
	TestPath    string  `yaml:"test_path,omitempty"`
	TrainLabels string  `yaml:"train_labels,omitempty"` // idx and folder
	TestLabels  string  `yaml:"test_labels,omitempty"`  // idx and folder
	Limit       int     `yaml:"limit,omitempty"`        // idx and folder; 0 loads everything
	HasHeader   bool    `yaml:"has_header,omitempty"`   // csv only
	Samples     int     `yaml:"samples"`                // synthetic only
	Noise       float32 `yaml:"noise,omitempty"`        // synthetic only
	Split       float32 `yaml:"split"`                  // train fraction when no test set is given
}

// TrainConfig controls the training loop.
type TrainConfig struct {
	Epochs        int                  `yaml:"epochs"`
	Seed          uint64               `yaml:"seed"`
	Shuffle       bool                 `yaml:"shuffle"`
	Checkpoint    string               `yaml:"checkpoint,omitempty"`
	EarlyStopping *EarlyStoppingConfig `yaml:"early_stopping,omitempty"`
}

// EarlyStoppingConfig enables early stopping.
type EarlyStoppingConfig struct {
	Patience  int     `yaml:"patience"`
	Threshold float64 `yaml:"threshold"`
}

// OptimizerConfig selects the update rule.
type OptimizerConfig struct {
	Name        string     `yaml:"name"` // "sgd" or "adamw"
	LR          float32    `yaml:"lr"`
	Momentum    float32    `yaml:"momentum,omitempty"`
	WeightDecay float32    `yaml:"weight_decay,omitempty"`
	Betas       [2]float32 `yaml:"betas,omitempty"`
	Eps         float32    `yaml:"eps,omitempty"`
}

// ScheduleConfig selects the learning-rate schedule.
type ScheduleConfig struct {
	Name     string  `yaml:"name"` // "none", "step", "exponential" or "cosine"
	StepSize int     `yaml:"step_size,omitempty"`
	Gamma    float32 `yaml:"gamma,omitempty"`
	TMax     int     `yaml:"t_max,omitempty"`
	MinLR    float32 `yaml:"min_lr,omitempty"`
}

// RuntimeConfig tunes the compute substrate.
type RuntimeConfig struct {
	GEMM     string `yaml:"gemm"`    // "blas" or "naive"
	Workers  int    `yaml:"workers"` // 0 uses every CPU
	Parallel bool   `yaml:"parallel"`
}

// Default returns a configuration that trains LeNet-5 on a synthetic set.
func Default() Config {
	return Config{
		Model: ModelConfig{Name: "lenet5", Channels: 1, Height: 32, Width: 32, Classes: 4},
		Data:  DataConfig{Source: "synthetic", Samples: 200, Noise: 0.1, Split: 0.8},
		Train: TrainConfig{Epochs: 5, Seed: 42, Shuffle: true},
		Optimizer: OptimizerConfig{
			Name:        "adamw",
			LR:          0.001,
			WeightDecay: 0.01,
			Betas:       [2]float32{0.9, 0.999},
			Eps:         1e-8,
		},
		Schedule: ScheduleConfig{Name: "none"},
		Runtime:  RuntimeConfig{GEMM: "blas", Parallel: true},
	}
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes YAML from r over Default and validates the result.
// An empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if !slices.Contains(models.Names(), c.Model.Name) {
		return invalid("model.name %q not one of %v", c.Model.Name, models.Names())
	}
	if c.Model.Classes < 2 {
		return invalid("model.classes must be at least 2, got %d", c.Model.Classes)
	}
	if c.Model.Channels <= 0 || c.Model.Height <= 0 || c.Model.Width <= 0 {
		return invalid("model input %dx%dx%d must be positive", c.Model.Channels, c.Model.Height, c.Model.Width)
	}
	if c.Model.Dropout >= 1 {
		return invalid("model.dropout must be below 1, got %v", c.Model.Dropout)
	}

	switch c.Data.Source {
	case "synthetic":
		if c.Data.Samples < c.Model.Classes {
			return invalid("data.samples %d is fewer than %d classes", c.Data.Samples, c.Model.Classes)
		}
	case "csv":
		if c.Data.TrainPath == "" {
			return invalid("data.train_path is required for csv data")
		}
	case "idx", "folder":
		if c.Data.TrainPath == "" || c.Data.TrainLabels == "" {
			return invalid("data.train_path and data.train_labels are required for %s data", c.Data.Source)
		}
		if (c.Data.TestPath == "") != (c.Data.TestLabels == "") {
			return invalid("data.test_path and data.test_labels must be given together")
		}
		if c.Data.Source == "idx" && c.Model.Channels != 1 {
			return invalid("idx data is single-channel, model.channels is %d", c.Model.Channels)
		}
		if c.Data.Source == "folder" && c.Model.Channels != 1 && c.Model.Channels != 3 {
			return invalid("folder images are gray or RGB, model.channels is %d", c.Model.Channels)
		}
		if c.Data.Limit < 0 {
			return invalid("data.limit must not be negative")
		}
	default:
		return invalid("data.source %q not one of [synthetic csv idx folder]", c.Data.Source)
	}
	if c.Data.Split <= 0 || c.Data.Split > 1 {
		return invalid("data.split must be in (0, 1], got %v", c.Data.Split)
	}

	if c.Train.Epochs <= 0 {
		return invalid("train.epochs must be positive, got %d", c.Train.Epochs)
	}
	if es := c.Train.EarlyStopping; es != nil && es.Patience <= 0 {
		return invalid("train.early_stopping.patience must be positive, got %d", es.Patience)
	}

	if c.Optimizer.LR <= 0 {
		return invalid("optimizer.lr must be positive, got %v", c.Optimizer.LR)
	}
	switch c.Optimizer.Name {
	case "sgd":
		if c.Optimizer.Momentum < 0 || c.Optimizer.Momentum >= 1 {
			return invalid("optimizer.momentum must be in [0, 1), got %v", c.Optimizer.Momentum)
		}
	case "adamw":
		for _, b := range c.Optimizer.Betas {
			if b < 0 || b >= 1 {
				return invalid("optimizer.betas must be in [0, 1), got %v", c.Optimizer.Betas)
			}
		}
	default:
		return invalid("optimizer.name %q not one of [sgd adamw]", c.Optimizer.Name)
	}
	if c.Optimizer.WeightDecay < 0 {
		return invalid("optimizer.weight_decay must not be negative")
	}

	switch c.Schedule.Name {
	case "", "none":
	case "step":
		if c.Schedule.StepSize <= 0 || c.Schedule.Gamma <= 0 {
			return invalid("schedule step needs positive step_size and gamma")
		}
	case "exponential":
		if c.Schedule.Gamma <= 0 {
			return invalid("schedule exponential needs a positive gamma")
		}
	case "cosine":
		if c.Schedule.TMax <= 0 || c.Schedule.MinLR < 0 {
			return invalid("schedule cosine needs positive t_max and non-negative min_lr")
		}
	default:
		return invalid("schedule.name %q not one of [none step exponential cosine]", c.Schedule.Name)
	}

	if _, err := tensor.ParseGEMM(c.Runtime.GEMM); err != nil {
		return invalid("runtime.gemm: %v", err)
	}
	if c.Runtime.Workers < 0 {
		return invalid("runtime.workers must not be negative")
	}
	return nil
}

// Architecture converts the model section for models.Build.
func (c Config) Architecture() models.Config {
	return models.Config{
		Name:     c.Model.Name,
		Channels: c.Model.Channels,
		Height:   c.Model.Height,
		Width:    c.Model.Width,
		Classes:  c.Model.Classes,
		Hidden:   c.Model.Hidden,
		Dropout:  c.Model.Dropout,
	}
}

// NewOptimizer builds the configured optimizer bound to m.
func (c Config) NewOptimizer(m *nn.Module) (optim.Optimizer, error) {
	o := c.Optimizer
	switch o.Name {
	case "sgd":
		return optim.NewSGD(m, optim.SGDConfig{LR: o.LR, Momentum: o.Momentum, WeightDecay: o.WeightDecay}), nil
	case "adamw":
		return optim.NewAdamW(m, optim.AdamWConfig{LR: o.LR, Betas: o.Betas, Eps: o.Eps, WeightDecay: o.WeightDecay}), nil
	}
	return nil, invalid("optimizer.name %q", o.Name)
}

// OptimizerParams returns the hyperparameters recorded in checkpoints.
func (c Config) OptimizerParams() map[string]float64 {
	o := c.Optimizer
	params := map[string]float64{"lr": float64(o.LR), "weight_decay": float64(o.WeightDecay)}
	if o.Name == "sgd" {
		params["momentum"] = float64(o.Momentum)
	} else {
		params["beta1"], params["beta2"], params["eps"] = float64(o.Betas[0]), float64(o.Betas[1]), float64(o.Eps)
	}
	return params
}

// NewScheduler builds the configured schedule, or nil for "none".
func (c Config) NewScheduler(o optim.Optimizer) optim.Scheduler {
	s := c.Schedule
	switch s.Name {
	case "step":
		return optim.NewStepLR(o, s.StepSize, s.Gamma)
	case "exponential":
		return optim.NewExponentialLR(o, s.Gamma)
	case "cosine":
		return optim.NewCosineLR(o, s.TMax, s.MinLR)
	}
	return nil
}

// ParallelConfig returns the parallel settings for the tensor kernels.
func (c Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	cfg.Enabled = c.Runtime.Parallel
	if c.Runtime.Workers > 0 {
		cfg.NumWorkers = c.Runtime.Workers
	} else {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if !cfg.Enabled {
		cfg = parallel.Sequential()
	}
	return cfg
}
