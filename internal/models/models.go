package models

import (
	"fmt"
	"sort"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// DefaultDropout is the drop probability used by architectures with dropout
// when Config.Dropout is zero.
const DefaultDropout = 0.5

// Config selects and sizes an architecture.
type Config struct {
	Name     string  // "mlp", "lenet5", "alexnet" or "vgg16"
	Channels int     // Input channels (image models)
	Height   int     // Input height (image models)
	Width    int     // Input width (image models)
	Inputs   int     // Input features (mlp); defaults to Channels*Height*Width
	Classes  int     // Output classes
	Hidden   []int   // Hidden layer sizes (mlp); defaults to 500, 300, 100
	Dropout  float32 // Drop probability; defaults to DefaultDropout, negative disables
}

type factory func(cfg Config, rng *tensor.RNG) (*nn.Module, error)

var registry = map[string]factory{
	"mlp": func(cfg Config, rng *tensor.RNG) (*nn.Module, error) {
		in := cfg.Inputs
		if in == 0 {
			in = cfg.Channels * cfg.Height * cfg.Width
		}
		return MLP(in, cfg.Hidden, cfg.Classes, rng)
	},
	"lenet5": func(cfg Config, rng *tensor.RNG) (*nn.Module, error) {
		return LeNet5(cfg.Channels, cfg.Height, cfg.Width, cfg.Classes, cfg.dropout(), rng)
	},
	"alexnet": func(cfg Config, rng *tensor.RNG) (*nn.Module, error) {
		return AlexNet(cfg.Channels, cfg.Height, cfg.Width, cfg.Classes, cfg.dropout(), rng)
	},
	"vgg16": func(cfg Config, rng *tensor.RNG) (*nn.Module, error) {
		return VGG16(cfg.Channels, cfg.Height, cfg.Width, cfg.Classes, cfg.dropout(), rng)
	},
}

func (c Config) dropout() float32 {
	switch {
	case c.Dropout == 0:
		return DefaultDropout
	case c.Dropout < 0:
		return 0
	}
	return c.Dropout
}

// Names returns the registered architecture names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the architecture named by cfg.Name.
func Build(cfg Config, rng *tensor.RNG) (*nn.Module, error) {
	f, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("models: %w: unknown model %q (have %v)",
			tensor.ErrInvalidArgument, cfg.Name, Names())
	}
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("models: %w: classes must be positive", tensor.ErrInvalidArgument)
	}
	return f(cfg, rng)
}

// MLP builds a multi-layer perceptron: Linear+ReLU for every hidden size,
// then a final Linear to out. A nil hidden slice uses 500, 300, 100.
func MLP(in int, hidden []int, out int, rng *tensor.RNG) (*nn.Module, error) {
	if hidden == nil {
		hidden = []int{500, 300, 100}
	}
	b := newVectorBuilder("MLP", in, rng)
	for _, h := range hidden {
		b.linear(h)
		b.relu()
	}
	b.linear(out)
	return b.build()
}

// LeNet5 builds the classic two-stage convolutional network:
//
//	Conv(6, 5x5) ReLU MaxPool(2) Conv(16, 5x5) ReLU MaxPool(2)
//	Flatten Dropout Linear(84) ReLU Linear(classes)
//
// A 32x32 input gives 16x5x5 = 400 features after flattening.
func LeNet5(channels, height, width, classes int, dropout float32, rng *tensor.RNG) (*nn.Module, error) {
	b := newBuilder("LeNet5", channels, height, width, rng)
	b.conv(6, 5, 1, 0)
	b.relu()
	b.maxPool(2, 2)
	b.conv(16, 5, 1, 0)
	b.relu()
	b.maxPool(2, 2)
	b.flatten()
	b.dropout(dropout)
	b.linear(84)
	b.relu()
	b.linear(classes)
	return b.build()
}

// AlexNet builds the five-convolution network with local response
// normalization after the first two stages. Designed for 227x227 inputs.
func AlexNet(channels, height, width, classes int, dropout float32, rng *tensor.RNG) (*nn.Module, error) {
	b := newBuilder("AlexNet", channels, height, width, rng)
	b.conv(96, 11, 4, 0)
	b.relu()
	b.lrn()
	b.maxPool(3, 2)

	b.conv(256, 5, 1, 2)
	b.relu()
	b.lrn()
	b.maxPool(3, 2)

	b.conv(384, 3, 1, 1)
	b.relu()
	b.conv(384, 3, 1, 1)
	b.relu()
	b.conv(256, 3, 1, 1)
	b.relu()
	b.maxPool(3, 2)

	b.flatten()
	b.dropout(dropout)
	b.linear(4096)
	b.relu()
	b.dropout(dropout)
	b.linear(4096)
	b.relu()
	b.linear(classes)
	return b.build()
}

// VGG16 builds a four-block VGG-style network (two 3x3 convolutions per
// block, 64 to 512 channels) for 32x32 inputs.
func VGG16(channels, height, width, classes int, dropout float32, rng *tensor.RNG) (*nn.Module, error) {
	b := newBuilder("VGG16", channels, height, width, rng)
	for _, ch := range []int{64, 128, 256, 512} {
		b.conv(ch, 3, 1, 1)
		b.relu()
		b.conv(ch, 3, 1, 1)
		b.relu()
		b.maxPool(2, 2)
	}
	b.flatten()
	b.dropout(dropout)
	b.linear(4096)
	b.relu()
	b.dropout(dropout)
	b.linear(4096)
	b.relu()
	b.linear(classes)
	return b.build()
}
