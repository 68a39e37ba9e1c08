package data

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// SyntheticConfig controls Synthetic.
type SyntheticConfig struct {
	Samples  int     // Number of samples.
	Classes  int     // Number of classes; each gets its own stripe pattern.
	Channels int     // Image channels (default: 1).
	Height   int     // Image height (default: 8).
	Width    int     // Image width (default: 8).
	Noise    float32 // Uniform noise amplitude added to the pattern (default: 0.1).
	Seed     uint64
}

func (c *SyntheticConfig) applyDefaults() {
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.Height == 0 {
		c.Height = 8
	}
	if c.Width == 0 {
		c.Width = 8
	}
	if c.Noise == 0 {
		c.Noise = 0.1
	}
}

// Synthetic generates a deterministic, learnable image classification set.
// Class k lights up the horizontal band of rows [k*H/classes, (k+1)*H/classes)
// on every channel; noise is added and each image is min-max normalized.
// Samples cycle through the classes in order, so every class is represented
// once Samples >= Classes.
func Synthetic(cfg SyntheticConfig) ([]Sample, error) {
	cfg.applyDefaults()
	if cfg.Samples <= 0 || cfg.Classes <= 0 {
		return nil, fmt.Errorf("data: %w: samples=%d classes=%d must be positive",
			tensor.ErrInvalidArgument, cfg.Samples, cfg.Classes)
	}
	if cfg.Classes > cfg.Height {
		return nil, fmt.Errorf("data: %w: %d classes need at least %d rows, have %d",
			tensor.ErrInvalidArgument, cfg.Classes, cfg.Classes, cfg.Height)
	}

	rng := tensor.NewRNG(cfg.Seed)
	plane := cfg.Height * cfg.Width
	samples := make([]Sample, cfg.Samples)
	for i := range samples {
		class := i % cfg.Classes
		noise, err := tensor.Uniform(cfg.Channels*plane, 1, -cfg.Noise, cfg.Noise, rng)
		if err != nil {
			return nil, err
		}
		pixels := noise.Data()

		lo := class * cfg.Height / cfg.Classes
		hi := (class + 1) * cfg.Height / cfg.Classes
		for c := range cfg.Channels {
			for h := lo; h < hi; h++ {
				row := pixels[c*plane+h*cfg.Width : c*plane+(h+1)*cfg.Width]
				for w := range row {
					row[w]++
				}
			}
		}
		normalizeSlice(pixels)

		if samples[i], err = NewSample(pixels, class, cfg.Classes, cfg.Channels, cfg.Height, cfg.Width); err != nil {
			return nil, err
		}
	}
	return samples, nil
}
