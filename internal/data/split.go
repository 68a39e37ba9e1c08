package data

import "github.com/born-ml/convnet/internal/tensor"

// Shuffle permutes samples in place using a generator drawn from rng.
func Shuffle(samples []Sample, rng *tensor.RNG) {
	r := rng.Rand()
	r.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// Split divides samples at ratio (0.0 to 1.0) into train and test slices
// sharing the original backing array.
func Split(samples []Sample, ratio float32) (train, test []Sample) {
	switch {
	case ratio <= 0:
		return nil, samples
	case ratio >= 1:
		return samples, nil
	}
	idx := int(float32(len(samples)) * ratio)
	return samples[:idx], samples[idx:]
}
