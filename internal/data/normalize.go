package data

import "github.com/born-ml/convnet/internal/tensor"

// flatRange is the smallest value range that is still rescaled; anything
// flatter normalizes to all zeros.
const flatRange = 1e-10

// NormalizeMinMax rescales t to [0, 1] using its own minimum and maximum.
// A constant (or empty) tensor yields zeros.
func NormalizeMinMax(t *tensor.Tensor) *tensor.Tensor {
	lo, hi := t.MinValue(), t.MaxValue()
	span := hi - lo
	if t.Len() == 0 || span < flatRange {
		return tensor.ValuesLike(0, t)
	}
	return t.SubScalar(lo).DivScalar(span)
}

// normalizeSlice applies NormalizeMinMax to a raw pixel slice in place.
func normalizeSlice(pixels []float32) {
	if len(pixels) == 0 {
		return
	}
	lo, hi := pixels[0], pixels[0]
	for _, v := range pixels[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	for i, v := range pixels {
		if span < flatRange {
			pixels[i] = 0
			continue
		}
		pixels[i] = (v - lo) / span
	}
}
