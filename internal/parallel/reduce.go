package parallel

import "math"

// SumFloat32 sums partial results over [0, n). Each chunk computes its own
// partial with f(start, end); partials are merged after all chunks finish.
// Accumulation is done in float64 to keep chunking from changing results
// beyond float32 rounding.
func SumFloat32(n int, f func(start, end int) float64, cfg Config) float32 {
	partials := make([]float64, max(Chunks(n, cfg), 1))
	ForRange(n, func(chunk, start, end int) {
		partials[chunk] = f(start, end)
	}, cfg)

	var total float64
	for _, p := range partials {
		total += p
	}
	return float32(total)
}

// MaxFloat32 returns the maximum of per-chunk maxima over [0, n).
// f must return -Inf for an empty range. Returns -Inf when n == 0.
func MaxFloat32(n int, f func(start, end int) float32, cfg Config) float32 {
	chunks := Chunks(n, cfg)
	if chunks == 0 {
		return float32(math.Inf(-1))
	}
	partials := make([]float32, chunks)
	ForRange(n, func(chunk, start, end int) {
		partials[chunk] = f(start, end)
	}, cfg)

	best := partials[0]
	for _, p := range partials[1:] {
		if p > best {
			best = p
		}
	}
	return best
}
