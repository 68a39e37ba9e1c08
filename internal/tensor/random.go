package tensor

import (
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/convnet/internal/parallel"
)

// RNG is an explicit random-number context threaded through every random
// factory. Each factory call consumes one stream; inside a call every parallel
// chunk draws from its own PCG source derived from (seed, stream, chunk), so
// workers never share a generator.
//
// Results are reproducible for a fixed seed and parallel configuration, but
// change when the number of chunks changes.
type RNG struct {
	seed   uint64
	stream atomic.Uint64
}

// NewRNG creates a random context for seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{seed: seed}
}

// Seed returns the seed the context was created with.
func (r *RNG) Seed() uint64 { return r.seed }

// Split derives an independent child context. Useful to give each layer its
// own generator while keeping the whole model reproducible from one seed.
func (r *RNG) Split() *RNG {
	return NewRNG(splitmix64(r.seed ^ splitmix64(r.nextStream())))
}

// Rand returns a sequential generator on a fresh stream, for callers that
// need scalar draws (shuffling, sampling indices).
func (r *RNG) Rand() *rand.Rand {
	return rand.New(r.source(r.nextStream(), 0))
}

func (r *RNG) nextStream() uint64 {
	return r.stream.Add(1) - 1
}

func (r *RNG) source(stream uint64, chunk int) rand.Source {
	return rand.NewPCG(r.seed, splitmix64(stream<<24^uint64(chunk)))
}

// splitmix64 scrambles x so that nearby stream/chunk ids give unrelated seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// sampler draws one value; built per chunk so no state is shared across workers.
type sampler interface {
	Rand() float64
}

func fillRandom(t *Tensor, rng *RNG, build func(src rand.Source) sampler) {
	stream := rng.nextStream()
	parallel.ForRange(len(t.data), func(chunk, start, end int) {
		s := build(rng.source(stream, chunk))
		for i := start; i < end; i++ {
			t.data[i] = float32(s.Rand())
		}
	}, ParallelConfig())
}

// Normal creates a tensor with values drawn from N(mu, std²).
//
// Example:
//
//	rng := tensor.NewRNG(42)
//	w, err := tensor.Normal(128, 784, 0, 0.05, rng)
func Normal(rows, cols int, mu, std float32, rng *RNG) (*Tensor, error) {
	if std < 0 {
		return nil, invalid("Normal", "negative standard deviation %g", std)
	}
	t := New(rows, cols)
	fillRandom(t, rng, func(src rand.Source) sampler {
		return distuv.Normal{Mu: float64(mu), Sigma: float64(std), Src: src}
	})
	return t, nil
}

// Uniform creates a tensor with values drawn from U[lo, hi).
func Uniform(rows, cols int, lo, hi float32, rng *RNG) (*Tensor, error) {
	if hi < lo {
		return nil, invalid("Uniform", "empty range [%g, %g)", lo, hi)
	}
	t := New(rows, cols)
	if hi == lo {
		t.Fill(lo)
		return t, nil
	}
	fillRandom(t, rng, func(src rand.Source) sampler {
		return distuv.Uniform{Min: float64(lo), Max: float64(hi), Src: src}
	})
	return t, nil
}

// Bernoulli creates a 0/1 tensor where each element is 1 with probability p.
func Bernoulli(rows, cols int, p float32, rng *RNG) (*Tensor, error) {
	if p < 0 || p > 1 {
		return nil, invalid("Bernoulli", "probability %g outside [0, 1]", p)
	}
	t := New(rows, cols)
	fillRandom(t, rng, func(src rand.Source) sampler {
		return distuv.Bernoulli{P: float64(p), Src: src}
	})
	return t, nil
}
