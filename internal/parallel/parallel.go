// Package parallel provides data-parallel execution utilities for convnet.
//
// All loops are synchronous: a call returns only after every chunk finished.
// Chunks run on a persistent process-wide Pool, so no goroutines are spawned
// per call. Callers must not nest parallel loops; in particular a GEMM call
// (which may be internally parallel) is never issued from inside a loop body.
package parallel

import (
	"runtime"
	"sync"
)

// Config decides whether and how finely a loop is split.
type Config struct {
	Enabled      bool // Run chunks on the shared pool.
	NumWorkers   int  // Number of chunks to split work into.
	MinChunkSize int  // Minimum items per chunk to avoid overhead.
}

// DefaultConfig splits loops of 64 or more items across every CPU.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{Enabled: cpus > 1, NumWorkers: cpus, MinChunkSize: 64}
}

// Sequential returns a configuration that runs every loop on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *Pool
)

// shared returns the lazily created process-wide pool.
func shared() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(runtime.GOMAXPROCS(0))
	})
	return defaultPool
}

// Chunks returns the number of contiguous chunks ForRange splits n items into.
func Chunks(n int, cfg Config) int {
	if n <= 0 {
		return 0
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return 1
	}
	chunkSize := chunkSize(n, cfg)
	return (n + chunkSize - 1) / chunkSize
}

func chunkSize(n int, cfg Config) int {
	return max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
}

// ForRange splits [0, n) into contiguous chunks and calls f(chunk, start, end)
// once per chunk. Chunk indices are dense in [0, Chunks(n, cfg)), which lets
// callers keep one private accumulator or generator per chunk.
// Returns the number of chunks used.
func ForRange(n int, f func(chunk, start, end int), cfg Config) int {
	chunks := Chunks(n, cfg)
	switch chunks {
	case 0:
		return 0
	case 1:
		f(0, 0, n)
		return 1
	}

	size := chunkSize(n, cfg)
	shared().Run(chunks, func(c int) {
		start := c * size
		f(c, start, min(start+size, n))
	})
	return chunks
}

// For calls f(i) for every i in [0, n). Indices within a chunk run in order.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}

// ForBatch runs f over the outer x inner grid as one flat loop, so a small
// outer extent (few channels) still spreads across workers.
func ForBatch(outer, inner int, f func(o, i int), cfg Config) {
	For(outer*inner, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}
