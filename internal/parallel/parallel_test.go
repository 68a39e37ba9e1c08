package parallel

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	tests := []struct {
		n    int
		cfg  Config
		want int
	}{
		{n: 0, cfg: cfg, want: 0},
		{n: 9, cfg: cfg, want: 1},  // below MinChunkSize
		{n: 40, cfg: cfg, want: 4}, // 10 per chunk
		{n: 41, cfg: cfg, want: 4}, // 11 per chunk, last one short
		{n: 25, cfg: cfg, want: 3}, // chunk size clamps up to 10
		{n: 1000, cfg: Sequential(), want: 1},
		{n: 1000, cfg: Config{Enabled: true, NumWorkers: 1, MinChunkSize: 1}, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Chunks(tt.n, tt.cfg), "n=%d cfg=%+v", tt.n, tt.cfg)
	}
}

func TestFor_SequentialRunsInOrder(t *testing.T) {
	var order []int
	For(50, func(i int) { order = append(order, i) }, Sequential())

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestForBatch_VisitsGrid(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 2}
	channels, taps := 3, 25 // a 5x5 kernel over 3 input planes
	seen := make([]int32, channels*taps)

	ForBatch(channels, taps, func(c, k int) {
		assert.Less(t, c, channels)
		assert.Less(t, k, taps)
		atomic.AddInt32(&seen[c*taps+k], 1)
	}, cfg)

	for i, n := range seen {
		assert.Equal(t, int32(1), n, "cell %d", i)
	}
}

func TestForRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 7, MinChunkSize: 3}
	n := 101
	hits := make([]int32, n)

	chunks := ForRange(n, func(chunk, start, end int) {
		assert.GreaterOrEqual(t, chunk, 0)
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	}, cfg)

	assert.Equal(t, Chunks(n, cfg), chunks)
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	chunks := ForRange(0, func(_, _, _ int) { called = true }, DefaultConfig())
	assert.Zero(t, chunks)
	assert.False(t, called)
}

func TestSumFloat32(t *testing.T) {
	data := make([]float32, 10_000)
	for i := range data {
		data[i] = 0.5
	}
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 16}

	got := SumFloat32(len(data), func(start, end int) float64 {
		var s float64
		for _, v := range data[start:end] {
			s += float64(v)
		}
		return s
	}, cfg)

	assert.InDelta(t, 5000.0, got, 1e-3)
}

func TestMaxFloat32(t *testing.T) {
	data := []float32{3, -1, 9, 2, 9, 0, -7, 4}
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}

	got := MaxFloat32(len(data), func(start, end int) float32 {
		best := float32(math.Inf(-1))
		for _, v := range data[start:end] {
			best = max(best, v)
		}
		return best
	}, cfg)
	assert.Equal(t, float32(9), got)

	assert.True(t, math.IsInf(float64(MaxFloat32(0, nil, cfg)), -1))
}

func TestPool_RunsEveryTaskOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Close()
	require.Equal(t, 4, p.NumWorkers())

	for _, tasks := range []int{1, 3, 4, 5, 97} {
		hits := make([]int32, tasks)
		p.Run(tasks, func(task int) {
			atomic.AddInt32(&hits[task], 1)
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "tasks=%d task=%d", tasks, i)
		}
	}
}

func TestPool_ConcurrentCallers(t *testing.T) {
	p := NewPool(3)
	defer p.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(50, func(task int) { total.Add(int64(task)) })
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(8*1225), total.Load())
}

func TestPool_ClosedRunsInOrderOnCaller(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	var order []int
	p.Run(6, func(task int) { order = append(order, task) })
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)

	p.Run(0, func(int) { t.Fatal("no tasks") })
}

func BenchmarkForRange(b *testing.B) {
	xs := make([]float32, 1<<16)
	sum := func(start, end int) float64 {
		var s float64
		for _, v := range xs[start:end] {
			s += float64(v)
		}
		return s
	}
	for name, cfg := range map[string]Config{"pooled": DefaultConfig(), "sequential": Sequential()} {
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				_ = SumFloat32(len(xs), sum, cfg)
			}
		})
	}
}
