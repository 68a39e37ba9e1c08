package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs indexed tasks on a fixed set of long-lived goroutines.
//
// A call to Run publishes one job; idle workers and the calling goroutine
// claim task indices from the job's counter until none remain, so uneven
// tasks balance themselves without a second split.
type Pool struct {
	workers int
	jobs    chan *job

	mu     sync.RWMutex // held for reading while publishing, for writing by Close
	closed bool
}

// job is one Run call. next is the first unclaimed task index.
type job struct {
	fn      func(task int)
	tasks   int64
	next    atomic.Int64
	helpers sync.WaitGroup
}

func (j *job) drain() {
	for {
		task := j.next.Add(1) - 1
		if task >= j.tasks {
			return
		}
		j.fn(int(task))
	}
}

// NewPool starts a pool of workers goroutines; workers <= 0 means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{workers: workers, jobs: make(chan *job, workers)}
	for range workers {
		go func() {
			for j := range p.jobs {
				j.drain()
				j.helpers.Done()
			}
		}()
	}
	return p
}

// NumWorkers reports the pool size.
func (p *Pool) NumWorkers() int { return p.workers }

// Close stops the workers. Run on a closed pool executes tasks in order on
// the caller. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
}

// Run calls fn(task) once for every task in [0, tasks) and returns when all
// calls have finished. The caller executes tasks too.
func (p *Pool) Run(tasks int, fn func(task int)) {
	if tasks <= 0 {
		return
	}
	j := &job{fn: fn, tasks: int64(tasks)}
	helpers := min(p.workers, tasks-1)

	p.mu.RLock()
	if p.closed {
		helpers = 0
	}
	j.helpers.Add(helpers)
	for range helpers {
		p.jobs <- j
	}
	p.mu.RUnlock()

	j.drain()
	j.helpers.Wait()
}
