// Package dispatch fans decode work out to a fixed worker pool.
package dispatch

import "sync"

// Pool defaults.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 8
)

// Task is one unit of work: an immutable window plus the absolute stream
// offset it was taken from. Workers never mutate the window.
type Task struct {
	Window []byte
	Offset int64
}

// Result pairs a task with the output the pool function produced for it.
type Result struct {
	Task
	Data []byte
}

type batch struct {
	tasks   []Task
	results chan<- Result
	wg      *sync.WaitGroup
}

// Pool is a fixed-size worker pool applying one function to submitted
// tasks. It is process-wide state: create it once before the first buffer
// is scanned and Close it after the last.
type Pool struct {
	fn      func([]byte) []byte
	batches chan batch
	workers sync.WaitGroup
}

// NewPool starts the worker goroutines. workers <= 0 selects
// DefaultWorkers.
func NewPool(workers int, fn func([]byte) []byte) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{fn: fn, batches: make(chan batch)}
	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.workers.Done()
	for b := range p.batches {
		for _, t := range b.tasks {
			b.results <- Result{Task: t, Data: p.fn(t.Window)}
		}
		b.wg.Done()
	}
}

// Map submits tasks in batches of batchSize (DefaultBatchSize when <= 0,
// batching amortizes dispatch overhead) and returns the result channel.
// Results arrive in completion order, not submission order; the channel is
// closed once every task has produced a result, so draining it is the
// barrier between consecutive buffers.
func (p *Pool) Map(tasks []Task, batchSize int) <-chan Result {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	results := make(chan Result, len(tasks))
	go func() {
		var wg sync.WaitGroup
		for start := 0; start < len(tasks); start += batchSize {
			end := start + batchSize
			if end > len(tasks) {
				end = len(tasks)
			}
			wg.Add(1)
			p.batches <- batch{tasks: tasks[start:end], results: results, wg: &wg}
		}
		wg.Wait()
		close(results)
	}()
	return results
}

// Close shuts the pool down and waits for the workers to exit. No Map call
// may be in flight or follow.
func (p *Pool) Close() {
	close(p.batches)
	p.workers.Wait()
}
