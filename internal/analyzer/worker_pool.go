package analyzer

import (
	"runtime"
	"sync"
)

// WorkerPool bounds stage parallelism across analysis requests. Jobs are
// submitted through batches; each batch tracks its own completion, so
// concurrent callers sharing one pool never wait on each other's jobs.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
}

// NewWorkerPool creates a worker pool. A non-positive worker count defaults
// to the number of CPUs.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers. Calling Start more than once is a no-op.
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job()
	}
}

// NewBatch creates a completion-tracked group of jobs on the pool.
func (wp *WorkerPool) NewBatch() *Batch {
	return &Batch{pool: wp}
}

// Close shuts down the pool. No job may be submitted after Close.
func (wp *WorkerPool) Close() {
	close(wp.jobQueue)
}

// Batch is one caller's set of jobs on a shared pool.
type Batch struct {
	pool *WorkerPool
	wg   sync.WaitGroup
}

// Submit queues a job and registers it with the batch.
func (b *Batch) Submit(job func()) {
	b.wg.Add(1)
	b.pool.jobQueue <- func() {
		defer b.wg.Done()
		job()
	}
}

// Wait blocks until every job submitted through this batch has finished.
// Jobs from other batches on the same pool are not waited on.
func (b *Batch) Wait() {
	b.wg.Wait()
}
