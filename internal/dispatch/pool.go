package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"callqa-backend/internal/shared/metrics"
	"callqa-backend/internal/shared/telemetry"
)

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is one unit of background work.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers over a bounded queue.
// Submit blocks when the queue is full, which back-pressures triggers
// instead of growing unbounded in-process work.
type Pool struct {
	tasks    chan Task
	workers  int
	inFlight atomic.Int64

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewPool starts workers draining a queue of the given size.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		baseCtx: ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	telemetry.Info("dispatch.pool_started", map[string]any{"workers": workers, "queueSize": queueSize})
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.inFlight.Add(1)
		metrics.IncInFlight()
		task(p.baseCtx)
		metrics.DecInFlight()
		p.inFlight.Add(-1)
	}
}

// Submit enqueues a task, blocking while the queue is full. Returns the
// context error if ctx is canceled before space frees up, or ErrPoolClosed
// once shutdown has begun.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports the number of tasks currently executing.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// QueueDepth reports the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// Capacity reports the queue size.
func (p *Pool) Capacity() int {
	return cap(p.tasks)
}

// Shutdown stops accepting work and waits for queued and running tasks to
// finish. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	telemetry.Info("dispatch.pool_stopped", nil)
}
