// Package executor runs telemetry work off the caller's path.
package executor

import (
	"context"
	"log"
	"sync"
)

// Task is a unit of background work. ctx is not derived from the submitter's context and is
// never cancelled: once submitted, a task runs to completion.
type Task func(ctx context.Context)

// Executor accepts tasks. Submit must not block the caller.
type Executor interface {
	Submit(task Task)
}

// Inline runs each task synchronously on the caller's goroutine. Used for deterministic tests.
type Inline struct{}

// Submit runs task immediately with a background context.
func (Inline) Submit(task Task) {
	if task == nil {
		return
	}
	task(context.Background())
}

// Pool is a fixed set of workers draining a buffered queue (the utility queue).
// When the queue is full a task runs on its own goroutine instead of blocking the submitter.
type Pool struct {
	queue chan Task

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	workers  sync.WaitGroup
}

// NewPool starts workers goroutines over a queue of the given capacity. Call Close when shutting down.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{queue: make(chan Task, queueSize)}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.workers.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("executor: task panicked: %v", r)
		}
	}()
	task(context.Background())
}

// Submit enqueues task. It never blocks; tasks submitted after Close are dropped.
func (p *Pool) Submit(task Task) {
	if task == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Printf("executor: pool closed, dropping task")
		return
	}
	p.inflight.Add(1)
	select {
	case p.queue <- task:
	default:
		go p.run(task)
	}
}

// Close stops accepting tasks and waits for queued and running tasks until ctx is done.
// Tasks still running when ctx expires are not interrupted.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		p.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
