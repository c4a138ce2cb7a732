// Package worker provides a bounded pool for fan-out derivation work,
// mainly per-entity edge computation during index builds.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing one result. Jobs must honor ctx so an
// abandoned build stops promptly.
type Job[T any] func(ctx context.Context) T

// Pool runs jobs across a fixed number of goroutines. Results are drained
// into the collector as they complete, so callers may submit any number of
// jobs before calling Wait without filling a bounded results buffer.
// Cancelling the parent context aborts queued and in-flight work.
type Pool[T any] struct {
	workers     int
	jobQueue    chan Job[T]
	results     chan T
	collected   []T
	collectDone chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
}

// NewPool creates a pool with the given parallelism, bounded by the parent
// context's lifetime.
func NewPool[T any](parent context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool[T]{
		workers:     workers,
		jobQueue:    make(chan Job[T], workers*2),
		results:     make(chan T, workers*2),
		collectDone: make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start launches the workers and the result collector.
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results for the pool's whole lifetime. Without it a full
// results channel would block the workers and, transitively, Submit.
func (p *Pool[T]) collect() {
	defer close(p.collectDone)
	for result := range p.results {
		p.collected = append(p.collected, result)
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job. Submissions after cancellation are dropped.
func (p *Pool[T]) Submit(job Job[T]) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it and returns the
// collected results. Order is completion order, not submission order.
func (p *Pool[T]) Wait() []T {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	return p.collected
}

// Shutdown aborts the pool immediately, discarding pending jobs.
func (p *Pool[T]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
}

func (p *Pool[T]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
