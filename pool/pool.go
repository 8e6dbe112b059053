// Package pool provides a bounded worker pool for fan-out lookups.
//
// Tasks are submitted without blocking and wait for one of a fixed number of
// execution slots. Waiting tasks are granted slots in the order they ask for
// one. The pool returns no values: tasks report results through state owned
// by the caller.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the default number of concurrently executing tasks.
const DefaultSize = 5

// Stats is a point-in-time view of pool counters.
type Stats struct {
	// Submitted is the number of tasks passed to Enqueue.
	Submitted int64
	// Completed is the number of tasks that have returned or panicked.
	Completed int64
	// Panicked is the number of tasks that panicked and were recovered.
	Panicked int64
	// PeakInFlight is the highest number of tasks observed executing at once.
	PeakInFlight int64
}

// Pool executes submitted tasks with at most Size of them in flight.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	inFlight  atomic.Int64
	peak      atomic.Int64
}

// New creates a pool that runs at most size tasks concurrently.
// A size below 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Size returns the concurrency cap.
func (p *Pool) Size() int {
	return int(p.size)
}

// Enqueue schedules task for execution and returns immediately.
// The task runs once a slot is free. A panic inside task is recovered and
// counted; it does not affect other tasks or the pool.
// Tasks may themselves call Enqueue.
func (p *Pool) Enqueue(task func()) {
	p.submitted.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// Acquire cannot fail with a background context.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		p.run(task)
	}()
}

// run executes one task inside a slot, tracking in-flight counters.
func (p *Pool) run(task func()) {
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
		}
		p.inFlight.Add(-1)
		p.completed.Add(1)
	}()

	task()
}

// Wait blocks until every enqueued task has completed, including tasks
// enqueued by other tasks while Wait is blocked. Calling Wait again after
// the pool has drained returns immediately.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns the current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:    p.submitted.Load(),
		Completed:    p.completed.Load(),
		Panicked:     p.panicked.Load(),
		PeakInFlight: p.peak.Load(),
	}
}
