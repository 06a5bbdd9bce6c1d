// Package workerpool provides the bounded worker pool parallel blocks run
// their branches on. A Pool may be shared by many invocations and is safe
// for concurrent submission.
package workerpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentweave/core"
)

// DefaultSize is the worker count used when Options.Size is not positive.
const DefaultSize = 3

// Options configures New.
type Options struct {
	// Size is the number of tasks allowed to run at once.
	Size int
	// MaxQueue bounds the number of tasks waiting for a worker. Zero means
	// waiting tasks are never rejected.
	MaxQueue int
}

// Pool bounds concurrent task execution with a weighted semaphore.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	maxQueue int64
	waiting  atomic.Int64
	running  atomic.Int64
}

// New creates a pool.
func New(optFns ...func(o *Options)) *Pool {
	opts := Options{Size: DefaultSize}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}

	return &Pool{
		sem:      semaphore.NewWeighted(int64(opts.Size)),
		size:     opts.Size,
		maxQueue: int64(opts.MaxQueue),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Running returns the number of tasks currently holding a worker.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Acquire blocks until a worker is free. It fails with
// core.ErrWorkerPoolExhausted when the wait queue is full and with ctx.Err()
// when ctx ends first.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	if !p.sem.TryAcquire(1) {
		if p.maxQueue > 0 && p.waiting.Load() >= p.maxQueue {
			return nil, fmt.Errorf("%w: %d tasks already waiting", core.ErrWorkerPoolExhausted, p.maxQueue)
		}

		p.waiting.Add(1)
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)

		if err != nil {
			return nil, err
		}
	}

	p.running.Add(1)

	var released atomic.Bool

	return func() {
		if released.CompareAndSwap(false, true) {
			p.running.Add(-1)
			p.sem.Release(1)
		}
	}, nil
}

type heldKey struct{ pool *Pool }

// Hold returns a copy of ctx marked as running on a worker of p.
func (p *Pool) Hold(ctx context.Context) context.Context {
	return context.WithValue(ctx, heldKey{p}, struct{}{})
}

// Held reports whether ctx already runs on a worker of p. Work started from
// such a context must not wait for another worker of p: with every worker
// held by an ancestor it would wait forever.
func (p *Pool) Held(ctx context.Context) bool {
	return ctx.Value(heldKey{p}) != nil
}

// Submit runs fn on a worker and blocks until it returns.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(p.Hold(ctx))
}
