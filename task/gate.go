package task

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is the admission control for background task execution. It caps the
// number of tasks in the processing state and serializes access to the
// inference backend with a single exclusive permit.
//
// Waiters are admitted in FIFO order.
type Gate struct {
	slots     *semaphore.Weighted
	inference *semaphore.Weighted
	capacity  int
	inUse     atomic.Int64
}

// NewGate creates a gate with the given processing ceiling.
func NewGate(maxConcurrent int) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Gate{
		slots:     semaphore.NewWeighted(int64(maxConcurrent)),
		inference: semaphore.NewWeighted(1),
		capacity:  maxConcurrent,
	}
}

// Acquire blocks until a processing slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inUse.Add(1)
	return nil
}

// Release returns a processing slot. It must be called exactly once per
// successful Acquire.
func (g *Gate) Release() {
	g.inUse.Add(-1)
	g.slots.Release(1)
}

// Inference runs fn while holding the exclusive inference permit. At most one
// caller in the process executes fn at a time.
func (g *Gate) Inference(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.inference.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.inference.Release(1)
	return fn(ctx)
}

// InUse returns the number of processing slots currently held.
func (g *Gate) InUse() int { return int(g.inUse.Load()) }

// Available returns the number of free processing slots.
func (g *Gate) Available() int { return g.capacity - g.InUse() }

// Capacity returns the processing ceiling.
func (g *Gate) Capacity() int { return g.capacity }
