package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateCeiling(t *testing.T) {
	const capacity = 3
	const workers = 20

	g := NewGate(capacity)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			defer g.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > capacity {
		t.Errorf("observed %d concurrent holders, ceiling is %d", p, capacity)
	}
	if g.InUse() != 0 {
		t.Errorf("InUse() = %d after all released, want 0", g.InUse())
	}
	if g.Available() != capacity {
		t.Errorf("Available() = %d, want %d", g.Available(), capacity)
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := NewGate(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Fatal("expected context error while gate is full")
	}
	if g.InUse() != 1 {
		t.Errorf("InUse() = %d, want 1", g.InUse())
	}
}

func TestGateInferenceExclusive(t *testing.T) {
	g := NewGate(8)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Inference(context.Background(), func(ctx context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p != 1 {
		t.Errorf("observed %d concurrent inference callers, want 1", p)
	}
}

func TestGateDefaultsToOneSlot(t *testing.T) {
	g := NewGate(0)
	if g.Capacity() != 1 {
		t.Errorf("Capacity() = %d, want 1", g.Capacity())
	}
}
