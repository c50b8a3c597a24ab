// Package throttle bounds and paces outbound GitHub API calls made by checks.
//
// A Throttle is created once per run and shared by pointer across every check
// running in that run. Each remote call is made while holding a Permit:
//
//	branch, err := throttle.Call(t, func() (string, error) {
//		return insp.DefaultBranch(ctx)
//	})
package throttle

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultCapacity is the number of concurrently held permits.
	DefaultCapacity = 2

	// DefaultPacing is the delay applied after a slot frees up and before the
	// permit is handed to the caller.
	DefaultPacing = 100 * time.Millisecond
)

type Throttle struct {
	sem      *semaphore.Weighted
	capacity int
	pacing   time.Duration

	inUse atomic.Int64
	peak  atomic.Int64
}

// New returns a Throttle granting at most capacity concurrent permits, each
// delayed by pacing once capacity is available. Capacity below 1 is treated
// as 1 and negative pacing as 0.
func New(capacity int, pacing time.Duration) *Throttle {
	if capacity < 1 {
		capacity = 1
	}
	if pacing < 0 {
		pacing = 0
	}
	return &Throttle{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		pacing:   pacing,
	}
}

// Default returns a Throttle using DefaultCapacity and DefaultPacing.
func Default() *Throttle {
	return New(DefaultCapacity, DefaultPacing)
}

// Acquire blocks until a slot is free, then waits for the pacing delay while
// holding it. It never fails and has no timeout.
func (t *Throttle) Acquire() *Permit {
	// Weighted.Acquire only errors when its context is done.
	_ = t.sem.Acquire(context.Background(), 1)

	held := t.inUse.Add(1)
	for {
		p := t.peak.Load()
		if held <= p || t.peak.CompareAndSwap(p, held) {
			break
		}
	}

	if t.pacing > 0 {
		time.Sleep(t.pacing)
	}
	return &Permit{t: t}
}

// Capacity reports the maximum number of concurrently held permits.
func (t *Throttle) Capacity() int { return t.capacity }

// Pacing reports the per-acquisition delay.
func (t *Throttle) Pacing() time.Duration { return t.pacing }

// InUse reports how many permits are currently held.
func (t *Throttle) InUse() int { return int(t.inUse.Load()) }

// Peak reports the highest number of permits held at once since creation.
func (t *Throttle) Peak() int { return int(t.peak.Load()) }

// Permit is one occupied slot. Release it as soon as the remote call it
// guards returns.
type Permit struct {
	t        *Throttle
	released atomic.Bool
}

// Release returns the slot to the Throttle. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil || p.t == nil {
		return
	}
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	p.t.inUse.Add(-1)
	p.t.sem.Release(1)
}

// Call runs fn, which must perform exactly one remote call, under a single
// permit and releases the permit before returning.
func Call[T any](t *Throttle, fn func() (T, error)) (T, error) {
	p := t.Acquire()
	defer p.Release()
	return fn()
}
