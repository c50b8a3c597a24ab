package inspector

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RequestBudget tracks GitHub's advertised rate limit and holds requests back
// once it is spent or a Retry-After cooldown is in effect.
//
// It complements the per-run throttle: the throttle bounds concurrency, the
// budget reacts to what the API reports.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	scouted   bool
	now       func() time.Time
	changed   chan struct{}
}

func NewRequestBudget() *RequestBudget {
	return &RequestBudget{
		remaining: 5000,
		reset:     time.Now().Add(time.Hour),
		now:       time.Now,
		changed:   make(chan struct{}),
	}
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Wait blocks until one request may be issued or ctx is done.
func (b *RequestBudget) Wait(ctx context.Context) error {
	if ctx == nil {
		return errors.New("request budget: nil context")
	}
	if b == nil {
		return nil
	}

	for {
		delay, changed, ok := b.take()
		if ok {
			return nil
		}

		var timer *time.Timer
		var timeout <-chan time.Time
		if delay >= 0 {
			timer = time.NewTimer(delay)
			timeout = timer.C
		}

		var err error
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-changed:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
		if err != nil {
			return err
		}
	}
}

// take consumes one unit of budget if possible. Otherwise it returns how long
// to wait (negative: until the next update) and the channel signalled on
// updates.
func (b *RequestBudget) take() (time.Duration, <-chan struct{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Before(b.cooldown) {
		return b.cooldown.Sub(now), b.changed, false
	}
	if b.remaining > 0 {
		b.remaining--
		return 0, nil, true
	}
	if now.Before(b.reset) {
		return b.reset.Sub(now), b.changed, false
	}
	// The window has rolled over but no response has confirmed it yet: let a
	// single request through and hold everyone else until its headers arrive.
	if !b.scouted {
		b.scouted = true
		return 0, nil, true
	}
	return -1, b.changed, false
}

// Observe updates the budget from a response's rate-limit headers.
func (b *RequestBudget) Observe(resp *http.Response) {
	if b == nil || resp == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false

	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			until := b.now().Add(time.Duration(seconds) * time.Second)
			if until.After(b.cooldown) {
				b.cooldown = until
				changed = true
			}
		}
	}

	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n != b.remaining {
			b.remaining = n
			changed = true
		}
	}

	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil && epoch > 0 {
			reset := time.Unix(epoch, 0)
			if !b.reset.Equal(reset) {
				b.reset = reset
				changed = true
			}
		}
	}

	if changed {
		b.scouted = false
		close(b.changed)
		b.changed = make(chan struct{})
	}
}
