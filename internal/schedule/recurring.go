// Package schedule runs background work on a fixed interval.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Recurring runs a function on a fixed interval until stopped. At most one run
// loop is active at a time.
type Recurring struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Start begins calling fn every interval, replacing any loop already running.
// The first call happens after one interval. A non-positive interval only stops
// the current loop.
func (r *Recurring) Start(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if interval <= 0 {
		r.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go r.loop(runCtx, gen, interval, fn)
}

func (r *Recurring) loop(ctx context.Context, gen uint64, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.finish(gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

func (r *Recurring) finish(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen && r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Stop cancels the running loop without waiting for an in-flight call, so it is
// safe to call from inside fn.
func (r *Recurring) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Recurring) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
