// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lock provides the serialization primitives of the ingest pipeline:
// a FIFO mutex per key and playlist locks with explicit reentrancy handles.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/rundownd/internal/metrics"
)

// Keyed is a set of FIFO mutexes addressed by string keys. Callers of the
// same key run one at a time in arrival order; different keys never block
// each other. Lock contention is not an error.
type Keyed struct {
	kind string

	mu      sync.Mutex
	tails   map[string]*turn
	pending map[string]int
}

type turn struct {
	done chan struct{}
}

// NewKeyed returns an empty Keyed. kind labels the wait metrics.
func NewKeyed(kind string) *Keyed {
	return &Keyed{
		kind:    kind,
		tails:   make(map[string]*turn),
		pending: make(map[string]int),
	}
}

// Release ends a turn. Calling it more than once is harmless.
type Release func()

// Acquire queues for key and blocks until every earlier caller released it.
// If ctx ends first the caller leaves without the lock, but its place in the
// queue is only given up after its predecessor finishes, so later callers
// keep their order.
func (k *Keyed) Acquire(ctx context.Context, key string) (Release, error) {
	me := &turn{done: make(chan struct{})}

	k.mu.Lock()
	prev := k.tails[key]
	k.tails[key] = me
	k.pending[key]++
	k.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			k.mu.Lock()
			if k.tails[key] == me {
				delete(k.tails, key)
			}
			if k.pending[key]--; k.pending[key] <= 0 {
				delete(k.pending, key)
			}
			k.mu.Unlock()
			close(me.done)
		})
	}

	start := time.Now()
	if prev != nil {
		select {
		case <-prev.done:
		case <-ctx.Done():
			go func() {
				<-prev.done
				release()
			}()
			return nil, ctx.Err()
		}
	}
	metrics.ObserveLockWait(k.kind, time.Since(start))
	return release, nil
}

// Do runs fn while holding key.
func (k *Keyed) Do(ctx context.Context, key string, fn func() error) error {
	release, err := k.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Pending returns the number of callers holding or queued for key.
func (k *Keyed) Pending(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pending[key]
}
