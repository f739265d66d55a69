// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitPending(t *testing.T, k *Keyed, key string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return k.Pending(key) == n }, 2*time.Second, time.Millisecond)
}

func TestKeyedRunsSameKeyInArrivalOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	k := NewKeyed("rundown")
	first, err := k.Acquire(context.Background(), "R1")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = k.Do(context.Background(), "R1", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		waitPending(t, k, "R1", i+1)
	}

	first()
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	assert.Zero(t, k.Pending("R1"))
}

func TestKeyedOtherKeysAreIndependent(t *testing.T) {
	k := NewKeyed("rundown")
	r1, err := k.Acquire(context.Background(), "R1")
	require.NoError(t, err)
	defer r1()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.Do(context.Background(), "R2", func() error { return nil })
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("R2 blocked behind R1")
	}
}

func TestKeyedCancelledWaiterKeepsQueueOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	k := NewKeyed("rundown")
	holder, err := k.Acquire(context.Background(), "R1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := k.Acquire(ctx, "R1")
		cancelled <- err
	}()
	waitPending(t, k, "R1", 2)

	acquired := make(chan Release, 1)
	go func() {
		rel, err := k.Acquire(context.Background(), "R1")
		if err == nil {
			acquired <- rel
		}
	}()
	waitPending(t, k, "R1", 3)

	cancel()
	require.ErrorIs(t, <-cancelled, context.Canceled)

	select {
	case <-acquired:
		t.Fatal("third caller overtook the holder")
	case <-time.After(20 * time.Millisecond):
	}

	holder()
	select {
	case rel := <-acquired:
		rel()
	case <-time.After(2 * time.Second):
		t.Fatal("third caller never acquired the lock")
	}
	waitPending(t, k, "R1", 0)
}

func TestKeyedReleaseIsIdempotent(t *testing.T) {
	k := NewKeyed("rundown")
	rel, err := k.Acquire(context.Background(), "R1")
	require.NoError(t, err)
	rel()
	rel()

	again, err := k.Acquire(context.Background(), "R1")
	require.NoError(t, err)
	again()
	assert.Zero(t, k.Pending("R1"))
}

func TestKeyedDoReleasesOnError(t *testing.T) {
	k := NewKeyed("rundown")
	err := k.Do(context.Background(), "R1", func() error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, k.Pending("R1"))
}
