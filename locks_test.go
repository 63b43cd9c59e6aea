package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/frontcache"
)

func TestLockRegistry_Acquire_idempotent(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry()
	defer r.Close()

	l1 := r.Acquire(ctx, "key")
	l2 := r.Acquire(ctx, "key")
	assert.Same(t, l1, l2)

	l3 := r.Acquire(ctx, "other")
	assert.NotSame(t, l1, l3)
}

func TestLockRegistry_Acquire_concurrent(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry()
	defer r.Close()

	n := 100
	handles := make(chan *cache.KeyLock, n)

	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			handles <- r.Acquire(ctx, "key")
		}()
	}

	wg.Wait()
	close(handles)

	first := <-handles
	for l := range handles {
		assert.Same(t, first, l)
	}
}

func TestLockRegistry_Acquire_independentKeys(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry()
	defer r.Close()

	la := r.Acquire(ctx, "a")
	la.Lock()
	defer la.Unlock()

	// Locking another key must not block on the held one.
	acquired := make(chan struct{})

	go func() {
		lb := r.Acquire(ctx, "b")
		lb.Lock()
		lb.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock of an independent key blocked")
	}
}

func TestLockRegistry_reclaim_idle(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry(cache.LockRegistryConfig{
		SlidingTTL:         50 * time.Millisecond,
		ReclaimJobInterval: 20 * time.Millisecond,
	})
	defer r.Close()

	l1 := r.Acquire(ctx, "key")

	// Untouched for longer than the sliding window, the handle is reclaimed.
	time.Sleep(200 * time.Millisecond)

	l2 := r.Acquire(ctx, "key")
	assert.NotSame(t, l1, l2)
}

func TestLockRegistry_reclaim_heldSurvives(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry(cache.LockRegistryConfig{
		SlidingTTL:         50 * time.Millisecond,
		ReclaimJobInterval: 20 * time.Millisecond,
	})
	defer r.Close()

	l1 := r.Acquire(ctx, "key")
	l1.Lock()

	// Expiry elapses while the critical section is busy, the same handle must
	// be served so a concurrent build cannot start.
	time.Sleep(200 * time.Millisecond)

	l2 := r.Acquire(ctx, "key")
	assert.Same(t, l1, l2)

	l1.Unlock()
}

func TestLockRegistry_Acquire_slidingKeepsHandle(t *testing.T) {
	ctx := context.Background()
	r := cache.NewLockRegistry(cache.LockRegistryConfig{
		SlidingTTL:         80 * time.Millisecond,
		ReclaimJobInterval: 20 * time.Millisecond,
	})
	defer r.Close()

	l1 := r.Acquire(ctx, "key")

	// Frequent acquires refresh the sliding window.
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)

		require.Same(t, l1, r.Acquire(ctx, "key"))
	}
}

func TestKeyLock_Held(t *testing.T) {
	l := &cache.KeyLock{}
	assert.False(t, l.Held())

	l.Lock()
	assert.True(t, l.Held())

	l.Unlock()
	assert.False(t, l.Held())
}
