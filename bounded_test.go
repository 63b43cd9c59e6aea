package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/frontcache"
)

func seedRemain(t *testing.T, s cache.Store, key string, v interface{}) {
	t.Helper()

	ctx := cache.WithSlidingTTL(context.Background(), time.Minute)
	require.NoError(t, s.Write(ctx, cache.RemainKey(cache.DefaultKeyPrefix, key), v))
}

func TestFetcher_FetchBounded_fastBuild(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})
	f := cache.NewFetcher(cache.FetcherConfig{Store: store})

	v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
		assert.Equal(t, "arg1", arg)

		return "v1", nil
	}, "arg1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	// Primary entry and remain data are both populated.
	pv, st := f.Peek(ctx, "key")
	assert.Equal(t, cache.StateFound, st)
	assert.Equal(t, "v1", pv)

	rv, err := store.Read(ctx, cache.RemainKey(cache.DefaultKeyPrefix, "key"))
	require.NoError(t, err)
	assert.Equal(t, "v1", rv)
}

func TestFetcher_FetchBounded_timeoutServesRemainData(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})
	f := cache.NewFetcher(cache.FetcherConfig{
		Store:       store,
		WaitCeiling: 60 * time.Millisecond,
	})

	seedRemain(t, store, "key", "v0")

	start := time.Now()

	v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
		time.Sleep(300 * time.Millisecond)

		return "v1", nil
	}, nil, time.Minute)
	require.NoError(t, err)

	// The caller is served the last known value within the ceiling.
	assert.Equal(t, "v0", v)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	// The build was not cancelled, it lands for future callers.
	time.Sleep(400 * time.Millisecond)

	pv, st := f.Peek(ctx, "key")
	assert.Equal(t, cache.StateFound, st)
	assert.Equal(t, "v1", pv)

	rv, err := store.Read(ctx, cache.RemainKey(cache.DefaultKeyPrefix, "key"))
	require.NoError(t, err)
	assert.Equal(t, "v1", rv)
}

func TestFetcher_FetchBounded_coldTimeout(t *testing.T) {
	ctx := context.Background()
	f := cache.NewFetcher(cache.FetcherConfig{
		WaitCeiling: 60 * time.Millisecond,
		StoreConfig: cache.MemoryConfig{ExpirationJitter: -1},
	})

	start := time.Now()

	v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
		time.Sleep(300 * time.Millisecond)

		return "v1", nil
	}, nil, time.Minute)

	// No remain data yet, the caller gets nil, not a fault.
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestFetcher_FetchBounded_buildError(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})
	f := cache.NewFetcher(cache.FetcherConfig{Store: store})

	seedRemain(t, store, "key", "v0")

	v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}, nil, time.Minute)

	// A failing detached build behaves like a timeout.
	require.NoError(t, err)
	assert.Equal(t, "v0", v)

	// Cache is left untouched.
	_, st := f.Peek(ctx, "key")
	assert.Equal(t, cache.StateNotCached, st)
}

func TestFetcher_FetchBounded_emptyResult(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})
	f := cache.NewFetcher(cache.FetcherConfig{Store: store})

	v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
		return nil, nil
	}, nil, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, v)

	// Primary slot distinguishes confirmed emptiness.
	_, st := f.Peek(ctx, "key")
	assert.Equal(t, cache.StateConfirmedEmpty, st)

	// Remain data holds the raw nil, not the marker.
	rv, err := store.Read(ctx, cache.RemainKey(cache.DefaultKeyPrefix, "key"))
	require.NoError(t, err)
	assert.Nil(t, rv)
}

func TestFetcher_FetchBounded_nilBuild(t *testing.T) {
	f := newTestFetcher()

	_, err := f.FetchBounded(context.Background(), "key", time.Minute, nil, nil, time.Minute)
	assert.ErrorIs(t, err, cache.ErrNilBuildFunc)
}

func TestFetcher_FetchBounded_buildsOnce(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher()

	var builds int32

	n := 20

	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			v, err := f.FetchBounded(ctx, "key", time.Minute, func(ctx context.Context, arg interface{}) (interface{}, error) {
				atomic.AddInt32(&builds, 1)
				time.Sleep(30 * time.Millisecond)

				return "v1", nil
			}, nil, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, "v1", v)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}
