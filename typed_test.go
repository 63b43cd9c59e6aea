package cache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/frontcache"
)

type testUser struct {
	ID   int
	Name string
}

func TestFetchTyped(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher()

	var builds int32

	build := func(ctx context.Context) (*testUser, error) {
		atomic.AddInt32(&builds, 1)

		return &testUser{ID: 42, Name: "John"}, nil
	}

	u, err := cache.FetchTyped(ctx, f, "user:42", time.Minute, build)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "John", u.Name)

	u, err = cache.FetchTyped(ctx, f, "user:42", time.Minute, build)
	require.NoError(t, err)
	assert.Equal(t, 42, u.ID)

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestFetchTyped_confirmedEmpty(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher()

	var builds int32

	build := func(ctx context.Context) (*testUser, error) {
		atomic.AddInt32(&builds, 1)

		// A typed nil is a legitimate "nothing found" result.
		return nil, nil
	}

	u, err := cache.FetchTyped(ctx, f, "user:404", time.Minute, build)
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = cache.FetchTyped(ctx, f, "user:404", time.Minute, build)
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestFetchTyped_unexpectedType(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher()

	require.NoError(t, f.Set(ctx, "key", "a string", time.Minute))

	_, err := cache.FetchTyped(ctx, f, "key", time.Minute, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, cache.ErrUnexpectedCachedType)
}

func TestFetchTyped_nilBuild(t *testing.T) {
	f := newTestFetcher()

	_, err := cache.FetchTyped[int](context.Background(), f, "key", time.Minute, nil)
	assert.ErrorIs(t, err, cache.ErrNilBuildFunc)
}

func TestFetchBoundedTyped(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher()

	u, err := cache.FetchBoundedTyped(ctx, f, "user:42", time.Minute,
		func(ctx context.Context, id int) (*testUser, error) {
			return &testUser{ID: id, Name: "John"}, nil
		}, 42, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 42, u.ID)
}

func TestFetchBoundedTyped_timeout(t *testing.T) {
	ctx := context.Background()
	f := cache.NewFetcher(cache.FetcherConfig{
		WaitCeiling: 60 * time.Millisecond,
		StoreConfig: cache.MemoryConfig{ExpirationJitter: -1},
	})

	u, err := cache.FetchBoundedTyped(ctx, f, "user:42", time.Minute,
		func(ctx context.Context, id int) (*testUser, error) {
			time.Sleep(300 * time.Millisecond)

			return &testUser{ID: id}, nil
		}, 42, time.Minute)

	// Timeout with no remain data comes back as the zero value.
	require.NoError(t, err)
	assert.Nil(t, u)
}
