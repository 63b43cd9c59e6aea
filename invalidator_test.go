package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/vearutop/frontcache"
)

func TestInvalidator_Invalidate(t *testing.T) {
	i := cache.Invalidator{}

	assert.ErrorIs(t, i.Invalidate(), cache.ErrNothingToInvalidate)

	triggered := 0

	i.Register(func() {
		triggered++
	})

	require.NoError(t, i.Invalidate())
	assert.Equal(t, 1, triggered)

	// Flood protection.
	assert.ErrorIs(t, i.Invalidate(), cache.ErrAlreadyInvalidated)
	assert.Equal(t, 1, triggered)

	i.SkipInterval = time.Millisecond
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, i.Invalidate())
	assert.Equal(t, 2, triggered)
}

func TestInvalidator_RegisterExpirer(t *testing.T) {
	ctx := context.Background()

	m := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})
	require.NoError(t, m.Write(cache.WithTTL(ctx, time.Minute), "key", 123))

	i := cache.Invalidator{SkipInterval: time.Millisecond}
	i.RegisterExpirer(m)

	require.NoError(t, i.Invalidate())

	_, err := m.Read(ctx, "key")
	assert.ErrorIs(t, err, cache.ErrExpiredCacheItem)
}
