package cache

import (
	"context"
	"time"
)

type (
	skipReadCtxKey   struct{}
	ttlCtxKey        struct{}
	slidingTTLCtxKey struct{}
)

// WithTTL returns context with absolute entry expiration, expiry time is
// computed at write time as now plus ttl.
func WithTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, ttlCtxKey{}, ttl)
}

// TTL returns absolute expiration duration from context or DefaultTTL.
func TTL(ctx context.Context) time.Duration {
	ttl, _ := ctx.Value(ttlCtxKey{}).(time.Duration)

	return ttl
}

// WithSlidingTTL returns context with sliding entry expiration, the expiry
// window is refreshed on every read of the entry.
//
// Sliding expiration takes precedence over WithTTL.
func WithSlidingTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, slidingTTLCtxKey{}, ttl)
}

// SlidingTTL returns sliding expiration duration from context, zero if unset.
func SlidingTTL(ctx context.Context) time.Duration {
	ttl, _ := ctx.Value(slidingTTLCtxKey{}).(time.Duration)

	return ttl
}

// WithSkipRead returns context with cache read ignored.
//
// With such context cache.Reader should always return ErrCacheItemNotFound discarding cached value.
func WithSkipRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipReadCtxKey{}, true)
}

// SkipRead returns true if cache read is ignored in context.
func SkipRead(ctx context.Context) bool {
	_, ok := ctx.Value(skipReadCtxKey{}).(bool)

	return ok
}
