package cache

import (
	"context"
	"fmt"
	"time"
)

// FetchTyped is a typed version of Fetcher.Fetch.
//
// A confirmed-empty result comes back as the zero value of T. A cached value
// of an incompatible type fails with ErrUnexpectedCachedType.
func FetchTyped[T any](
	ctx context.Context,
	f *Fetcher,
	key string,
	cacheTime time.Duration,
	build func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if build == nil {
		return zero, ErrNilBuildFunc
	}

	v, err := f.Fetch(ctx, key, cacheTime, func(ctx context.Context) (interface{}, error) {
		val, err := build(ctx)
		if err != nil {
			return nil, err
		}

		return val, nil
	})
	if err != nil {
		return zero, err
	}

	return castCached[T](key, v)
}

// FetchBoundedTyped is a typed version of Fetcher.FetchBounded.
//
// A confirmed-empty result, a timeout with no remain data and a fallen-back
// empty remain value all come back as the zero value of T.
func FetchBoundedTyped[T, P any](
	ctx context.Context,
	f *Fetcher,
	key string,
	cacheTime time.Duration,
	build func(ctx context.Context, arg P) (T, error),
	arg P,
	remainTTL time.Duration,
) (T, error) {
	var zero T

	if build == nil {
		return zero, ErrNilBuildFunc
	}

	v, err := f.FetchBounded(ctx, key, cacheTime, func(ctx context.Context, a interface{}) (interface{}, error) {
		p, _ := a.(P)

		val, err := build(ctx, p)
		if err != nil {
			return nil, err
		}

		return val, nil
	}, arg, remainTTL)
	if err != nil {
		return zero, err
	}

	return castCached[T](key, v)
}

func castCached[T any](key string, v interface{}) (T, error) {
	var zero T

	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T for key %q", ErrUnexpectedCachedType, v, key)
	}

	return t, nil
}
