package cache

import (
	"context"
	"time"
)

// buildTask captures parameters of a detached build.
type buildTask struct {
	key       string
	cacheTime time.Duration
	remainTTL time.Duration
	arg       interface{}
}

// buildResult delivers the outcome of a detached build.
type buildResult struct {
	val interface{}
	err error
}

// FetchBounded returns value from cache or builds it off the caller routine,
// waiting for the result at most WaitCeiling.
//
// When the ceiling elapses the last known good value of the key is returned
// from the remain-data slot (nil when there is none), and the build keeps
// running in background to refresh both the primary entry and the remain-data
// slot for future callers. The remain-data slot is refreshed on every
// successful build and expires after remainTTL of no timeouts reading it.
//
// A failing detached build is treated like a timeout: the failure is logged
// and remain data is served, cache is left untouched.
func (f *Fetcher) FetchBounded(
	ctx context.Context,
	key string,
	cacheTime time.Duration,
	build func(ctx context.Context, arg interface{}) (interface{}, error),
	arg interface{},
	remainTTL time.Duration,
) (interface{}, error) {
	if build == nil {
		return nil, ErrNilBuildFunc
	}

	if IsReservedKey(key) {
		return nil, ErrReservedKey
	}

	// Performing initial check before critical section.
	if v, st := f.Peek(ctx, key); st != StateNotCached {
		return v, nil
	}

	l := f.locks.Acquire(ctx, key)
	l.Lock()
	defer l.Unlock()

	// Re-check in critical section, another caller may have built the value
	// while this one was waiting for the lock.
	if v, st := f.Peek(ctx, key); st != StateNotCached {
		return v, nil
	}

	task := buildTask{key: key, cacheTime: cacheTime, remainTTL: remainTTL, arg: arg}
	done := make(chan buildResult, 1)

	// The build must be able to outlive the bounded wait below, cancellation
	// and deadline of the caller context are dropped.
	go f.buildDetached(detachedContext{ctx}, task, build, done)

	select {
	case res := <-done:
		if res.err == nil {
			if isNil(res.val) {
				return nil, nil
			}

			return res.val, nil
		}

		f.log.Warn(ctx, "cache value build failed, serving remain data",
			"name", f.config.Name,
			"key", key,
			"error", res.err)
	case <-time.After(f.config.WaitCeiling):
		f.stat.Add(ctx, MetricTimeout, 1, "name", f.config.Name)
		f.log.Warn(ctx, "cache value build timed out, serving remain data",
			"name", f.config.Name,
			"remainKey", RemainKey(f.config.KeyPrefix, key))
	}

	f.stat.Add(ctx, MetricFallback, 1, "name", f.config.Name)

	return f.remainValue(ctx, key), nil
}

// buildDetached runs the producer and stores its result, it is not cancelled
// when the caller stops waiting.
func (f *Fetcher) buildDetached(
	ctx context.Context,
	task buildTask,
	build func(ctx context.Context, arg interface{}) (interface{}, error),
	done chan<- buildResult,
) {
	f.log.Debug(ctx, "building cache value in background", "name", f.config.Name, "key", task.key)

	v, err := build(ctx, task.arg)
	if err != nil {
		f.stat.Add(ctx, MetricFailed, 1, "name", f.config.Name)

		done <- buildResult{err: err}

		return
	}

	if err := f.writeBuilt(ctx, task.key, v, task.cacheTime); err != nil {
		f.log.Error(ctx, "failed to store built value in background",
			"name", f.config.Name,
			"key", task.key,
			"error", err)
	}

	// Remain data keeps the raw result, nil included, never the empty marker.
	rk := RemainKey(f.config.KeyPrefix, task.key)
	if err := f.upstream.Write(WithSlidingTTL(ctx, task.remainTTL), rk, v); err != nil {
		f.log.Error(ctx, "failed to store remain data",
			"name", f.config.Name,
			"key", rk,
			"error", err)
	}

	f.stat.Add(ctx, MetricBuild, 1, "name", f.config.Name)

	done <- buildResult{val: v}
}

// remainValue reads the last known good value of a key, nil when there is none.
func (f *Fetcher) remainValue(ctx context.Context, key string) interface{} {
	v, err := f.upstream.Read(ctx, RemainKey(f.config.KeyPrefix, key))
	if err != nil {
		return nil
	}

	if _, ok := v.(confirmedEmpty); ok {
		return nil
	}

	return v
}
