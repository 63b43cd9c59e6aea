package cache_test

import (
	"context"
	"fmt"
	"time"

	cache "github.com/vearutop/frontcache"
)

func ExampleNewFetcher() {
	ctx := context.Background()
	f := cache.NewFetcher()

	builds := 0

	for i := 0; i < 3; i++ {
		v, err := f.Fetch(ctx, "answer", time.Minute, func(ctx context.Context) (interface{}, error) {
			builds++

			return 42, nil
		})
		if err != nil {
			fmt.Println(err)

			return
		}

		fmt.Println(v)
	}

	fmt.Println("builds:", builds)

	// Output:
	// 42
	// 42
	// 42
	// builds: 1
}

func ExampleFetcher_FetchBounded() {
	ctx := context.Background()
	f := cache.NewFetcher(cache.FetcherConfig{
		WaitCeiling: 50 * time.Millisecond,
	})

	// A previously served value is kept aside for slow rebuilds.
	remainCtx := cache.WithSlidingTTL(ctx, time.Minute)
	_ = f.Store().Write(remainCtx, cache.RemainKey(cache.DefaultKeyPrefix, "report"), 100)

	v, err := f.FetchBounded(ctx, "report", time.Minute,
		func(ctx context.Context, arg interface{}) (interface{}, error) {
			time.Sleep(200 * time.Millisecond)

			return 200, nil
		}, nil, time.Minute)
	if err != nil {
		fmt.Println(err)

		return
	}

	// The slow build exceeds the wait ceiling, the kept value is served.
	fmt.Println(v)

	// Output:
	// 100
}
