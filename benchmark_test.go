package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	cache "github.com/vearutop/frontcache"
)

func Benchmark_Fetch_hit(b *testing.B) {
	ctx := context.Background()
	f := cache.NewFetcher(cache.FetcherConfig{
		StoreConfig: cache.MemoryConfig{ExpirationJitter: -1},
	})

	_, err := f.Fetch(ctx, "key", time.Hour, func(ctx context.Context) (interface{}, error) {
		return 123, nil
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, err := f.Fetch(ctx, "key", time.Hour, func(ctx context.Context) (interface{}, error) {
				return 123, nil
			})
			if err != nil {
				b.Fatal(err)
			}
		}
	})
}

func Benchmark_Memory_read(b *testing.B) {
	ctx := context.Background()
	c := cache.NewMemory(cache.MemoryConfig{ExpirationJitter: -1})

	cardinality := 10000
	for i := 0; i < cardinality; i++ {
		_ = c.Write(cache.WithTTL(ctx, time.Hour), "key"+strconv.Itoa(i), i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			i++

			_, _ = c.Read(ctx, "key"+strconv.Itoa(i%cardinality))
		}
	})
}

func Benchmark_ShardedMap_read(b *testing.B) {
	ctx := context.Background()
	c := cache.NewShardedMap(cache.MemoryConfig{ExpirationJitter: -1})
	defer c.Close()

	cardinality := 10000
	for i := 0; i < cardinality; i++ {
		_ = c.Write(cache.WithTTL(ctx, time.Hour), "key"+strconv.Itoa(i), i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			i++

			_, _ = c.Read(ctx, "key"+strconv.Itoa(i%cardinality))
		}
	})
}

func Benchmark_LockRegistry_Acquire(b *testing.B) {
	ctx := context.Background()
	r := cache.NewLockRegistry()

	defer r.Close()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l := r.Acquire(ctx, "key")
			l.Lock()
			l.Unlock()
		}
	})
}
