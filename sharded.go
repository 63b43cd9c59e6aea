package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/cespare/xxhash/v2"
)

const shards = 64

type bucket struct {
	sync.RWMutex
	data map[string]entry
}

var _ Store = &ShardedMap{}

// ShardedMap is an in-memory cache with keys spread over fixed number of
// buckets to reduce lock contention.
type ShardedMap struct {
	buckets [shards]bucket
	closed  chan struct{}

	config MemoryConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// NewShardedMap creates an instance of sharded in-memory cache with optional configuration.
func NewShardedMap(cfg ...MemoryConfig) *ShardedMap {
	config := MemoryConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.DeleteExpiredAfter == 0 {
		config.DeleteExpiredAfter = 24 * time.Hour
	}

	if config.DeleteExpiredJobInterval == 0 {
		config.DeleteExpiredJobInterval = time.Hour
	}

	if config.ItemsCountReportInterval == 0 {
		config.ItemsCountReportInterval = time.Minute
	}

	if config.ExpirationJitter == 0 {
		config.ExpirationJitter = 0.1
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = 5 * time.Minute
	}

	c := &ShardedMap{
		config: config,
		stat:   config.Stats,
		log:    config.Logger,
		closed: make(chan struct{}, 1),
	}

	for i := 0; i < shards; i++ {
		c.buckets[i].data = make(map[string]entry)
	}

	if c.stat != nil {
		go c.reportItemsCount()
	}

	go c.cleaner()

	return c
}

func (c *ShardedMap) bucketOf(k string) *bucket {
	return &c.buckets[xxhash.Sum64String(k)%shards]
}

// Read gets value.
//
// Reading a sliding entry refreshes its expiration window.
func (c *ShardedMap) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	b := c.bucketOf(k)

	b.RLock()
	cacheEntry, ok := b.data[k]
	b.RUnlock()

	if !ok {
		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrCacheItemNotFound
	}

	if cacheEntry.Exp.Before(time.Now()) {
		if c.stat != nil {
			c.stat.Add(ctx, MetricExpired, 1, "name", c.config.Name)
		}

		return cacheEntry.Val, errExpired{entry: cacheEntry}
	}

	if cacheEntry.Sliding > 0 {
		b.Lock()
		if cur, ok := b.data[k]; ok && cur.Sliding > 0 {
			cur.Exp = time.Now().Add(cur.Sliding)
			b.data[k] = cur
		}
		b.Unlock()
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	return cacheEntry.Val, nil
}

// Write sets value.
func (c *ShardedMap) Write(ctx context.Context, k string, v interface{}) error {
	b := c.bucketOf(k)

	b.Lock()
	defer b.Unlock()

	if sliding := SlidingTTL(ctx); sliding > 0 {
		b.data[k] = entry{Val: v, Exp: time.Now().Add(sliding), Sliding: sliding}
	} else {
		ttl := TTL(ctx)
		if ttl == DefaultTTL {
			ttl = c.config.TimeToLive
		}

		if c.config.ExpirationJitter > 0 {
			ttl += time.Duration(float64(ttl) * c.config.ExpirationJitter * (rand.Float64() - 0.5))
		}

		b.data[k] = entry{Val: v, Exp: time.Now().Add(ttl)}
	}

	if c.log != nil {
		c.log.Debug(ctx, "wrote to cache", "name", c.config.Name, "key", k, "value", v)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	return nil
}

// Delete removes entry, it is a no-op for a missing key.
func (c *ShardedMap) Delete(ctx context.Context, k string) error {
	b := c.bucketOf(k)

	b.Lock()
	delete(b.data, k)
	b.Unlock()

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return nil
}

// ExpireAll marks all entries as expired, they can still serve stale cache.
func (c *ShardedMap) ExpireAll() {
	now := time.Now()

	for i := 0; i < shards; i++ {
		b := &c.buckets[i]

		b.Lock()
		for k, v := range b.data {
			v.Exp = now
			v.Sliding = 0
			b.data[k] = v
		}
		b.Unlock()
	}
}

// RemoveAll deletes all entries.
func (c *ShardedMap) RemoveAll() {
	for i := 0; i < shards; i++ {
		b := &c.buckets[i]

		b.Lock()
		b.data = make(map[string]entry)
		b.Unlock()
	}
}

// Close disables cache instance.
func (c *ShardedMap) Close() {
	c.closed <- struct{}{}
}

func (c *ShardedMap) cleaner() {
	for {
		select {
		case <-time.After(c.config.DeleteExpiredJobInterval):
			c.clearExpired()
		case <-c.closed:
			c.RemoveAll()

			return
		}
	}
}

func (c *ShardedMap) clearExpired() {
	expirationBoundary := time.Now().Add(-c.config.DeleteExpiredAfter)

	for i := 0; i < shards; i++ {
		b := &c.buckets[i]
		keys := make([]string, 0, 10)

		b.RLock()
		for k, e := range b.data {
			if e.Exp.Before(expirationBoundary) {
				keys = append(keys, k)
			}
		}
		b.RUnlock()

		b.Lock()
		for _, k := range keys {
			delete(b.data, k)
		}
		b.Unlock()
	}
}

func (c *ShardedMap) reportItemsCount() {
	for {
		select {
		case <-c.closed:
			return
		case <-time.After(c.config.ItemsCountReportInterval):
			count := c.Len()

			if c.stat != nil {
				c.stat.Set(context.Background(), MetricItems, float64(count), "name", c.config.Name)
			}
		}
	}
}

// Len returns number of elements in cache.
func (c *ShardedMap) Len() int {
	count := 0

	for i := 0; i < shards; i++ {
		b := &c.buckets[i]

		b.RLock()
		count += len(b.data)
		b.RUnlock()
	}

	return count
}

// Walk walks cached entries.
func (c *ShardedMap) Walk(walkFn func(key string, entry Entry) error) (int, error) {
	n := 0

	for i := 0; i < shards; i++ {
		b := &c.buckets[i]

		b.RLock()
		keys := make([]string, 0, len(b.data))
		for k := range b.data {
			keys = append(keys, k)
		}
		b.RUnlock()

		for _, k := range keys {
			b.RLock()
			e, ok := b.data[k]
			b.RUnlock()

			if !ok {
				continue
			}

			if err := walkFn(k, e); err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}
