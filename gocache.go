package cache

import (
	"context"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	gocache "github.com/patrickmn/go-cache"
)

// GoCacheConfig controls go-cache backed store.
type GoCacheConfig struct {
	// Client is an optional go-cache instance, created with defaults if nil.
	Client *gocache.Cache

	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is delay before entry expiration, default 5m.
	TimeToLive time.Duration

	// CleanupInterval is delay between janitor runs of the underlying cache,
	// default 10m, only used with nil Client.
	CleanupInterval time.Duration

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker
}

var _ Store = &GoCache{}

// GoCache adapts a patrickmn/go-cache instance to the Store contract.
//
// Sliding expiration is emulated by re-adding the entry on every read.
type GoCache struct {
	client *gocache.Cache

	config GoCacheConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// slidingEntry wraps a value stored with sliding expiration.
type slidingEntry struct {
	Val     interface{}
	Sliding time.Duration
}

// NewGoCache creates a go-cache backed store with optional configuration.
func NewGoCache(cfg ...GoCacheConfig) *GoCache {
	config := GoCacheConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = 5 * time.Minute
	}

	if config.CleanupInterval == 0 {
		config.CleanupInterval = 10 * time.Minute
	}

	client := config.Client
	if client == nil {
		client = gocache.New(config.TimeToLive, config.CleanupInterval)
	}

	return &GoCache{
		client: client,
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
	}
}

// Read gets value.
func (c *GoCache) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	v, ok := c.client.Get(k)
	if !ok {
		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrCacheItemNotFound
	}

	if se, ok := v.(slidingEntry); ok {
		// Refresh the sliding window.
		c.client.Set(k, se, se.Sliding)
		v = se.Val
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	return v, nil
}

// Write sets value.
func (c *GoCache) Write(ctx context.Context, k string, v interface{}) error {
	if sliding := SlidingTTL(ctx); sliding > 0 {
		c.client.Set(k, slidingEntry{Val: v, Sliding: sliding}, sliding)
	} else {
		ttl := TTL(ctx)
		if ttl == DefaultTTL {
			ttl = c.config.TimeToLive
		}

		c.client.Set(k, v, ttl)
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
func (c *GoCache) Delete(ctx context.Context, k string) error {
	c.client.Delete(k)

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return nil
}

// Len returns number of elements in cache, including expired but not yet cleaned up.
func (c *GoCache) Len() int {
	return c.client.ItemCount()
}

// RemoveAll deletes all entries.
func (c *GoCache) RemoveAll() {
	c.client.Flush()
}
