package cache

import (
	"context"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUConfig controls capacity-bounded in-memory store.
type LRUConfig struct {
	// Name is cache instance name, used in stats and logging.
	Name string

	// Size is maximum number of entries, default 1024.
	Size int

	// TimeToLive is delay before entry expiration, default 5m.
	TimeToLive time.Duration

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker
}

var _ Store = &LRU{}

// LRU is an in-memory Store with a hard capacity bound, least recently used
// entries are evicted once the bound is reached.
type LRU struct {
	client *lru.Cache[string, entry]

	config LRUConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// NewLRU creates a capacity-bounded in-memory store with optional configuration.
func NewLRU(cfg ...LRUConfig) (*LRU, error) {
	config := LRUConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.Size == 0 {
		config.Size = 1024
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = 5 * time.Minute
	}

	client, err := lru.New[string, entry](config.Size)
	if err != nil {
		return nil, err
	}

	return &LRU{
		client: client,
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
	}, nil
}

// Read gets value.
//
// Reading a sliding entry refreshes its expiration window.
func (c *LRU) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	e, ok := c.client.Get(k)
	if !ok {
		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrCacheItemNotFound
	}

	if e.Exp.Before(time.Now()) {
		if c.stat != nil {
			c.stat.Add(ctx, MetricExpired, 1, "name", c.config.Name)
		}

		return e.Val, errExpired{entry: e}
	}

	if e.Sliding > 0 {
		e.Exp = time.Now().Add(e.Sliding)
		c.client.Add(k, e)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	return e.Val, nil
}

// Write sets value.
func (c *LRU) Write(ctx context.Context, k string, v interface{}) error {
	if sliding := SlidingTTL(ctx); sliding > 0 {
		c.client.Add(k, entry{Val: v, Exp: time.Now().Add(sliding), Sliding: sliding})
	} else {
		ttl := TTL(ctx)
		if ttl == DefaultTTL {
			ttl = c.config.TimeToLive
		}

		c.client.Add(k, entry{Val: v, Exp: time.Now().Add(ttl)})
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
func (c *LRU) Delete(ctx context.Context, k string) error {
	c.client.Remove(k)

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return nil
}

// Len returns number of elements in cache.
func (c *LRU) Len() int {
	return c.client.Len()
}

// RemoveAll deletes all entries.
func (c *LRU) RemoveAll() {
	c.client.Purge()
}
