package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedConfig controls Memcached backed store.
type MemcachedConfig struct {
	// Client is an optional memcache client, created from Servers if nil.
	Client *memcache.Client

	// Servers is a list of memcached addresses, only used with nil Client.
	Servers []string

	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is delay before entry expiration, default 5m.
	TimeToLive time.Duration

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker
}

var _ Store = &Memcached{}

// Memcached is a Store backed by memcached servers.
//
// Values are transferred with gob, register cached types with GobRegister.
// Sliding expiration is applied with Touch on every read.
type Memcached struct {
	client *memcache.Client

	config MemcachedConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// memcachedEnvelope carries value and expiration mode through serialization.
type memcachedEnvelope struct {
	Val     interface{}
	Sliding time.Duration
}

// NewMemcached creates a memcached backed store.
func NewMemcached(config MemcachedConfig) (*Memcached, error) {
	client := config.Client
	if client == nil {
		if len(config.Servers) == 0 {
			return nil, errors.New("memcached servers or client are required")
		}

		client = memcache.New(config.Servers...)
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = 5 * time.Minute
	}

	return &Memcached{
		client: client,
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
	}, nil
}

// Read gets value.
func (c *Memcached) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	it, err := c.client.Get(k)
	if errors.Is(err, memcache.ErrCacheMiss) {
		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrCacheItemNotFound
	}

	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to read from memcached", "key", k)
	}

	env := memcachedEnvelope{}
	if err := gob.NewDecoder(bytes.NewReader(it.Value)).Decode(&env); err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to decode cached value", "key", k)
	}

	if env.Sliding > 0 {
		// Touch failure is not fatal, the entry simply expires earlier.
		_ = c.client.Touch(k, int32(env.Sliding/time.Second))
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	return env.Val, nil
}

// Write sets value.
func (c *Memcached) Write(ctx context.Context, k string, v interface{}) error {
	env := memcachedEnvelope{Val: v}

	exp := TTL(ctx)
	if exp == DefaultTTL {
		exp = c.config.TimeToLive
	}

	if sliding := SlidingTTL(ctx); sliding > 0 {
		env.Sliding = sliding
		exp = sliding
	}

	buf := bytes.Buffer{}
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return ctxd.WrapError(ctx, err, "failed to encode value for memcached", "key", k)
	}

	err := c.client.Set(&memcache.Item{
		Key:        k,
		Value:      buf.Bytes(),
		Expiration: int32(exp / time.Second),
	})
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to write to memcached", "key", k)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	return nil
}

// Delete removes entry, it is a no-op for a missing key.
func (c *Memcached) Delete(ctx context.Context, k string) error {
	err := c.client.Delete(k)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return ctxd.WrapError(ctx, err, "failed to delete from memcached", "key", k)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return nil
}
