package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/redis/go-redis/v9"
)

// RedisConfig controls Redis backed store.
type RedisConfig struct {
	// Client is a Redis client or cluster client, required.
	Client redis.Cmdable

	// Name is cache instance name, used in stats and logging.
	Name string

	// KeyPrefix is prepended to all keys in Redis, default "cache:".
	KeyPrefix string

	// TimeToLive is delay before entry expiration, default 5m.
	TimeToLive time.Duration

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker
}

var _ Store = &Redis{}

// Redis is a Store backed by a Redis server.
//
// Values are stored as JSON, numbers read back from Redis decode as float64.
// Sliding expiration is applied with EXPIRE on every read.
type Redis struct {
	client redis.Cmdable

	config RedisConfig
	log    ctxd.Logger
	stat   stats.Tracker
}

// redisEnvelope carries value and expiration mode through serialization.
type redisEnvelope struct {
	Empty     bool            `json:"empty,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	SlidingMs int64           `json:"sliding_ms,omitempty"`
}

// NewRedis creates a Redis backed store.
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "cache:"
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = 5 * time.Minute
	}

	return &Redis{
		client: config.Client,
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
	}, nil
}

func (c *Redis) key(k string) string {
	return c.config.KeyPrefix + k
}

// Read gets value.
func (c *Redis) Read(ctx context.Context, k string) (interface{}, error) {
	if SkipRead(ctx) {
		return nil, ErrCacheItemNotFound
	}

	payload, err := c.client.Get(ctx, c.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, ErrCacheItemNotFound
	}

	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to read from redis", "key", k)
	}

	var env redisEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to decode cached value", "key", k)
	}

	if env.SlidingMs > 0 {
		c.client.Expire(ctx, c.key(k), time.Duration(env.SlidingMs)*time.Millisecond)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	if env.Empty {
		return confirmedEmpty{}, nil
	}

	var v interface{}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to decode cached value", "key", k)
	}

	return v, nil
}

// Write sets value.
func (c *Redis) Write(ctx context.Context, k string, v interface{}) error {
	env := redisEnvelope{}

	if _, ok := v.(confirmedEmpty); ok {
		env.Empty = true
	} else {
		raw, err := json.Marshal(v)
		if err != nil {
			return ctxd.WrapError(ctx, err, "failed to encode value for redis", "key", k)
		}

		env.Value = raw
	}

	exp := TTL(ctx)
	if exp == DefaultTTL {
		exp = c.config.TimeToLive
	}

	if sliding := SlidingTTL(ctx); sliding > 0 {
		env.SlidingMs = sliding.Milliseconds()
		exp = sliding
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to encode value for redis", "key", k)
	}

	if err := c.client.Set(ctx, c.key(k), payload, exp).Err(); err != nil {
		return ctxd.WrapError(ctx, err, "failed to write to redis", "key", k)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	return nil
}

// Delete removes entry, it is a no-op for a missing key.
func (c *Redis) Delete(ctx context.Context, k string) error {
	if err := c.client.Del(ctx, c.key(k)).Err(); err != nil {
		return ctxd.WrapError(ctx, err, "failed to delete from redis", "key", k)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return nil
}
