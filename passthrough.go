package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Set stores value with absolute expiration, bypassing fetch coordination.
func (f *Fetcher) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if IsReservedKey(key) {
		return ErrReservedKey
	}

	return f.upstream.Write(WithTTL(ctx, ttl), key, value)
}

// Remove deletes the cached value of a key, it is a no-op for a missing key.
func (f *Fetcher) Remove(ctx context.Context, key string) error {
	return f.upstream.Delete(ctx, key)
}

// GetString returns cached string value of a key, empty string for a missing
// key or a value of another type.
func (f *Fetcher) GetString(ctx context.Context, key string) string {
	v, st := f.Peek(ctx, key)
	if st != StateFound {
		return ""
	}

	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

// GetInt returns cached integer value of a key, defaultVal when the key is
// missing or the value cannot be coerced to int.
func (f *Fetcher) GetInt(ctx context.Context, key string, defaultVal int) int {
	v, st := f.Peek(ctx, key)
	if st != StateFound {
		return defaultVal
	}

	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}

	return defaultVal
}
