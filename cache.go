package cache

import (
	"context"
	"io"
	"time"
)

// DefaultTTL picks store default entry expiration time.
const DefaultTTL = time.Duration(0)

// Reader reads from cache.
type Reader interface {
	// Read returns cached value and/or error.
	// If ErrExpiredCacheItem is returned, expired cache value must be returned as well.
	Read(ctx context.Context, key string) (interface{}, error)
}

// Writer writes to cache.
type Writer interface {
	// Write stores value in cache with a given key.
	//
	// Expiration is taken from context, see WithTTL and WithSlidingTTL.
	Write(ctx context.Context, key string, value interface{}) error
}

// Deleter deletes from cache.
type Deleter interface {
	// Delete removes a cached value by key, it is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
}

// ReadWriter reads from and writes to cache.
type ReadWriter interface {
	Reader
	Writer
}

// Store is a complete backing store contract.
type Store interface {
	Reader
	Writer
	Deleter
}

// Entry is a cache entry with a value.
type Entry interface {
	Value() interface{}
}

// Expirable exposes entry expiration time.
type Expirable interface {
	ExpireAt() time.Time
}

// Walker calls function for every entry in cache and fails on first error returned by that function.
//
// Count of processed entries is returned.
type Walker interface {
	Walk(func(key string, entry Entry) error) (int, error)
}

// Dumper dumps cache entries in binary format.
type Dumper interface {
	Dump(w io.Writer) (int, error)
}

// Restorer restores cache entries from binary dump.
type Restorer interface {
	Restore(r io.Reader) (int, error)
}

// ErrExpired defines an expiration error with entry details.
type ErrExpired interface {
	error
	Value() interface{}
	ExpiredAt() time.Time
}
