package cache

// SentinelError is an error.
type SentinelError string

const (
	// ErrExpiredCacheItem indicates expired cache entry.
	ErrExpiredCacheItem = SentinelError("expired cache item")

	// ErrCacheItemNotFound indicates missing cache entry.
	ErrCacheItemNotFound = SentinelError("missing cache item")

	// ErrNilBuildFunc indicates a fetch invoked without a build function.
	ErrNilBuildFunc = SentinelError("nil build function")

	// ErrReservedKey indicates a key colliding with the derived key namespace.
	ErrReservedKey = SentinelError("reserved cache key")

	// ErrUnexpectedCachedType indicates cached value of unusable type.
	ErrUnexpectedCachedType = SentinelError("unexpected type of cached value")

	// ErrNothingToInvalidate indicates no caches were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates recent invalidation.
	ErrAlreadyInvalidated = SentinelError("already invalidated")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
