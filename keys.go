package cache

import "strings"

// DefaultKeyPrefix namespaces keys derived by this package.
const DefaultKeyPrefix = "cache"

const (
	lockKeyInfix   = "_Locker_"
	remainKeyInfix = "_RemainData_"
)

// LockKey returns the derived storage key of a per-key lock handle.
func LockKey(prefix, key string) string {
	return prefix + lockKeyInfix + key
}

// RemainKey returns the derived storage key of the remain-data slot of a key.
func RemainKey(prefix, key string) string {
	return prefix + remainKeyInfix + key
}

// IsReservedKey reports whether key collides with the derived key namespace.
//
// Application entries must not use such keys.
func IsReservedKey(key string) bool {
	return strings.Contains(key, lockKeyInfix) || strings.Contains(key, remainKeyInfix)
}
