// Package cache provides a compute-or-fetch façade on top of a TTL key-value store.
// Focused on resilient and race-free population of expensive values.
//
// Features:
//
//   - Fetch computes a missing value exactly once per key under concurrent callers.
//   - Confirmed-empty results are cached to protect the producer from penetration.
//   - FetchBounded caps caller latency and serves the last known good value on timeout.
//   - Per-key lock handles are kept with sliding expiry, idle keys do not leak locks.
//   - Pluggable backing stores: in-memory (plain and sharded), go-cache, Redis,
//     Memcached, capacity-bounded LRU.
//   - Allows logging, stats collection.
//   - Propagates context to allow better control of backend and application components.
//   - Allows mass expiration and removal (drop cache).
package cache
