package cache

// Metric names reported to stats.Tracker.
const (
	// MetricHit is a counter of cache hits.
	MetricHit = "cache_hit"

	// MetricMiss is a counter of cache misses.
	MetricMiss = "cache_miss"

	// MetricExpired is a counter of expired reads.
	MetricExpired = "cache_expired"

	// MetricWrite is a counter of cache writes.
	MetricWrite = "cache_write"

	// MetricDelete is a counter of cache deletions.
	MetricDelete = "cache_delete"

	// MetricItems is a gauge of total number of cached items.
	MetricItems = "cache_items"

	// MetricEvict is a counter of evicted items.
	MetricEvict = "cache_evict"

	// MetricBuild is a counter of completed value builds.
	MetricBuild = "cache_build"

	// MetricFailed is a counter of failed value builds.
	MetricFailed = "cache_failed_build"

	// MetricTimeout is a counter of bounded fetches that hit the wait ceiling.
	MetricTimeout = "cache_wait_timeout"

	// MetricFallback is a counter of bounded fetches served from remain data.
	MetricFallback = "cache_remain_fallback"
)
