package cache

import (
	"context"
	"reflect"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// State describes what the cache knows about a key.
type State int

const (
	// StateNotCached means no producer result is stored for the key.
	StateNotCached State = iota

	// StateFound means a non-empty value is stored for the key.
	StateFound

	// StateConfirmedEmpty means a producer ran and legitimately found nothing,
	// the emptiness itself is cached.
	StateConfirmedEmpty
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateConfirmedEmpty:
		return "confirmed_empty"
	default:
		return "not_cached"
	}
}

// confirmedEmpty marks a key whose producer ran and found nothing.
//
// Keeping the marker in cache protects the producer from being re-invoked for
// every miss of a known-empty key (cache penetration).
type confirmedEmpty struct{}

// FetcherConfig is optional configuration for NewFetcher.
type FetcherConfig struct {
	// Name is added to logs and stats.
	Name string

	// Store is a backing store instance, in-memory created by default.
	Store Store

	// StoreConfig is a configuration for in-memory backing store if Store is not provided.
	StoreConfig MemoryConfig

	// Locks is a lock handle registry, created by default.
	Locks *LockRegistry

	// LockTTL is sliding idle time of lock handles, default 10m, only used with nil Locks.
	LockTTL time.Duration

	// KeyPrefix namespaces keys derived by the fetcher, default DefaultKeyPrefix.
	KeyPrefix string

	// WaitCeiling bounds caller wait in FetchBounded, default 2s.
	WaitCeiling time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// Fetcher returns cached values and computes missing ones exactly once per key.
//
// Please use NewFetcher to create instance.
type Fetcher struct {
	upstream Store
	locks    *LockRegistry
	config   FetcherConfig
	log      ctxd.Logger
	stat     stats.Tracker
}

// NewFetcher creates a Fetcher instance.
//
// Build is locked per key to avoid concurrent builds of the same value.
// Optional configuration can be provided with FetcherConfig (only first
// argument is used).
func NewFetcher(cfg ...FetcherConfig) *Fetcher {
	config := FetcherConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	if config.WaitCeiling == 0 {
		config.WaitCeiling = 2 * time.Second
	}

	if config.LockTTL == 0 {
		config.LockTTL = 10 * time.Minute
	}

	f := &Fetcher{}
	f.config = config

	f.log = config.Logger
	if f.log == nil {
		f.log = ctxd.NoOpLogger{}
	}

	f.stat = config.Stats
	if f.stat == nil {
		f.stat = stats.NoOp{}
	}

	f.upstream = config.Store

	if f.upstream == nil {
		config.StoreConfig.Name = config.Name
		config.StoreConfig.Logger = config.Logger
		config.StoreConfig.Stats = config.Stats
		f.upstream = NewMemory(config.StoreConfig)
	}

	f.locks = config.Locks

	if f.locks == nil {
		f.locks = NewLockRegistry(LockRegistryConfig{
			Name:       config.Name,
			KeyPrefix:  config.KeyPrefix,
			SlidingTTL: config.LockTTL,
			Logger:     config.Logger,
		})
	}

	return f
}

// Store exposes the backing store of the fetcher.
func (f *Fetcher) Store() Store {
	return f.upstream
}

// Peek reports the cached value and state of a key without building anything.
//
// Value is nil unless state is StateFound.
func (f *Fetcher) Peek(ctx context.Context, key string) (interface{}, State) {
	v, err := f.upstream.Read(ctx, key)
	if err != nil {
		return nil, StateNotCached
	}

	if _, ok := v.(confirmedEmpty); ok {
		return nil, StateConfirmedEmpty
	}

	return v, StateFound
}

// Fetch returns value from cache or builds it with build exactly once per key.
//
// A nil build result is cached as confirmed empty for cacheTime and served as
// nil to subsequent callers without re-invoking build. A build error
// propagates to the caller and leaves cache untouched.
func (f *Fetcher) Fetch(
	ctx context.Context,
	key string,
	cacheTime time.Duration,
	build func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if build == nil {
		return nil, ErrNilBuildFunc
	}

	if IsReservedKey(key) {
		return nil, ErrReservedKey
	}

	// Performing initial check before critical section.
	if v, st := f.Peek(ctx, key); st != StateNotCached {
		return v, nil
	}

	l := f.locks.Acquire(ctx, key)
	l.Lock()
	defer l.Unlock()

	// Re-check in critical section, another caller may have built the value
	// while this one was waiting for the lock.
	if v, st := f.Peek(ctx, key); st != StateNotCached {
		return v, nil
	}

	f.log.Debug(ctx, "building cache value", "name", f.config.Name, "key", key)

	v, err := build(ctx)
	if err != nil {
		f.stat.Add(ctx, MetricFailed, 1, "name", f.config.Name)

		return nil, err
	}

	if err := f.writeBuilt(ctx, key, v, cacheTime); err != nil {
		return nil, err
	}

	f.stat.Add(ctx, MetricBuild, 1, "name", f.config.Name)

	if isNil(v) {
		return nil, nil
	}

	return v, nil
}

// writeBuilt stores a build result, nil results are stored as confirmed empty.
func (f *Fetcher) writeBuilt(ctx context.Context, key string, v interface{}, cacheTime time.Duration) error {
	stored := v
	if isNil(v) {
		stored = confirmedEmpty{}
	}

	if err := f.upstream.Write(WithTTL(ctx, cacheTime), key, stored); err != nil {
		return ctxd.WrapError(ctx, err, "failed to store built value",
			"name", f.config.Name,
			"key", key)
	}

	return nil
}

// isNil reports whether v is nil directly or through a nil-able kind.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
