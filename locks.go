package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bool64/ctxd"
	"github.com/puzpuzpuz/xsync"
)

// KeyLock serializes value builds for a single cache key.
//
// A handle is shared by all callers racing to fetch the same key, its lifetime
// is bounded by the registry sliding window, not by any single caller.
type KeyLock struct {
	mu      sync.Mutex
	holders int32
	lastUse int64 // Unix nano of the latest Acquire.
}

var _ sync.Locker = &KeyLock{}

// Lock acquires exclusive access.
func (l *KeyLock) Lock() {
	atomic.AddInt32(&l.holders, 1)
	l.mu.Lock()
}

// Unlock releases exclusive access.
func (l *KeyLock) Unlock() {
	l.mu.Unlock()
	atomic.AddInt32(&l.holders, -1)
}

// Held reports whether the lock is currently held or awaited by any caller.
func (l *KeyLock) Held() bool {
	return atomic.LoadInt32(&l.holders) > 0
}

func (l *KeyLock) touch() {
	atomic.StoreInt64(&l.lastUse, time.Now().UnixNano())
}

func (l *KeyLock) idleSince() time.Time {
	return time.Unix(0, atomic.LoadInt64(&l.lastUse))
}

// LockRegistryConfig is optional configuration for NewLockRegistry.
type LockRegistryConfig struct {
	// Name is added to logs.
	Name string

	// KeyPrefix namespaces derived lock keys, default DefaultKeyPrefix.
	KeyPrefix string

	// Store keeps lock handles under derived keys so that idle handles expire.
	//
	// Must be process-local, handles are not serializable. In-memory store
	// with SlidingTTL as time to live is created by default.
	Store ReadWriter

	// SlidingTTL is idle time before a handle is reclaimed, default 10m.
	SlidingTTL time.Duration

	// ReclaimJobInterval is delay between two reclaim runs over tracked
	// handles, default SlidingTTL.
	ReclaimJobInterval time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger
}

// LockRegistry produces a per-key exclusive lock handle.
//
// Concurrent callers requesting the same key converge on the identical handle.
// Handles are kept in a store with sliding expiry, a key untouched for longer
// than the window is reclaimed, unless its critical section is still busy.
type LockRegistry struct {
	mu     sync.Mutex // Guards handle creation only, never the use of handles.
	live   *xsync.Map // Tracks created handles to keep busy ones from duplication.
	store  ReadWriter
	closed chan struct{}

	config LockRegistryConfig
	log    ctxd.Logger
}

// NewLockRegistry creates a lock handle registry with optional configuration.
func NewLockRegistry(cfg ...LockRegistryConfig) *LockRegistry {
	config := LockRegistryConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	if config.SlidingTTL == 0 {
		config.SlidingTTL = 10 * time.Minute
	}

	if config.ReclaimJobInterval == 0 {
		config.ReclaimJobInterval = config.SlidingTTL
	}

	r := &LockRegistry{
		live:   xsync.NewMap(),
		closed: make(chan struct{}, 1),
		config: config,
		log:    config.Logger,
	}

	r.store = config.Store
	if r.store == nil {
		r.store = NewMemory(MemoryConfig{
			Name:       config.Name + "_locks",
			Logger:     config.Logger,
			TimeToLive: config.SlidingTTL,

			// Expired handles are garbage, drop them soon after expiry.
			DeleteExpiredAfter:       config.SlidingTTL,
			DeleteExpiredJobInterval: config.SlidingTTL,
		})
	}

	go r.reclaimer()

	return r
}

// Acquire returns the lock handle of a key, creating it on first use.
//
// Creation is double-checked behind a registry-wide mutex, the mutex is
// released right after lookup, callers never serialize on it while holding
// a handle.
func (r *LockRegistry) Acquire(ctx context.Context, key string) *KeyLock {
	lk := LockKey(r.config.KeyPrefix, key)

	if v, err := r.store.Read(ctx, lk); err == nil {
		if l, ok := v.(*KeyLock); ok {
			l.touch()

			return l
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have created the handle while this one was waiting.
	if v, err := r.store.Read(ctx, lk); err == nil {
		if l, ok := v.(*KeyLock); ok {
			l.touch()

			return l
		}
	}

	if v, ok := r.live.Load(lk); ok {
		l := v.(*KeyLock)

		if l.Held() {
			// The stored handle expired while its critical section is busy.
			// Revive the same handle so a second build cannot start for the key.
			l.touch()
			_ = r.store.Write(WithSlidingTTL(ctx, r.config.SlidingTTL), lk, l)

			return l
		}

		r.live.Delete(lk)
	}

	l := &KeyLock{}
	l.touch()
	r.live.Store(lk, l)

	if err := r.store.Write(WithSlidingTTL(ctx, r.config.SlidingTTL), lk, l); err != nil && r.log != nil {
		r.log.Error(ctx, "failed to store lock handle",
			"name", r.config.Name,
			"key", lk,
			"error", err)
	}

	return l
}

// Close stops handle reclamation.
func (r *LockRegistry) Close() {
	r.closed <- struct{}{}
}

func (r *LockRegistry) reclaimer() {
	for {
		select {
		case <-time.After(r.config.ReclaimJobInterval):
			r.reclaim()
		case <-r.closed:
			return
		}
	}
}

// reclaim forgets handles idle for longer than the sliding window.
//
// The stored counterpart expires on its own, this only trims the tracking map.
func (r *LockRegistry) reclaim() {
	boundary := time.Now().Add(-r.config.SlidingTTL)

	r.live.Range(func(lk string, v interface{}) bool {
		l := v.(*KeyLock)
		if l.Held() || l.idleSince().After(boundary) {
			return true
		}

		r.mu.Lock()
		// Re-check under creation mutex, Acquire may have just revived it.
		if cur, ok := r.live.Load(lk); ok && cur.(*KeyLock) == l && !l.Held() && !l.idleSince().After(boundary) {
			r.live.Delete(lk)
		}
		r.mu.Unlock()

		return true
	})
}
