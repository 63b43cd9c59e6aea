package cache

import (
	"fmt"
	"sync"
	"time"
)

// Expirer can mark all its entries as expired.
type Expirer interface {
	ExpireAll()
}

// Invalidator is a registry of cache expiration triggers.
type Invalidator struct {
	sync.Mutex

	// SkipInterval defines minimal duration between two cache invalidations (flood protection).
	SkipInterval time.Duration

	callbacks []func()
	lastRun   time.Time
}

// Register adds an invalidation callback.
func (i *Invalidator) Register(cb func()) {
	i.Lock()
	defer i.Unlock()

	i.callbacks = append(i.callbacks, cb)
}

// RegisterExpirer adds a cache to expire on invalidation.
func (i *Invalidator) RegisterExpirer(e Expirer) {
	i.Register(e.ExpireAll)
}

// Invalidate triggers cache expiration.
func (i *Invalidator) Invalidate() error {
	i.Lock()
	defer i.Unlock()

	if len(i.callbacks) == 0 {
		return ErrNothingToInvalidate
	}

	if i.SkipInterval == 0 {
		i.SkipInterval = 15 * time.Second
	}

	if time.Since(i.lastRun) < i.SkipInterval {
		return fmt.Errorf("%w at %s, %s did not pass",
			ErrAlreadyInvalidated, i.lastRun.String(), i.SkipInterval.String())
	}

	i.lastRun = time.Now()
	for _, cb := range i.callbacks {
		cb()
	}

	return nil
}
