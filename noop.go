package cache

import (
	"context"
)

// NoOp is a Store stub, useful to disable caching.
type NoOp struct{}

var _ Store = NoOp{}

// Read does not find anything.
func (NoOp) Read(ctx context.Context, key string) (interface{}, error) {
	return nil, ErrCacheItemNotFound
}

// Write discards value.
func (NoOp) Write(ctx context.Context, key string, v interface{}) error {
	return nil
}

// Delete does nothing.
func (NoOp) Delete(ctx context.Context, key string) error {
	return nil
}
