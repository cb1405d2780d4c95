package core

import "context"

// KeyValueStore is the persistence contract the cache layer consumes.
// Implementations return ErrStoreClosed once their backend is gone so callers
// can degrade instead of crashing.
type KeyValueStore interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys []string) error
}
