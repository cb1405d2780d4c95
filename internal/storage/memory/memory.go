package memory

import (
	"context"
	"sync"

	"github.com/sandevgo/distill/internal/core"
)

// Store is an in-memory core.KeyValueStore for ephemeral runs and tests.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(ctx context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, core.ErrStoreClosed
	}

	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			values[k] = v
		}
	}
	return values, nil
}

func (s *Store) Set(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrStoreClosed
	}

	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrStoreClosed
	}

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Close marks the store torn down; further access degrades the same way a
// closed persistent backend does.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
