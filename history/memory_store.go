package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development, testing, and single-run CLI invocations.
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStore creates a new in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get returns the entry for (origin, target), or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, origin, target string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	e, ok := s.entries[key(origin, target)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Upsert records a successful selector use.
func (s *MemoryStore) Upsert(ctx context.Context, origin, target, selector string) error {
	if origin == "" || target == "" || selector == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	k := key(origin, target)
	if e, ok := s.entries[k]; ok {
		e.Selector = selector
		e.SuccessCount++
		e.LastSuccess = time.Now()
		return nil
	}
	s.entries[k] = &Entry{
		Origin:       origin,
		Target:       NormalizeTarget(target),
		Selector:     selector,
		SuccessCount: 1,
		LastSuccess:  time.Now(),
	}
	return nil
}

// Ping checks if the store is healthy.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
