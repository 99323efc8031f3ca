package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is a file-based implementation of Store backed by a single JSON
// document. Suitable for single-node deployments where the cache should
// survive process restarts.
type FileStore struct {
	path    string
	entries map[string]*Entry // in-memory cache, flushed on every upsert
	mu      sync.RWMutex
	closed  bool
}

// NewFileStore creates a file-based history store under config.BaseDir.
func NewFileStore(config StoreConfig) (*FileStore, error) {
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history store directory: %w", err)
	}

	store := &FileStore{
		path:    filepath.Join(config.BaseDir, "selector_history.json"),
		entries: make(map[string]*Entry),
	}
	if err := store.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("failed to load history from disk: %w", err)
	}
	return store, nil
}

func (s *FileStore) loadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // No existing data
	}
	if err != nil {
		return err
	}

	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if entries != nil {
		s.entries = entries
	}
	return nil
}

// saveToDisk persists all entries. Atomic write: temp file then rename.
func (s *FileStore) saveToDisk() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, s.path)
}

// Get returns the entry for (origin, target), or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, origin, target string) (*Entry, error) {
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

// Upsert records a successful selector use and flushes to disk.
func (s *FileStore) Upsert(ctx context.Context, origin, target, selector string) error {
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
	} else {
		s.entries[k] = &Entry{
			Origin:       origin,
			Target:       NormalizeTarget(target),
			Selector:     selector,
			SuccessCount: 1,
			LastSuccess:  time.Now(),
		}
	}
	return s.saveToDisk()
}

// Ping checks if the store is healthy.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close flushes and closes the store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.saveToDisk()
}
