package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys used by the bookmark panel.
const (
	KeyPanelState   = "aesthetic-bookmark-box-state"
	KeyFaviconCache = "bookmark-favicons-cache"
)

// Store is a string key-value store shared by the new-tab page components.
// Writes are last-write-wins.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open opens the store for the given backend.
// An empty path selects the backend's default location.
func Open(backend, path string) (Store, error) {
	if backend == "" {
		backend = BackendJSON
	}
	if backend == BackendMemory {
		return NewMemoryStore(), nil
	}

	if path == "" {
		var err error
		path, err = DefaultStorePath(backend)
		if err != nil {
			return nil, err
		}
	}

	switch backend {
	case BackendJSON:
		return NewJSONStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// DefaultStorePath returns the default store path: ~/.config/bmbox/store.json or store.db
func DefaultStorePath(backend string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := "store.json"
	if backend == BackendSQLite {
		name = "store.db"
	}
	return filepath.Join(homeDir, ".config", "bmbox", name), nil
}

// MemoryStore implements Store in memory. Used for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
