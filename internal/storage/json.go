package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore implements Store using a single JSON object on disk.
// Every write rewrites the whole file.
type JSONStore struct {
	mu   sync.RWMutex
	path string
	data map[string]string
}

// NewJSONStore opens the JSON store at path.
// A missing file yields an empty store; an unreadable one resets to empty
// so a damaged file never blocks the page from loading.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path, data: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(data, &s.data); err != nil || s.data == nil {
		s.data = make(map[string]string)
	}
	return s, nil
}

// Path returns the store file path.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *JSONStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.save()
}

func (s *JSONStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

func (s *JSONStore) Close() error { return nil }

// save writes the store to disk. Caller holds the lock.
func (s *JSONStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	// Write through a temp file so a crash never leaves half a store behind
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
