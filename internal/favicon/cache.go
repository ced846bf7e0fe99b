package favicon

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nikbrunner/bmbox/internal/storage"
)

// Cache maps domains to image payloads (data URLs) and mirrors the whole
// mapping into the store on every write. At most one entry per domain;
// entries are only removed by Clear.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	store   storage.Store
}

// LoadCache reads the persisted mapping. Absent or corrupt data yields an empty cache.
func LoadCache(store storage.Store) *Cache {
	c := &Cache{entries: make(map[string]string), store: store}

	raw, ok := store.Get(storage.KeyFaviconCache)
	if !ok {
		return c
	}

	var entries map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		return c
	}
	c.entries = entries
	return c
}

// Get returns the cached payload for a domain.
func (c *Cache) Get(domain string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[domain]
	return v, ok
}

// Put stores payload for domain and persists the entire mapping.
func (c *Cache) Put(domain, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = payload
	return c.persist()
}

// Clear empties the mapping and removes its persisted copy.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	if err := c.store.Remove(storage.KeyFaviconCache); err != nil {
		return fmt.Errorf("remove favicon cache: %w", err)
	}
	return nil
}

// Len returns the number of cached domains.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the mapping.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// persist writes the mapping to the store. Caller holds the lock.
func (c *Cache) persist() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	if err := c.store.Set(storage.KeyFaviconCache, string(data)); err != nil {
		return fmt.Errorf("persist favicon cache: %w", err)
	}
	return nil
}
