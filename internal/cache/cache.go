// Package cache stores recent source results so repeat research for the
// same item inside the TTL does not re-bill the providers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store is a TTL key/value cache of JSON-encodable values.
type Store interface {
	Get(ctx context.Context, key string, target any) (bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

func (e Entry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// FileStore keeps entries in memory and persists them to a JSON file.
type FileStore struct {
	path    string
	entries map[string]Entry
	mu      sync.RWMutex
	saveMu  sync.Mutex
}

// NewFileStore loads path if it exists. A corrupt file starts an empty cache.
func NewFileStore(path string) (*FileStore, error) {
	c := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &c.entries); err != nil {
				c.entries = make(map[string]Entry)
			}
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read cache: %w", err)
	}

	return c, nil
}

func (c *FileStore) Get(_ context.Context, key string, target any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if entry.expired() {
		c.mu.Lock()
		if e, exists := c.entries[key]; exists && e.expired() {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (c *FileStore) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      data,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.mu.Unlock()

	return c.save()
}

// save writes the cache to disk, dropping expired entries.
func (c *FileStore) save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.Lock()
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// BuildKey joins key parts with '|'.
func BuildKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// SourceKey identifies one source's result for one item name. Item names
// are normalized so casing and spacing differences share an entry.
func SourceKey(strategy, source, itemName string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(itemName)), " ")
	return BuildKey("src", "v1", strategy, strings.ToLower(source), norm)
}
