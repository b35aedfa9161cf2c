package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// settingsCacheKey is the base cache key settings live under; per-user keys
// append ":<user id>".
const settingsCacheKey = "expense-tracker-settings"

// SettingsKey returns the cache key for one user's settings blob.
func SettingsKey(userID string) string {
	return settingsCacheKey + ":" + userID
}

// FileCache is a small JSON key-value cache backed by a single file. It is
// read once at construction and rewritten atomically on every Set.
type FileCache struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFileCache opens the cache at path, loading existing contents when the
// file is present. A missing file is an empty cache, not an error.
func NewFileCache(path string) (*FileCache, error) {
	c := &FileCache{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings cache %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.data); err != nil {
			return nil, fmt.Errorf("parse settings cache %s: %w", path, err)
		}
	}
	return c, nil
}

// Get unmarshals the value under key into into. The first return reports
// whether the key was present.
func (c *FileCache) Get(key string, into any) (bool, error) {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return true, nil
}

// Set stores the value under key and flushes the whole cache to disk.
func (c *FileCache) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = raw
	return c.flushLocked()
}

// Delete removes a key and flushes.
func (c *FileCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[key]; !ok {
		return nil
	}
	delete(c.data, key)
	return c.flushLocked()
}

// flushLocked writes via a temp file and rename so readers never observe a
// partial file.
func (c *FileCache) flushLocked() error {
	blob, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings cache: %w", err)
	}
	return nil
}
