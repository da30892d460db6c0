package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache stores raw upstream payloads keyed by a deterministic name so that
// re-runs skip the network. Checked before every fetch.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte) error
}

// DirCache is a filesystem cache: one file per key under a base directory.
type DirCache struct {
	dir string
}

// NewDirCache creates the cache directory if needed.
func NewDirCache(dir string) (*DirCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &DirCache{dir: dir}, nil
}

// Get returns the cached payload for key, if present.
func (c *DirCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, sanitizeKey(key)))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put writes the payload through a temp file so a partial write never
// masquerades as a cache hit.
func (c *DirCache) Put(key string, data []byte) error {
	path := filepath.Join(c.dir, sanitizeKey(key))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// sanitizeKey keeps cache keys usable as filenames.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '?', '&', '=', ' ':
			return '_'
		}
		return r
	}, key)
}

// MemCache is an in-memory Cache for tests.
type MemCache map[string][]byte

// Get returns the cached payload for key, if present.
func (m MemCache) Get(key string) ([]byte, bool) {
	data, ok := m[key]
	return data, ok
}

// Put stores the payload.
func (m MemCache) Put(key string, data []byte) error {
	m[key] = data
	return nil
}
