// Package fscache memoizes file metadata and content for the lifetime
// of one process (or until an explicit Clear). It exists to eliminate
// duplicate stat/read syscalls across repeated indexing passes; it has
// no time-based expiry, so callers that know files changed out-of-band
// must Clear before the next pass.
package fscache

import (
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// Meta is cached file metadata, the cheap proxy for "content changed".
type Meta struct {
	// ModTime is the file modification time in nanoseconds since epoch.
	ModTime int64
	// Size is the file size in bytes.
	Size int64
}

// Cache memoizes per-path metadata and content independently.
// Metadata and content for the same path are separate entries: an
// indexing pass that only needs fingerprints never pays for a read.
type Cache struct {
	mu      sync.RWMutex
	meta    map[string]Meta
	content map[string]string

	// group collapses concurrent first reads of the same path into one
	// syscall; later callers share the result.
	group singleflight.Group
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		meta:    make(map[string]Meta),
		content: make(map[string]string),
	}
}

// Metadata returns the (modTime, size) pair for path, reading from the
// filesystem at most once per Clear epoch.
func (c *Cache) Metadata(path string) (Meta, error) {
	c.mu.RLock()
	if m, ok := c.meta[path]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("meta\x00"+path, func() (any, error) {
		// Re-check under the group: another caller may have filled it.
		c.mu.RLock()
		if m, ok := c.meta[path]; ok {
			c.mu.RUnlock()
			return m, nil
		}
		c.mu.RUnlock()

		info, err := os.Stat(path)
		if err != nil {
			return Meta{}, ncerrors.IOFailure(path, err)
		}

		m := Meta{ModTime: info.ModTime().UnixNano(), Size: info.Size()}
		c.mu.Lock()
		c.meta[path] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return Meta{}, err
	}
	return v.(Meta), nil
}

// Content returns the file content for path, reading from the
// filesystem at most once per Clear epoch. Content is memoized
// independently of metadata.
func (c *Cache) Content(path string) (string, error) {
	c.mu.RLock()
	if s, ok := c.content[path]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("content\x00"+path, func() (any, error) {
		c.mu.RLock()
		if s, ok := c.content[path]; ok {
			c.mu.RUnlock()
			return s, nil
		}
		c.mu.RUnlock()

		data, err := os.ReadFile(path)
		if err != nil {
			return "", ncerrors.IOFailure(path, err)
		}

		s := string(data)
		c.mu.Lock()
		c.content[path] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Clear drops all entries unconditionally, starting a new epoch.
// This is the only invalidation the cache offers.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = make(map[string]Meta)
	c.content = make(map[string]string)
}

// Len returns the number of cached metadata entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meta)
}
