package media

import (
	"errors"
	"sync"
)

// ErrNotCached is returned by GetOrDerive when the original blob for a
// requested variant is not in the cache.
var ErrNotCached = errors.New("media not cached")

// Blob is a cached binary payload with its mimetype.
type Blob struct {
	Data     []byte
	Mimetype string
}

// Cache is a keyed in-memory store of media blobs, keyed by message id.
// Derived variants (e.g. an MP3 transcode of a voice note) live under a
// derived key and never overwrite the original. There is no eviction:
// the cache serves a single interactive session and is dropped with the
// process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Blob
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Blob)}
}

// Put stores a blob under key, overwriting any previous entry.
func (c *Cache) Put(key string, data []byte, mimetype string) {
	c.mu.Lock()
	c.entries[key] = Blob{Data: data, Mimetype: mimetype}
	c.mu.Unlock()
}

// Get returns the blob stored under key.
func (c *Cache) Get(key string) (Blob, bool) {
	c.mu.RLock()
	b, ok := c.entries[key]
	c.mu.RUnlock()
	return b, ok
}

// Len returns the number of cached entries, originals and variants.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DerivedKey returns the cache key for a variant of an original entry.
func DerivedKey(key, variant string) string {
	return key + ":" + variant
}

// GetOrDerive returns the variant of the blob under key, computing it
// via derive on first request and caching the result under the derived
// key. derive runs at most once per (key, variant) for the cache's
// lifetime, except that two concurrent first requests may both run it;
// the second Put wins, which is harmless as long as derive is
// idempotent.
func (c *Cache) GetOrDerive(key, variant string, derive func(Blob) (Blob, error)) (Blob, error) {
	dk := DerivedKey(key, variant)
	if b, ok := c.Get(dk); ok {
		return b, nil
	}
	orig, ok := c.Get(key)
	if !ok {
		return Blob{}, ErrNotCached
	}
	derived, err := derive(orig)
	if err != nil {
		return Blob{}, err
	}
	c.Put(dk, derived.Data, derived.Mimetype)
	return derived, nil
}
