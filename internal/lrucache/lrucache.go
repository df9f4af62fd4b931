// Package lrucache provides the engine's bounded LRU of open SST read
// handles (spec component E). It is a thin wrapper over
// hashicorp/golang-lru's generic cache: eviction closes the underlying
// file, and every read re-fetches a handle by path rather than holding a
// cursor across calls, so an eviction mid-scan never corrupts a reader.
package lrucache

import (
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Handles is a fixed-capacity (path -> *os.File) LRU.
type Handles struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *os.File]
}

// New builds a handle pool with the given capacity (minimum 1).
func New(capacity int) (*Handles, error) {
	if capacity < 1 {
		capacity = 1
	}
	h := &Handles{}
	cache, err := lru.NewWithEvict[string, *os.File](capacity, func(_ string, f *os.File) {
		f.Close()
	})
	if err != nil {
		return nil, err
	}
	h.cache = cache
	return h, nil
}

// ReadAt reads len(buf) bytes from path at offset, opening and caching a
// handle for path if one isn't already cached.
func (h *Handles) ReadAt(path string, offset int64, buf []byte) (int, error) {
	f, err := h.get(path)
	if err != nil {
		return 0, err
	}
	return f.ReadAt(buf, offset)
}

func (h *Handles) get(path string) (*os.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f, ok := h.cache.Get(path); ok {
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	h.cache.Add(path, f)
	return f, nil
}

// Evict closes and drops any cached handle for path. Callers use this
// before deleting a file so the LRU never serves a stale descriptor.
func (h *Handles) Evict(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Remove(path)
}

// Close closes every cached handle and empties the cache.
func (h *Handles) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Purge()
}
