package transform

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash"
)

// Entry is spec.md §3's TransformCacheEntry.
type Entry struct {
	Code string
	Hash uint64
}

// Cache is an LRU-evicted (500 entries, spec.md §3) cache of
// transformed source keyed by source path. Recency-based eviction
// suits the transform cache because hot modules (the page currently
// being edited) stay resident; the module cache's FIFO policy and its
// reasoning are described on cjsloader.ModuleCache.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheItem struct {
	path  string
	entry Entry
}

// DefaultCapacity is the 500-entry cap from spec.md §3.
const DefaultCapacity = 500

func NewCache() *Cache {
	return &Cache{
		capacity: DefaultCapacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// ContentHash derives a stable, non-cryptographic hash of source
// bytes, used both as the cache-coherence key and as the stored Hash
// field.
func ContentHash(src []byte) uint64 {
	return xxhash.Sum64(src)
}

// Get returns the cached entry for path if its hash matches the
// current content hash (cache coherence: unchanged bytes hit,
// mutated bytes miss and get recomputed by the caller).
func (c *Cache) Get(path string, hash uint64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[path]
	if !ok {
		return Entry{}, false
	}
	item := el.Value.(*cacheItem)
	if item.entry.Hash != hash {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return item.entry, true
}

// Put inserts or updates the cache entry for path, evicting the
// least-recently-used entry if the capacity is exceeded.
func (c *Cache) Put(path string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[path]; ok {
		el.Value.(*cacheItem).entry = entry
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheItem{path: path, entry: entry})
	c.entries[path] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheItem).path)
		}
	}
}

// Len reports the current number of cached entries (test helper).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
