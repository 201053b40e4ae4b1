package cjsloader

import "sync"

// Module is spec.md §3's VfsModule.
type Module struct {
	ID       string
	Filename string
	Exports  any
	Loaded   bool
}

// ModuleCache is the VFS module cache: cached by resolved absolute
// path, soft-capped at 2,000 entries with FIFO eviction of exactly
// one entry when the cap is exceeded (spec.md §3). FIFO (rather than
// LRU) suits long-lived module identity: once a handler's transitive
// dependency graph is warm, eviction churn would break the "cached
// across API requests for the lifetime of the dev server" guarantee
// for anything still reachable.
type ModuleCache struct {
	mu    sync.Mutex
	order []string
	byKey map[string]*Module
}

const DefaultCapacity = 2000

func NewModuleCache() *ModuleCache {
	return &ModuleCache{byKey: make(map[string]*Module)}
}

func (c *ModuleCache) Get(path string) (*Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byKey[path]
	return m, ok
}

// Insert adds a new stub module before execution (required for
// circular-import correctness per spec.md §3/§4.5/§8).
func (c *ModuleCache) Insert(path string, m *Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[path]; exists {
		c.byKey[path] = m
		return
	}
	c.byKey[path] = m
	c.order = append(c.order, path)
	if len(c.order) > DefaultCapacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.byKey, oldest)
	}
}

// Delete removes a cache entry, used when loading or executing a module fails
// (spec.md §4.5 "On exception: delete the cache entry and rethrow").
func (c *ModuleCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *ModuleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
