// Package resolve implements the shared node_modules resolution
// algorithm used by both the VFS-require CJS loader (spec.md §4.5)
// and the npm bundle server (spec.md §4.4); both must share "the same
// algorithm" (spec.md §4.5).
package resolve

import (
	"encoding/json"
	"sync"

	"github.com/almostnode/core/internal/vfs"
)

// PackageJSON is the subset of package.json fields resolution cares
// about. Exports is kept as raw JSON since its shape is polymorphic
// (string, array, or nested condition object).
type PackageJSON struct {
	Name            string            `json:"name"`
	Main            string            `json:"main"`
	Module          string            `json:"module"`
	Browser         json.RawMessage   `json:"browser"`
	Exports         json.RawMessage   `json:"exports"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// PackageJSONCache memoizes parsed package.json files by path,
// including a nil memo for parse failures (spec.md §3).
type PackageJSONCache struct {
	mu      sync.Mutex
	entries map[string]*PackageJSON
}

func NewPackageJSONCache() *PackageJSONCache {
	return &PackageJSONCache{entries: make(map[string]*PackageJSON)}
}

// Get parses and caches the package.json at path, returning nil
// (cached) if parsing previously failed or the file doesn't exist.
func (c *PackageJSONCache) Get(v vfs.VFS, path string) *PackageJSON {
	c.mu.Lock()
	if pj, ok := c.entries[path]; ok {
		c.mu.Unlock()
		return pj
	}
	c.mu.Unlock()

	pj := parsePackageJSON(v, path)

	c.mu.Lock()
	c.entries[path] = pj
	c.mu.Unlock()

	return pj
}

func parsePackageJSON(v vfs.VFS, path string) *PackageJSON {
	data, err := v.ReadFileSync(path)
	if err != nil {
		return nil
	}
	var pj PackageJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil
	}
	return &pj
}

// Clear drops every memoized entry (used alongside
// ClearInstalledPackagesCache).
func (c *PackageJSONCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*PackageJSON)
	c.mu.Unlock()
}
