package resolve

import (
	"strings"
	"sync"

	"github.com/almostnode/core/internal/vfs"
)

// InstalledPackages lazily enumerates VFS /node_modules/* (expanding
// @scope/* one level deeper) and Dependencies lazily merges
// /package.json's dependencies+devDependencies (spec.md §3). Both
// invalidate together via Clear, mirroring clearInstalledPackagesCache().
type InstalledPackages struct {
	vfs vfs.VFS

	mu           sync.Mutex
	packages     map[string]bool
	packagesSet  bool
	dependencies map[string]string
	depsSet      bool
}

func NewInstalledPackages(v vfs.VFS) *InstalledPackages {
	return &InstalledPackages{vfs: v}
}

func (ip *InstalledPackages) Packages() map[string]bool {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.packagesSet {
		return ip.packages
	}
	ip.packages = scanInstalledPackages(ip.vfs)
	ip.packagesSet = true
	return ip.packages
}

func (ip *InstalledPackages) Dependencies() map[string]string {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.depsSet {
		return ip.dependencies
	}
	ip.dependencies = scanDependencies(ip.vfs)
	ip.depsSet = true
	return ip.dependencies
}

// Clear invalidates both caches (clearInstalledPackagesCache()).
func (ip *InstalledPackages) Clear() {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.packagesSet = false
	ip.depsSet = false
	ip.packages = nil
	ip.dependencies = nil
}

func scanInstalledPackages(v vfs.VFS) map[string]bool {
	out := make(map[string]bool)
	entries, err := v.ReadDirSync("/node_modules")
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDirectory() {
			continue
		}
		if strings.HasPrefix(e.Name(), "@") {
			scopeDir := vfs.Join("/node_modules", e.Name())
			subEntries, err := v.ReadDirSync(scopeDir)
			if err != nil {
				continue
			}
			for _, sub := range subEntries {
				if sub.IsDirectory() {
					out[e.Name()+"/"+sub.Name()] = true
				}
			}
			continue
		}
		out[e.Name()] = true
	}
	return out
}

func scanDependencies(v vfs.VFS) map[string]string {
	out := make(map[string]string)
	pj := parsePackageJSON(v, "/package.json")
	if pj == nil {
		return out
	}
	for name, ver := range pj.Dependencies {
		out[name] = ver
	}
	for name, ver := range pj.DevDependencies {
		if _, exists := out[name]; !exists {
			out[name] = ver
		}
	}
	return out
}
