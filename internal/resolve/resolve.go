package resolve

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// Resolver walks node_modules against a VFS, sharing package.json and
// installed-package caches across both the CJS loader and the npm
// bundler (spec.md §4.4/§4.5).
type Resolver struct {
	vfs      vfs.VFS
	pkgCache *PackageJSONCache
}

func New(v vfs.VFS, pkgCache *PackageJSONCache) *Resolver {
	if pkgCache == nil {
		pkgCache = NewPackageJSONCache()
	}
	return &Resolver{vfs: v, pkgCache: pkgCache}
}

// Conditions picks the (primary, fallback) exports-condition order
// for a caller: the CJS loader resolves require-then-import, the npm
// bundler (emitting ESM) resolves import-then-require.
type Conditions struct {
	Primary, Fallback string
}

var CJSConditions = Conditions{Primary: "require", Fallback: "import"}
var ESMConditions = Conditions{Primary: "import", Fallback: "require"}

// Resolve resolves id from fromDir. Relative/absolute specifiers are
// resolved directly; bare specifiers walk node_modules upward from
// fromDir, falling back to "/node_modules" last.
func (r *Resolver) Resolve(fromDir, id string, cond Conditions) (string, error) {
	id = strings.TrimPrefix(id, "node:")

	if strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") || strings.HasPrefix(id, "/") {
		base := id
		if !strings.HasPrefix(id, "/") {
			base = vfs.Join(fromDir, id)
		}
		if file, ok := r.tryResolveFile(base); ok {
			return file, nil
		}
		return "", fmt.Errorf("cannot resolve relative module %q from %s", id, fromDir)
	}

	for _, dir := range ancestorNodeModulesDirs(fromDir) {
		if file, ok := r.resolveFromNodeModules(dir, id, cond); ok {
			return file, nil
		}
	}
	if file, ok := r.resolveFromNodeModules("/node_modules", id, cond); ok {
		return file, nil
	}

	return "", fmt.Errorf("cannot find module %q", id)
}

// ancestorNodeModulesDirs yields "<dir>/node_modules" for dir walking
// upward from fromDir to "/", excluding the final "/node_modules"
// (handled separately as the guaranteed last fallback).
func ancestorNodeModulesDirs(fromDir string) []string {
	var dirs []string
	dir := fromDir
	for {
		candidate := vfs.Join(dir, "node_modules")
		if candidate != "/node_modules" {
			dirs = append(dirs, candidate)
		}
		if dir == "/" || dir == "" {
			break
		}
		parent := vfs.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// PackageNameAndSubpath splits "left-pad" -> ("left-pad", "."), and
// "@scope/pkg/sub/path" -> ("@scope/pkg", "./sub/path").
func PackageNameAndSubpath(id string) (pkg, subpath string) {
	parts := strings.Split(id, "/")
	if strings.HasPrefix(id, "@") && len(parts) >= 2 {
		pkg = parts[0] + "/" + parts[1]
		rest := parts[2:]
		if len(rest) == 0 {
			return pkg, "."
		}
		return pkg, "./" + strings.Join(rest, "/")
	}
	pkg = parts[0]
	rest := parts[1:]
	if len(rest) == 0 {
		return pkg, "."
	}
	return pkg, "./" + strings.Join(rest, "/")
}

func (r *Resolver) resolveFromNodeModules(nodeModulesDir, id string, cond Conditions) (string, bool) {
	pkgName, subpath := PackageNameAndSubpath(id)
	pkgDir := vfs.Join(nodeModulesDir, pkgName)
	if !r.vfs.Exists(pkgDir) {
		return "", false
	}

	pj := r.pkgCache.Get(r.vfs, vfs.Join(pkgDir, "package.json"))

	if pj != nil && len(pj.Exports) > 0 {
		if rel, ok := resolveExportsField(pj.Exports, subpath, cond.Primary, cond.Fallback); ok {
			file := vfs.Join(pkgDir, rel)
			if abs, ok := r.tryResolveFile(file); ok && !r.isESMOnlyStub(abs) {
				return abs, true
			}
		}
	}

	if subpath == "." {
		entry := mainEntry(pj)
		if abs, ok := r.tryResolveFile(vfs.Join(pkgDir, entry)); ok {
			return abs, true
		}
	}

	// Subpath import with no exports match, or exports resolution
	// skipped/failed: fall back to a direct file probe under the
	// package directory (spec.md §4.5).
	return r.tryResolveFile(vfs.Join(nodeModulesDir, id))
}

// mainEntry picks browser (if string) > module > main > "index.js".
func mainEntry(pj *PackageJSON) string {
	if pj != nil && len(pj.Browser) > 0 {
		var s string
		if jsonUnmarshalString(pj.Browser, &s) && s != "" {
			return s
		}
	}
	if pj != nil && pj.Module != "" {
		return pj.Module
	}
	if pj != nil && pj.Main != "" {
		return pj.Main
	}
	return "index.js"
}

func jsonUnmarshalString(raw []byte, out *string) bool {
	if len(raw) < 2 || raw[0] != '"' {
		return false
	}
	// minimal unescape for the common case; package.json browser
	// fields are plain relative paths in the overwhelming majority of
	// real-world packages.
	s := string(raw[1 : len(raw)-1])
	*out = s
	return true
}

// tryResolveFile implements the loadModule candidate order: exact ->
// +.js -> +.json -> directory "/index.js".
func (r *Resolver) tryResolveFile(base string) (string, bool) {
	if r.vfs.Exists(base) {
		if fi, err := r.vfs.Stat(base); err == nil {
			if fi.IsFile() {
				return base, true
			}
			if fi.IsDirectory() {
				if idx := vfs.Join(base, "index.js"); r.vfs.Exists(idx) {
					return idx, true
				}
			}
		}
	}
	if js := base + ".js"; r.vfs.Exists(js) {
		return js, true
	}
	if jsonPath := base + ".json"; r.vfs.Exists(jsonPath) {
		return jsonPath, true
	}
	if idx := vfs.Join(base, "index.js"); r.vfs.Exists(idx) {
		return idx, true
	}
	return "", false
}

// isESMOnlyStub detects a .cjs file whose first non-whitespace bytes
// are "throw " — an ESM-only package's deliberate CJS-require stub
// (spec.md §4.5) — which resolution must skip.
func (r *Resolver) isESMOnlyStub(path string) bool {
	if !strings.HasSuffix(path, ".cjs") {
		return false
	}
	data, err := r.vfs.ReadFileSync(path)
	if err != nil {
		return false
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("throw "))
}

// PackageJSONCacheOf exposes the shared cache for callers that need
// to pass it to another Resolver instance (e.g. npmbundle reusing the
// CJS loader's cache).
func (r *Resolver) PackageJSONCacheOf() *PackageJSONCache { return r.pkgCache }
