// Package cjsloader implements the VFS-backed CommonJS module loader
// used by API handlers (spec.md §4.5): require() resolution that
// honours builtins, package.json exports/browser/module/main fields,
// circular-import safety via pre-insertion, and an ESM->CJS safety
// net for node_modules sources written as ESM.
package cjsloader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/almostnode/core/internal/errs"
	"github.com/almostnode/core/internal/jsrt"
	"github.com/almostnode/core/internal/resolve"
	"github.com/almostnode/core/internal/transform"
	"github.com/almostnode/core/internal/vfs"
)

// Options configures a Require instance (spec.md §4.5
// `createVfsRequire(vfs, fromDir, {builtinModules, process, moduleCache?})`).
type Options struct {
	BuiltinModules map[string]any
	Process        jsrt.ProcessShim
	ModuleCache    *ModuleCache // shared across calls when non-nil
	PackageJSONCache *resolve.PackageJSONCache
	Executor       jsrt.Executor
}

// Require is the require() closure factory described in spec.md §4.5.
type Require struct {
	vfs      vfs.VFS
	resolver *resolve.Resolver
	cache    *ModuleCache
	builtins map[string]any
	process  jsrt.ProcessShim
	executor jsrt.Executor
}

// NewRequire builds a Require; the directory a lookup starts from is
// passed to each Require call. Builtins always win
// over VFS resolution (spec.md §4.5/§8 "Builtin priority").
func NewRequire(v vfs.VFS, opts Options) *Require {
	cache := opts.ModuleCache
	if cache == nil {
		cache = NewModuleCache()
	}
	return &Require{
		vfs:      v,
		resolver: resolve.New(v, opts.PackageJSONCache),
		cache:    cache,
		builtins: opts.BuiltinModules,
		process:  opts.Process,
		executor: opts.Executor,
	}
}

// Require resolves and loads id as seen from fromDir, returning its
// exports object.
func (r *Require) Require(fromDir, id string) (any, error) {
	stripped := strings.TrimPrefix(id, "node:")

	if builtin, ok := r.builtins[stripped]; ok {
		return builtin, nil
	}

	resolved, err := r.resolver.Resolve(fromDir, stripped, resolve.CJSConditions)
	if err != nil {
		return nil, &errs.ModuleResolution{ID: id, From: fromDir}
	}

	return r.loadModule(resolved)
}

// closureFor returns a require() function scoped to dir, for binding
// into an executed module's globals.
func (r *Require) closureFor(dir string) jsrt.RequireFunc {
	return func(id string) (any, error) { return r.Require(dir, id) }
}

func (r *Require) loadModule(path string) (any, error) {
	if m, ok := r.cache.Get(path); ok {
		return m.Exports, nil
	}

	mod := &Module{ID: path, Filename: path, Exports: map[string]any{}, Loaded: false}
	r.cache.Insert(path, mod)

	if strings.HasSuffix(path, ".json") {
		data, err := r.vfs.ReadFileSync(path)
		if err != nil {
			r.cache.Delete(path)
			return nil, fmt.Errorf("%w (in %s)", err, path)
		}
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			r.cache.Delete(path)
			return nil, fmt.Errorf("invalid JSON: %w (in %s)", err, path)
		}
		mod.Exports = parsed
		mod.Loaded = true
		return mod.Exports, nil
	}

	src, err := r.vfs.ReadFileSync(path)
	if err != nil {
		r.cache.Delete(path)
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}

	code := stripShebang(string(src))
	if !strings.HasSuffix(path, ".cjs") && looksLikeESM(code) {
		code = transform.TransformEsmToCjsSimple(code)
	}

	dir := vfs.Dir(path)

	if r.executor == nil {
		r.cache.Delete(path)
		return nil, fmt.Errorf("no JS executor configured (in %s)", path)
	}

	result, runErr := r.executor.Run(code, jsrt.Globals{
		Filename: path,
		Dirname:  dir,
		Require:  r.closureFor(dir),
		Process:  r.process,
	})
	if runErr != nil {
		r.cache.Delete(path)
		return nil, wrapWithPath(runErr, path)
	}

	mod.Exports = result
	mod.Loaded = true
	return mod.Exports, nil
}

func stripShebang(code string) string {
	if strings.HasPrefix(code, "#!") {
		if idx := strings.IndexByte(code, '\n'); idx >= 0 {
			return code[idx+1:]
		}
		return ""
	}
	return code
}

var esmImportExportWords = []string{"import ", "import{", "import*", "export ", "export{", "export*", "export default"}

func looksLikeESM(code string) bool {
	for _, w := range esmImportExportWords {
		if strings.Contains(code, w) {
			return true
		}
	}
	return false
}

func wrapWithPath(err error, path string) error {
	msg := err.Error()
	if strings.Contains(msg, path) {
		return err
	}
	return fmt.Errorf("%s (in %s)", msg, path)
}

// ClearModuleCache drops all cached modules (used by test harnesses
// and full server restarts).
func (r *Require) ClearModuleCache() { r.cache = NewModuleCache() }
