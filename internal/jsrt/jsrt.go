// Package jsrt defines the boundary between this module's Go-side
// orchestration (resolution, caching, transformation) and the actual
// execution of transformed JavaScript.
//
// Like the VFS and the Service Worker bridge (spec.md §1), a JS
// execution engine is an external collaborator: in production this
// module runs embedded in a browser tab, where "new Function(...)"
// (spec.md §9) is supplied by the host's own JS engine. Go has no
// built-in equivalent, and embedding a full interpreter is explicitly
// called out as overkill (spec.md §9 design note). Executor is the
// seam a host — a WASM-compiled build of this package calling back
// into the tab's JS engine, or a Node/goja-backed test harness —
// plugs into.
package jsrt

// Globals is the fixed set of bindings "new Function('exports',
// 'require', 'module', '__filename', '__dirname', 'process', code)"
// supplies (spec.md §4.5, §4.6).
type Globals struct {
	Filename string
	Dirname  string
	Require  RequireFunc
	Process  ProcessShim
}

// RequireFunc is the require() closure passed into an executed
// module, already scoped to that module's own directory (spec.md
// §4.5 "require() from inside a loaded module is scoped to that
// module's directory").
type RequireFunc func(id string) (any, error)

// ProcessShim is the minimal process-like object exposed to handlers
// and required modules (spec.md §4.6 "process" global, §6.4 "env").
type ProcessShim struct {
	Env      map[string]string
	Platform string
	Version  string
}

// Executor evaluates a single CJS module body and returns the final
// value of `module.exports` (honoring in-script reassignment, spec.md
// §4.5's "update mod.exports from module.exports").
type Executor interface {
	Run(code string, globals Globals) (exports any, err error)
}
