package apiexec

// MiddlewareResult is the early-return action a root middleware.ts
// default export can request. Full request proxying is out of scope;
// this is the thin, testable slice of real middleware behavior the
// distillation dropped.
type MiddlewareResult struct {
	Redirect string
	Rewrite  string
}

// MiddlewareFunc is the Go-side shape a middleware module's default
// export is bound to, crossing the jsrt.Executor boundary the same way
// HandlerFunc does. A nil *MiddlewareResult (with a nil error) means
// "continue dispatch" — the `next()` case.
type MiddlewareFunc func(req RequestContext) (*MiddlewareResult, error)

// RunMiddleware loads and invokes path's default export, if any. A
// missing file, missing default export, or a default export of the
// wrong shape is treated as "no middleware" rather than an error.
func (e *Executor) RunMiddleware(path string, req RequestContext) (*MiddlewareResult, error) {
	if !e.vfs.Exists(path) {
		return nil, nil
	}

	exportsVal, err := e.loadHandlerModuleFresh(path)
	if err != nil {
		return nil, err
	}

	fn, ok := exportsVal.(MiddlewareFunc)
	if !ok {
		m, isMap := exportsVal.(map[string]any)
		if !isMap {
			return nil, nil
		}
		fn, ok = m["default"].(MiddlewareFunc)
		if !ok {
			return nil, nil
		}
	}

	return fn(req)
}
