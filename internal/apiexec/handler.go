package apiexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/almostnode/core/internal/cjsloader"
	"github.com/almostnode/core/internal/errs"
	"github.com/almostnode/core/internal/jsrt"
	"github.com/almostnode/core/internal/resolve"
	"github.com/almostnode/core/internal/vfs"
)

// HandlerTimeout is the fixed budget a handler gets to call res.end()
// or return a Response (spec.md §4.6).
const HandlerTimeout = 30 * time.Second

// Options configures an Executor (builtin node shims, optional
// apiModules overrides, env, and the CORS proxy shorthand).
type Options struct {
	BuiltinModules map[string]any
	APIModules     map[string]any // overrides/extends BuiltinModules
	Env            map[string]string
	CORSProxyURL   string
	JSExecutor     jsrt.Executor
	PackageJSONCache *resolve.PackageJSONCache
}

// Executor runs Pages API handlers and App Router route.ts handlers
// against mock req/res objects.
type Executor struct {
	vfs     vfs.VFS
	opts    Options
	require *cjsloader.Require
}

func New(v vfs.VFS, opts Options) *Executor {
	modules := make(map[string]any, len(opts.BuiltinModules)+len(opts.APIModules))
	for k, val := range opts.BuiltinModules {
		modules[k] = val
	}
	for k, val := range opts.APIModules {
		modules[k] = val
	}

	env := make(map[string]string, len(opts.Env)+1)
	for k, val := range opts.Env {
		env[k] = val
	}
	if opts.CORSProxyURL != "" {
		env["CORS_PROXY_URL"] = opts.CORSProxyURL
	}

	req := cjsloader.NewRequire(v, cjsloader.Options{
		BuiltinModules:   modules,
		Process:          jsrt.ProcessShim{Env: env, Platform: "browser", Version: "v20.0.0"},
		PackageJSONCache: opts.PackageJSONCache,
		Executor:         opts.JSExecutor,
	})

	return &Executor{vfs: v, opts: opts, require: req}
}

// HandlerResult is the outcome of evaluating a Pages API handler
// against its mock req/res pair.
type HandlerResult struct {
	Response ResponseData
	Err      error
}

// RunPagesAPIHandler evaluates handlerPath's default export against
// req using a buffered mock response, enforcing the 30s timeout.
func (e *Executor) RunPagesAPIHandler(handlerPath string, req RequestContext) HandlerResult {
	res := NewBufferedResponse()

	exportsVal, err := e.loadHandlerModule(handlerPath)
	if err != nil {
		return e.errorResult(handlerPath, err)
	}

	handlerFn, err := extractDefaultHandler(exportsVal)
	if err != nil {
		return e.errorResult(handlerPath, err)
	}

	type outcome struct {
		webResp *WebResponse
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%v", rec)}
			}
		}()
		webResp, err := handlerFn(req, res)
		done <- outcome{webResp: webResp, err: err}
	}()

	timeout := time.After(HandlerTimeout)
	select {
	case out := <-done:
		if out.err != nil {
			return e.errorResult(handlerPath, out.err)
		}
		if out.webResp != nil {
			return HandlerResult{Response: ToResponseData(*out.webResp)}
		}
	case <-timeout:
		return HandlerResult{Err: &errs.HandlerTimeout{Path: handlerPath}}
	}

	ended := make(chan struct{})
	go func() {
		res.WaitForEnd()
		close(ended)
	}()
	select {
	case <-ended:
	case <-timeout:
		return HandlerResult{Err: &errs.HandlerTimeout{Path: handlerPath}}
	}
	return HandlerResult{Response: res.ToResponse()}
}

// RunAppRouteHandler evaluates route.ts's exported function matching
// req.Method (case-insensitive), re-evaluating the module fresh every
// call (no handler-factory caching). The whole module cache is cleared
// first, so the handler's transitive requires are re-evaluated too.
func (e *Executor) RunAppRouteHandler(ctx context.Context, handlerPath string, req RequestContext) HandlerResult {
	exportsVal, err := e.loadHandlerModuleFresh(handlerPath)
	if err != nil {
		return e.errorResult(handlerPath, err)
	}

	methodFn, err := extractMethodHandler(exportsVal, req.Method)
	if err != nil {
		return e.errorResult(handlerPath, err)
	}

	res := NewBufferedResponse()
	runCtx, cancel := context.WithTimeout(ctx, HandlerTimeout)
	defer cancel()

	type outcome struct {
		webResp *WebResponse
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%v", rec)}
			}
		}()
		webResp, err := methodFn(req, res)
		done <- outcome{webResp: webResp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return e.errorResult(handlerPath, out.err)
		}
		if out.webResp != nil {
			return HandlerResult{Response: ToResponseData(*out.webResp)}
		}
	case <-runCtx.Done():
		return HandlerResult{Err: &errs.HandlerTimeout{Path: handlerPath}}
	}

	ended := make(chan struct{})
	go func() {
		res.WaitForEnd()
		close(ended)
	}()
	select {
	case <-ended:
	case <-runCtx.Done():
		return HandlerResult{Err: &errs.HandlerTimeout{Path: handlerPath}}
	}
	return HandlerResult{Response: res.ToResponse()}
}

// errorResult wraps a handler failure as a HandlerError, except for a
// thrown NotFoundSentinel (spec.md §9 "exception-driven navigation"),
// which passes through untagged so the dispatcher can resolve it to
// the nearest not-found convention instead of a generic 500.
func (e *Executor) errorResult(path string, err error) HandlerResult {
	var nf *errs.NotFoundSentinel
	if errors.As(err, &nf) {
		return HandlerResult{Err: nf}
	}
	return HandlerResult{Err: &errs.HandlerError{Path: path, Err: err}}
}

func (e *Executor) loadHandlerModule(path string) (any, error) {
	return e.require.Require(vfs.Dir(path), "./"+vfs.Base(path))
}

// loadHandlerModuleFresh clears the whole module cache before loading
// path, so the handler and every module it requires are evaluated
// again on each call; nothing cached by earlier requests is reused.
func (e *Executor) loadHandlerModuleFresh(path string) (any, error) {
	e.require.ClearModuleCache()
	return e.require.Require(vfs.Dir(path), "./"+vfs.Base(path))
}

// HandlerFunc is the shape extracted from a module's exports. A real
// jsrt.Executor host (running inside the JS engine that owns the
// transformed handler code) binds the handler's JS function into this
// Go-callable form before returning it from Run, the same way it binds
// require/process/etc into jsrt.Globals; from here on execution is
// ordinary Go. It receives the mock req/res and signals completion by
// returning (nil error means res.end()/res.json()/etc. was already
// called).
// A non-nil WebResponse return short-circuits res entirely (spec.md
// §4.6 "If result is a Response").
type HandlerFunc func(req RequestContext, res *BufferedResponse) (*WebResponse, error)

func extractDefaultHandler(exportsVal any) (HandlerFunc, error) {
	fn, ok := exportsVal.(HandlerFunc)
	if ok {
		return fn, nil
	}
	if m, ok := exportsVal.(map[string]any); ok {
		if d, ok := m["default"]; ok {
			if fn, ok := d.(HandlerFunc); ok {
				return fn, nil
			}
			if nested, ok := d.(map[string]any); ok {
				if dd, ok := nested["default"].(HandlerFunc); ok {
					return dd, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("module does not export a default handler function")
}

func extractMethodHandler(exportsVal any, method string) (HandlerFunc, error) {
	m, ok := exportsVal.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("route module does not export any HTTP method handlers")
	}
	upper := strings.ToUpper(method)
	for key, v := range m {
		if strings.ToUpper(key) == upper {
			if fn, ok := v.(HandlerFunc); ok {
				return fn, nil
			}
		}
	}
	return nil, &errs.MethodNotAllowed{Method: method}
}
