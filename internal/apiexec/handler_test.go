package apiexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostnode/core/internal/errs"
	"github.com/almostnode/core/internal/jsrttest"
	"github.com/almostnode/core/internal/vfstest"
)

const helloHandlerSrc = "module.exports.default = function hello() {}"

func newTestExecutor(fs *vfstest.FS, handlerFn HandlerFunc) *Executor {
	scripted := jsrttest.NewScriptedExecutor()
	scripted.Exact[helloHandlerSrc] = map[string]any{"default": handlerFn}
	return New(fs, Options{
		BuiltinModules: BuildBuiltinModules(fs),
		JSExecutor:     scripted,
	})
}

func TestRunPagesAPIHandlerJSONResponse(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/pages/api/hello.js": helloHandlerSrc,
	})
	exec := newTestExecutor(fs, func(req RequestContext, res *BufferedResponse) (*WebResponse, error) {
		return nil, res.JSON(map[string]any{"method": req.Method})
	})

	result := exec.RunPagesAPIHandler("/pages/api/hello.js", NewRequestContext("GET", "/api/hello", nil, nil))
	require.NoError(t, result.Err)
	assert.Equal(t, 200, result.Response.StatusCode)
	assert.JSONEq(t, `{"method":"GET"}`, string(result.Response.Body))
}

func TestRunAppRouteHandlerDispatchesByMethod(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/app/api/items/route.js": helloHandlerSrc,
	})
	scripted := jsrttest.NewScriptedExecutor()
	scripted.Exact[helloHandlerSrc] = map[string]any{
		"GET": HandlerFunc(func(req RequestContext, res *BufferedResponse) (*WebResponse, error) {
			return &WebResponse{StatusCode: 200, Body: []byte("list")}, nil
		}),
		"POST": HandlerFunc(func(req RequestContext, res *BufferedResponse) (*WebResponse, error) {
			return &WebResponse{StatusCode: 201, Body: []byte("created")}, nil
		}),
	}
	exec := New(fs, Options{BuiltinModules: BuildBuiltinModules(fs), JSExecutor: scripted})

	getResult := exec.RunAppRouteHandler(context.Background(), "/app/api/items/route.js",
		NewRequestContext("GET", "/api/items", nil, nil))
	require.NoError(t, getResult.Err)
	assert.Equal(t, "list", string(getResult.Response.Body))

	postResult := exec.RunAppRouteHandler(context.Background(), "/app/api/items/route.js",
		NewRequestContext("POST", "/api/items", nil, nil))
	require.NoError(t, postResult.Err)
	assert.Equal(t, 201, postResult.Response.StatusCode)
}

func TestRunAppRouteHandlerPassesThroughNotFoundSentinel(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/app/api/items/route.js": helloHandlerSrc,
	})
	scripted := jsrttest.NewScriptedExecutor()
	scripted.Exact[helloHandlerSrc] = map[string]any{
		"GET": HandlerFunc(func(req RequestContext, res *BufferedResponse) (*WebResponse, error) {
			return nil, &errs.NotFoundSentinel{}
		}),
	}
	exec := New(fs, Options{BuiltinModules: BuildBuiltinModules(fs), JSExecutor: scripted})

	result := exec.RunAppRouteHandler(context.Background(), "/app/api/items/route.js",
		NewRequestContext("GET", "/api/items", nil, nil))
	require.Error(t, result.Err)
	var nf *errs.NotFoundSentinel
	assert.ErrorAs(t, result.Err, &nf)
}

func TestRunAppRouteHandlerMethodNotAllowed(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/app/api/items/route.js": helloHandlerSrc,
	})
	scripted := jsrttest.NewScriptedExecutor()
	scripted.Exact[helloHandlerSrc] = map[string]any{
		"GET": HandlerFunc(func(req RequestContext, res *BufferedResponse) (*WebResponse, error) {
			return &WebResponse{StatusCode: 200}, nil
		}),
	}
	exec := New(fs, Options{BuiltinModules: BuildBuiltinModules(fs), JSExecutor: scripted})

	result := exec.RunAppRouteHandler(context.Background(), "/app/api/items/route.js",
		NewRequestContext("DELETE", "/api/items", nil, nil))
	require.Error(t, result.Err)
}
