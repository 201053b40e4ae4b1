package apiexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostnode/core/internal/jsrttest"
	"github.com/almostnode/core/internal/vfstest"
)

const redirectMiddlewareSrc = "module.exports.default = function middleware() {}"

func TestRunMiddlewareRedirect(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/middleware.ts": redirectMiddlewareSrc,
	})
	scripted := jsrttest.NewScriptedExecutor()
	scripted.Exact[redirectMiddlewareSrc] = map[string]any{
		"default": MiddlewareFunc(func(req RequestContext) (*MiddlewareResult, error) {
			if req.URL == "/old" {
				return &MiddlewareResult{Redirect: "/new"}, nil
			}
			return nil, nil
		}),
	}
	exec := New(fs, Options{BuiltinModules: BuildBuiltinModules(fs), JSExecutor: scripted})

	result, err := exec.RunMiddleware("/middleware.ts", NewRequestContext("GET", "/old", nil, nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "/new", result.Redirect)

	result, err = exec.RunMiddleware("/middleware.ts", NewRequestContext("GET", "/other", nil, nil))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRunMiddlewareMissingFileIsNoop(t *testing.T) {
	fs := vfstest.New()
	exec := New(fs, Options{BuiltinModules: BuildBuiltinModules(fs), JSExecutor: jsrttest.NewScriptedExecutor()})

	result, err := exec.RunMiddleware("/middleware.ts", NewRequestContext("GET", "/", nil, nil))
	require.NoError(t, err)
	assert.Nil(t, result)
}
