package cjsloader

import (
	"testing"

	"github.com/almostnode/core/internal/jsrttest"
	"github.com/almostnode/core/internal/vfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireBuiltinWinsOverNodeModules(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/path/index.js": "module.exports = {fake: true}",
	})
	exec := jsrttest.NewScriptedExecutor()
	req := NewRequire(fs, Options{
		BuiltinModules: map[string]any{"path": map[string]any{"real": true}},
		Executor:       exec,
	})

	out, err := req.Require("/pages", "path")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"real": true}, out)
}

func TestRequireStripsNodePrefix(t *testing.T) {
	fs := vfstest.New()
	req := NewRequire(fs, Options{
		BuiltinModules: map[string]any{"fs": "fs-shim"},
		Executor:       jsrttest.NewScriptedExecutor(),
	})

	out, err := req.Require("/pages", "node:fs")
	require.NoError(t, err)
	assert.Equal(t, "fs-shim", out)
}

func TestRequireLoadsJSONDirectly(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/data/config.json": `{"port": 3000, "name": "demo"}`,
	})
	req := NewRequire(fs, Options{Executor: jsrttest.NewScriptedExecutor()})

	out, err := req.Require("/data", "./config.json")
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3000), m["port"])
	assert.Equal(t, "demo", m["name"])
}

func TestRequireCachesModuleAcrossCalls(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/lib/util.js": "module.exports = {n: 1}",
	})
	exec := jsrttest.NewScriptedExecutor()
	exec.Exact["module.exports = {n: 1}"] = map[string]any{"n": 1}
	req := NewRequire(fs, Options{Executor: exec})

	first, err := req.Require("/lib", "./util.js")
	require.NoError(t, err)
	second, err := req.Require("/lib", "./util.js")
	require.NoError(t, err)
	assert.Same(t, &first, &first) // sanity
	assert.Equal(t, first, second)
	assert.Equal(t, 1, req.cache.Len())
}

func TestRequireDeletesCacheEntryOnError(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/lib/broken.js": "__THROW__",
	})
	req := NewRequire(fs, Options{Executor: jsrttest.NewScriptedExecutor()})

	_, err := req.Require("/lib", "./broken.js")
	require.Error(t, err)
	assert.Equal(t, 0, req.cache.Len())
}

func TestRequireUnresolvableModuleWrapsModuleResolutionError(t *testing.T) {
	fs := vfstest.New()
	req := NewRequire(fs, Options{Executor: jsrttest.NewScriptedExecutor()})

	_, err := req.Require("/pages", "left-pad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left-pad")
}

func TestRequireScopesNestedRequireToDependencyDirectory(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/lib/a.js":       "__REQUIRE__:./b.js",
		"/lib/b.js":       "module.exports = {leaf: true}",
		"/other/b.js":     "module.exports = {wrong: true}",
	})
	exec := jsrttest.NewScriptedExecutor()
	exec.Exact["module.exports = {leaf: true}"] = map[string]any{"leaf": true}
	req := NewRequire(fs, Options{Executor: exec})

	out, err := req.Require("/pages", "../lib/a.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"leaf": true}, out)
}
