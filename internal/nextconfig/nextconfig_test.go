package nextconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/almostnode/core/internal/vfstest"
)

func TestLoadNextConfigScansWithoutEvaluating(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/next.config.js": "module.exports = { assetPrefix: '/cdn', basePath: '/docs' }",
	})
	cfg := LoadNextConfig(fs, "/")
	assert.Equal(t, "/cdn", cfg.AssetPrefix)
	assert.Equal(t, "/docs", cfg.BasePath)
}

func TestLoadNextConfigPrefersTSOverJS(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/next.config.ts": "export default { basePath: '/from-ts' }",
		"/next.config.js": "module.exports = { basePath: '/from-js' }",
	})
	cfg := LoadNextConfig(fs, "/")
	assert.Equal(t, "/from-ts", cfg.BasePath)
}

func TestLoadTSConfigPathsKeepsFirstTargetPerKey(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/tsconfig.json": `{"compilerOptions":{"paths":{"@/*":["./src/*","./fallback/*"]}}}`,
	})
	aliases := LoadTSConfigPaths(fs, "/")
	if assert.Len(t, aliases, 1) {
		assert.Equal(t, "@/", aliases[0].Prefix)
	}
}

func TestLoadTSConfigPathsMissingFileReturnsNil(t *testing.T) {
	fs := vfstest.New()
	assert.Nil(t, LoadTSConfigPaths(fs, "/"))
}

func TestLoadTOMLOverrideLayersOverNextConfig(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/next.config.js": "module.exports = { assetPrefix: '/cdn' }",
		"/almostnode.toml": "base_path = \"/override\"\n",
	})
	cfg := LoadNextConfig(fs, "/")
	cfg = LoadTOMLOverride(fs, "/", cfg)
	assert.Equal(t, "/cdn", cfg.AssetPrefix)
	assert.Equal(t, "/override", cfg.BasePath)
}

func TestLoadTOMLOverrideMissingFileIsNoop(t *testing.T) {
	fs := vfstest.New()
	cfg := LoadTOMLOverride(fs, "/", NextConfig{BasePath: "/kept"})
	assert.Equal(t, "/kept", cfg.BasePath)
}

func TestLoadTOMLOverrideMalformedTOMLIsIgnored(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/almostnode.toml": "this is not = = valid toml [[[",
	})
	cfg := LoadTOMLOverride(fs, "/", NextConfig{BasePath: "/kept"})
	assert.Equal(t, "/kept", cfg.BasePath)
}
