package npmbundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostnode/core/internal/vfstest"
)

func TestBundleSimplePackage(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/left-pad/package.json": `{"name":"left-pad","main":"index.js"}`,
		"/node_modules/left-pad/index.js":     "export default function leftPad(s) { return s; }\nexport var useChat = function() {};",
	})

	b := New(fs, nil)
	result, err := b.Bundle("left-pad")
	require.NoError(t, err)
	assert.Contains(t, result.Code, "useChat")
	assert.Equal(t, "public, max-age=31536000, immutable", result.CacheControl)
}

func TestBundleCachesResult(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/foo/package.json": `{"name":"foo","main":"index.js"}`,
		"/node_modules/foo/index.js":     "export default 1;",
	})

	b := New(fs, nil)
	first, err := b.Bundle("foo")
	require.NoError(t, err)

	fs.WriteFileSync("/node_modules/foo/index.js", []byte("export default 2;"))
	second, err := b.Bundle("foo")
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	b.ClearCache()
	third, err := b.Bundle("foo")
	require.NoError(t, err)
	assert.True(t, strings.Contains(third.Code, "2"))
}

func TestBundleMissingPackageErrors(t *testing.T) {
	fs := vfstest.New()
	b := New(fs, nil)
	_, err := b.Bundle("does-not-exist")
	require.Error(t, err)
}
