package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/almostnode/core/internal/vfstest"
)

func TestRedirectNpmImportsToCDNWhenNotInstalled(t *testing.T) {
	code := `import lodash from "lodash";`
	out := RedirectNpmImports(code, RedirectOptions{VFS: vfstest.New()})
	assert.Contains(t, out, `"https://esm.sh/lodash"`)
}

func TestRedirectNpmImportsToLocalBundleWhenInstalled(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/lodash/package.json": `{"name":"lodash"}`,
	})
	code := `import lodash from "lodash";`
	out := RedirectNpmImports(code, RedirectOptions{VFS: fs})
	assert.Contains(t, out, `"/_npm/lodash"`)
}

func TestRedirectNpmImportsKeepsWhitelistedLocalPackage(t *testing.T) {
	code := `import thing from "@acme/shared";`
	out := RedirectNpmImports(code, RedirectOptions{
		VFS:                     vfstest.New(),
		AdditionalLocalPackages: map[string]bool{"@acme/shared": true},
	})
	assert.Equal(t, code, out)
}

func TestRedirectNpmImportsPinsKnownDependencyVersion(t *testing.T) {
	code := `import React from "react";`
	out := RedirectNpmImports(code, RedirectOptions{
		VFS:          vfstest.New(),
		Dependencies: map[string]string{"react": "18.2.0"},
	})
	assert.Contains(t, out, `"https://esm.sh/react@18.2.0"`)
}

// A second pass over already-redirected output must be a no-op: neither
// a "/_npm/..." specifier nor an "https://esm.sh/..." specifier should
// ever be rewritten again (spec.md §8 "Idempotent redirects").
func TestRedirectNpmImportsIsIdempotentOnCDNOutput(t *testing.T) {
	code := `import lodash from "lodash";`
	opts := RedirectOptions{VFS: vfstest.New()}

	firstPass := RedirectNpmImports(code, opts)
	assert.Contains(t, firstPass, `"https://esm.sh/lodash"`)

	secondPass := RedirectNpmImports(firstPass, opts)
	assert.Equal(t, firstPass, secondPass)
	assert.NotContains(t, secondPass, "https://esm.sh/https://esm.sh/")
}

func TestRedirectNpmImportsIsIdempotentOnLocalBundleOutput(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/lodash/package.json": `{"name":"lodash"}`,
	})
	code := `import lodash from "lodash";`
	opts := RedirectOptions{VFS: fs}

	firstPass := RedirectNpmImports(code, opts)
	assert.Contains(t, firstPass, `"/_npm/lodash"`)

	secondPass := RedirectNpmImports(firstPass, opts)
	assert.Equal(t, firstPass, secondPass)
}

func TestRedirectNpmImportsHandlesScopedPackageSubpath(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/node_modules/@acme/ui/package.json": `{"name":"@acme/ui"}`,
	})
	code := `import Button from "@acme/ui/button";`
	out := RedirectNpmImports(code, RedirectOptions{VFS: fs})
	assert.Contains(t, out, `"/_npm/@acme/ui/button"`)
}

func TestRedirectNpmImportsMatchesDynamicImport(t *testing.T) {
	code := `const mod = await import("lodash");`
	out := RedirectNpmImports(code, RedirectOptions{VFS: vfstest.New()})
	assert.Contains(t, out, `import("https://esm.sh/lodash")`)
}
