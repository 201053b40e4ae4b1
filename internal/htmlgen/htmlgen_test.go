package htmlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/almostnode/core/internal/router"
	"github.com/almostnode/core/internal/vfstest"
)

func TestGenerateSerializesOnlyPublicEnvVars(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{
		Port: 3001,
		Env:  map[string]string{"NEXT_PUBLIC_API_URL": "https://api.example.com", "SECRET_KEY": "shh"},
	})

	assert.Contains(t, out, "NEXT_PUBLIC_API_URL")
	assert.NotContains(t, out, "SECRET_KEY")
	assert.NotContains(t, out, "shh")
}

func TestGenerateIncludesDiscoveredGlobalCSS(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/styles/globals.css": "body { margin: 0; }",
	})
	out := Generate(fs, Options{Port: 3001})
	assert.Contains(t, out, "/styles/globals.css")
}

func TestGenerateImportMapIncludesAdditionalEntries(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{
		Port:                3001,
		AdditionalImportMap: map[string]string{"lodash-es": "/_npm/lodash-es"},
	})
	assert.Contains(t, out, "lodash-es")
	assert.Contains(t, out, "/_next/shims/link")
}

func TestGenerateAppRouterBootstrapComposesLayouts(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{
		Port: 3001,
		AppRoute: &router.Route{
			Page:    "/app/dashboard/page.tsx",
			Layouts: []string{"/app/layout.tsx", "/app/dashboard/layout.tsx"},
			Params:  router.Params{},
		},
	})
	assert.Contains(t, out, "/_next/app/app/dashboard/page.tsx")
	assert.Contains(t, out, "/_next/app/app/layout.tsx")
}

func TestGenerateNotFoundWhenNoRouteMatches(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{Port: 3001, Pathname: "/missing"})
	assert.Contains(t, out, "404")
}

func TestGenerateAppRouterBootstrapOmitsConventionsWhenAbsent(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{
		Port: 3001,
		AppRoute: &router.Route{
			Page:   "/app/page.tsx",
			Params: router.Params{},
		},
	})
	assert.Contains(t, out, "const ErrorComp = null;")
	assert.Contains(t, out, "const LoadingComp = null;")
	assert.Contains(t, out, "const NotFoundComp = null;")
	assert.Contains(t, out, "React.Suspense")
	assert.Contains(t, out, "class ErrorBoundary extends React.Component")
}

func TestGenerateAppRouterBootstrapWiresLoadingErrorNotFoundConventions(t *testing.T) {
	fs := vfstest.New()
	out := Generate(fs, Options{
		Port: 3001,
		AppRoute: &router.Route{
			Page:     "/app/dashboard/page.tsx",
			Layouts:  []string{"/app/layout.tsx"},
			Params:   router.Params{},
			Loading:  "/app/dashboard/loading.tsx",
			Error:    "/app/dashboard/error.tsx",
			NotFound: "/app/not-found.tsx",
		},
	})
	assert.Contains(t, out, `import("/_next/app/app/dashboard/loading.tsx")`)
	assert.Contains(t, out, `import("/_next/app/app/dashboard/error.tsx")`)
	assert.Contains(t, out, `import("/_next/app/app/not-found.tsx")`)
	assert.Contains(t, out, "err.digest === 'NEXT_NOT_FOUND'")
}

func TestGenerateMergesMetadataPageOverridingLayout(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{
		"/app/layout.tsx":        "export const metadata = { title: 'Site', description: 'Default site description' }",
		"/app/dashboard/page.tsx": "export const metadata = { title: 'Dashboard' }",
	})
	out := Generate(fs, Options{
		Port: 3001,
		AppRoute: &router.Route{
			Page:    "/app/dashboard/page.tsx",
			Layouts: []string{"/app/layout.tsx"},
			Params:  router.Params{},
		},
	})
	assert.Contains(t, out, "<title>Dashboard</title>")
	assert.Contains(t, out, "Default site description")
}
