package devserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmupTransformsAppRouterPageAndLayoutChain(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/app/layout.tsx": "export default function RootLayout({children}) { return children; }",
		"/app/page.tsx":   "export default function Home() {}",
	}, Options{})

	candidates := srv.warmupCandidates()
	assert.ElementsMatch(t, []string{"/app/page.tsx", "/app/layout.tsx"}, candidates)

	require.NoError(t, srv.Warmup(context.Background()))
}

func TestWarmupTransformsPagesRouterIndex(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/pages/index.tsx": "export default function Home() {}",
	}, Options{})

	candidates := srv.warmupCandidates()
	assert.Equal(t, []string{"/pages/index.tsx"}, candidates)

	require.NoError(t, srv.Warmup(context.Background()))
}

func TestWarmupNoRootRouteIsNoop(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	assert.Empty(t, srv.warmupCandidates())
	require.NoError(t, srv.Warmup(context.Background()))
}
