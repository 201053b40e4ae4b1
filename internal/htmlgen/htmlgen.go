// Package htmlgen emits the single-shot HTML shell described in
// spec.md §4.2: import map, React-Refresh preamble, HMR client,
// env script, and bootstrap module for both router modes.
package htmlgen

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/almostnode/core/internal/router"
	"github.com/almostnode/core/internal/shims"
	"github.com/almostnode/core/internal/vfs"
)

// Options configures shell generation for a single request.
type Options struct {
	Port                int
	Pathname            string
	Env                 map[string]string // full env; only NEXT_PUBLIC_* is serialized
	BasePath            string
	AdditionalImportMap map[string]string
	UseTailwindCDN      bool
	CORSProxyURL        string

	// AppRoute is set when the App Router resolved a route for this
	// request; its files are imported through /_next/app<path>. Otherwise
	// PageFound selects the Pages Router bootstrap, which imports
	// /_next/pages<Pathname>.js (PageFile is not read by Generate); with
	// neither, the shell renders a 404 message.
	AppRoute  *router.Route
	PageFile  string
	PageFound bool
}

var globalCSSCandidates = []string{"/app/globals.css", "/styles/globals.css", "/styles/global.css"}

// Generate builds the full HTML document.
func Generate(v vfs.VFS, opts Options) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<base href=\"/__virtual__/%d/\">\n", opts.Port)

	if opts.AppRoute != nil {
		b.WriteString(metadataHeadTags(mergeMetadata(v, opts.AppRoute.Layouts, opts.AppRoute.Page)))
	}

	for _, css := range globalCSSCandidates {
		if v.Exists(css) {
			fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"/__virtual__/%d%s\">\n", opts.Port, css)
		}
	}

	if opts.UseTailwindCDN {
		b.WriteString("<script src=\"https://cdn.tailwindcss.com\"></script>\n")
	}

	b.WriteString(envScript(opts))
	b.WriteString(corsProxyScript(opts.CORSProxyURL))
	b.WriteString(importMapScript(opts))
	b.WriteString(reactRefreshPreamble())
	b.WriteString(hmrClientScript())

	b.WriteString("</head>\n<body>\n<div id=\"__next\"></div>\n")
	b.WriteString(bootstrapScript(opts))
	b.WriteString("</body>\n</html>\n")

	return b.String()
}

func envScript(opts Options) string {
	public := map[string]string{}
	for k, v := range opts.Env {
		if strings.HasPrefix(k, "NEXT_PUBLIC_") {
			public[k] = v
		}
	}
	encoded, _ := json.Marshal(public)
	return fmt.Sprintf(
		"<script>window.process = window.process || {}; window.process.env = %s; window.__NEXT_BASE_PATH__ = %q;</script>\n",
		encoded, opts.BasePath,
	)
}

func corsProxyScript(corsProxyURL string) string {
	if corsProxyURL == "" {
		return ""
	}
	encoded, _ := json.Marshal(corsProxyURL)
	return fmt.Sprintf(`<script>
window.__NEXT_CORS_PROXY__ = %s;
window.__nextFetch = function(url, init) {
  const proxied = window.__NEXT_CORS_PROXY__ + encodeURIComponent(url);
  return fetch(proxied, init);
};
</script>
`, encoded)
}

func importMapScript(opts Options) string {
	entries := map[string]string{
		"react":             "https://esm.sh/react",
		"react-dom":         "https://esm.sh/react-dom",
		"react-dom/client":  "https://esm.sh/react-dom/client",
		"next/link":         shims.ShimPath(shims.Link),
		"next/router":       shims.ShimPath(shims.Router),
		"next/navigation":   shims.ShimPath(shims.Navigation),
		"next/head":         shims.ShimPath(shims.Head),
		"next/image":        shims.ShimPath(shims.Image),
		"next/dynamic":      shims.ShimPath(shims.Dynamic),
		"next/script":       shims.ShimPath(shims.Script),
		"next/font/google":  shims.ShimPath(shims.FontGoogle),
		"next/font/local":   shims.ShimPath(shims.FontLocal),
	}
	for k, v := range opts.AdditionalImportMap {
		entries[k] = v
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]string, len(entries))
	for _, k := range keys {
		ordered[k] = entries[k]
	}

	encoded, _ := json.MarshalIndent(map[string]any{"imports": ordered}, "", "  ")
	return fmt.Sprintf("<script type=\"importmap\">\n%s\n</script>\n", encoded)
}

// reactRefreshPreamble must run before any user module import (spec.md
// §4.2).
func reactRefreshPreamble() string {
	return `<script type="module">
import RefreshRuntime from "https://esm.sh/react-refresh/runtime";
RefreshRuntime.injectIntoGlobalHook(window);
window.$RefreshReg$ = () => {};
window.$RefreshSig$ = () => (type) => type;
window.$RefreshRuntime$ = RefreshRuntime;
</script>
`
}

// hmrClientScript listens for postMessage HMR updates (spec.md §4.2,
// §6.5): .css paths cache-bust matching <link> elements, source paths
// re-import with a cache-busting query and trigger React Refresh,
// everything else triggers a full reload.
func hmrClientScript() string {
	return `<script type="module">
window.addEventListener('message', (event) => {
  const data = event.data;
  if (!data || data.channel !== 'next-hmr') return;
  if (data.type === 'full-reload') {
    window.location.reload();
    return;
  }
  if (data.path && data.path.endsWith('.css')) {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      if (link.href.includes(data.path)) {
        const url = new URL(link.href);
        url.searchParams.set('t', String(data.timestamp));
        link.href = url.toString();
      }
    });
    return;
  }
  if (/\.(jsx|tsx|ts|js)$/.test(data.path || '')) {
    import(data.path + '?t=' + data.timestamp).then(() => {
      window.$RefreshRuntime$ && window.$RefreshRuntime$.performReactRefresh();
    });
    return;
  }
  window.location.reload();
});
</script>
`
}

func bootstrapScript(opts Options) string {
	if opts.AppRoute != nil {
		return appRouterBootstrap(opts)
	}
	if opts.PageFound {
		return pagesRouterBootstrap(opts)
	}
	return notFoundBootstrap(opts)
}

// conventionImportExpr builds the inline expression that lazily
// imports an optional loading/error/not-found convention file's
// default export, or resolves to null when the route has none (spec.md
// §4.2 "attached from the nearest enclosing directory").
func conventionImportExpr(absPath string) string {
	if absPath == "" {
		return "null"
	}
	url, _ := json.Marshal(appPathToClientURL(absPath))
	return fmt.Sprintf("(await import(%s)).default", url)
}

// appRouterBootstrap wires route.Loading/Error/NotFound (spec.md
// §4.2's Suspense/ErrorBoundary/not-found requirements) around the
// page element, the same way layouts are composed around it: a
// Suspense boundary falls back to the Loading component while lazy
// imports resolve, and an ErrorBoundary class component distinguishes
// a thrown NEXT_NOT_FOUND sentinel (spec.md §9 "exception-driven
// navigation", see next/navigation's notFound() shim) from any other
// render error, mounting NotFound or Error respectively.
func appRouterBootstrap(opts Options) string {
	route := opts.AppRoute
	paramsJSON, _ := json.Marshal(route.Params)
	layoutsJSON, _ := json.Marshal(appPathsToClientURLs(route.Layouts))
	pageURL := appPathToClientURL(route.Page)

	return fmt.Sprintf(`<script type="module">
window.__NEXT_ROUTE_PARAMS__ = %s;
window.__NEXT_ROUTE_CACHE__ = { found: true, params: %s, page: %q, layouts: %s };
import('react').then(async ({ default: React }) => {
  const { createRoot } = await import('react-dom/client');
  const layoutMods = await Promise.all(%s.map((u) => import(u)));
  const { default: Page } = await import(%q);
  const ErrorComp = %s;
  const LoadingComp = %s;
  const NotFoundComp = %s;

  class ErrorBoundary extends React.Component {
    constructor(props) {
      super(props);
      this.state = { error: null };
    }
    static getDerivedStateFromError(error) {
      return { error };
    }
    render() {
      const err = this.state.error;
      if (!err) return this.props.children;
      if (err.digest === 'NEXT_NOT_FOUND') {
        return NotFoundComp
          ? React.createElement(NotFoundComp)
          : React.createElement('h1', null, 'Not Found');
      }
      return ErrorComp
        ? React.createElement(ErrorComp, { error: err, reset: () => this.setState({ error: null }) })
        : React.createElement('pre', null, String((err && err.stack) || err));
    }
  }

  const pageElement = React.createElement(Page, window.__NEXT_ROUTE_PARAMS__);
  const suspended = React.createElement(
    React.Suspense,
    { fallback: LoadingComp ? React.createElement(LoadingComp) : null },
    pageElement
  );
  const bounded = React.createElement(ErrorBoundary, null, suspended);

  const tree = layoutMods.reverse().reduce(
    (child, mod) => React.createElement(mod.default, null, child),
    bounded
  );
  createRoot(document.getElementById('__next')).render(tree);
});
</script>
`, paramsJSON, paramsJSON, route.Page, layoutsJSON, layoutsJSON, pageURL,
		conventionImportExpr(route.Error), conventionImportExpr(route.Loading), conventionImportExpr(route.NotFound))
}

func pagesRouterBootstrap(opts Options) string {
	url := fmt.Sprintf("/_next/pages%s.js", opts.Pathname)
	return fmt.Sprintf(`<script type="module">
import('react').then(async ({ default: React }) => {
  const { createRoot } = await import('react-dom/client');
  const { default: Page } = await import(%q);
  createRoot(document.getElementById('__next')).render(React.createElement(Page));
});
</script>
`, url)
}

func notFoundBootstrap(opts Options) string {
	return fmt.Sprintf(`<script type="module">
document.getElementById('__next').innerHTML = %q;
</script>
`, "<h1>404 — Not Found</h1><p>"+html.EscapeString(opts.Pathname)+"</p>")
}

func appPathToClientURL(absPath string) string {
	if absPath == "" {
		return ""
	}
	return fmt.Sprintf("/_next/app%s", absPath)
}

func appPathsToClientURLs(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = appPathToClientURL(p)
	}
	return out
}
