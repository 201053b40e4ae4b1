// Package npmbundle implements the on-demand /_npm/* bundle server
// (spec.md §4.4): real esbuild bundling of a VFS node_modules package
// into a single immutable ESM chunk, backed by a resolve.Resolver
// plugin so bundling shares resolution semantics with the CJS loader.
package npmbundle

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/almostnode/core/internal/resolve"
	"github.com/almostnode/core/internal/vfs"
)

// Bundler serves bundled npm packages from VFS node_modules.
type Bundler struct {
	vfs      vfs.VFS
	resolver *resolve.Resolver
	cache    *bundleCache
}

// Result is a cached bundle body plus the headers it should be served
// with (spec.md §4.4 "immutable" caching).
type Result struct {
	Code         string
	CacheControl string
}

func New(v vfs.VFS, pkgCache *resolve.PackageJSONCache) *Bundler {
	return &Bundler{
		vfs:      v,
		resolver: resolve.New(v, pkgCache),
		cache:    newBundleCache(),
	}
}

// Bundle returns the cached ESM bundle for specifier, building it on
// first request with a virtual-FS esbuild resolve plugin.
func (b *Bundler) Bundle(specifier string) (Result, error) {
	if cached, ok := b.cache.get(specifier); ok {
		return cached, nil
	}

	entry := syntheticEntrySource(specifier)

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   entry,
			ResolveDir: "/",
			Sourcefile: "__npm_entry__.js",
			Loader:     api.LoaderJS,
		},
		Bundle:   true,
		Format:   api.FormatESModule,
		Platform: api.PlatformBrowser,
		Target:   api.ESNext,
		Write:    false,
		Plugins:  []api.Plugin{b.resolvePlugin()},
	})

	if len(result.Errors) > 0 {
		return Result{}, fmt.Errorf("bundling %q: %s", specifier, formatMessages(result.Errors))
	}
	if len(result.OutputFiles) == 0 {
		return Result{}, fmt.Errorf("bundling %q produced no output", specifier)
	}

	out := Result{
		Code:         string(result.OutputFiles[0].Contents),
		CacheControl: cacheControlImmutable,
	}

	b.cache.set(specifier, out)

	return out, nil
}

// ClearCache invalidates every bundled entry, mirroring
// clearInstalledPackagesCache() (spec.md §4.4).
func (b *Bundler) ClearCache() {
	b.cache.reset()
}

// syntheticEntrySource re-exports both the named and default members
// of specifier, preserving named exports rather than wrapping them
// (spec.md §4.4 "must include export var useChat").
func syntheticEntrySource(specifier string) string {
	return fmt.Sprintf(
		"import * as __m from %q;\nexport * from %q;\nexport default __m.default;\n",
		specifier, specifier,
	)
}

func formatMessages(msgs []api.Message) string {
	s := ""
	for i, m := range msgs {
		if i > 0 {
			s += "; "
		}
		s += m.Text
	}
	return s
}
