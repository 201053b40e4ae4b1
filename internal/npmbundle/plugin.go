package npmbundle

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/almostnode/core/internal/resolve"
	"github.com/almostnode/core/internal/vfs"
)

// resolvePlugin adapts resolve.Resolver into an esbuild resolve/load
// plugin over the VFS, used for both the synthetic entry's bare import
// and every transitive import inside the bundled package.
func (b *Bundler) resolvePlugin() api.Plugin {
	return api.Plugin{
		Name: "vfs-node-modules",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					fromDir := args.ResolveDir
					if fromDir == "" {
						fromDir = "/"
					}
					resolved, err := b.resolver.Resolve(fromDir, args.Path, resolve.ESMConditions)
					if err != nil {
						return api.OnResolveResult{}, fmt.Errorf("cannot resolve %q: %w", args.Path, err)
					}
					return api.OnResolveResult{Path: resolved, Namespace: "vfs"}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "vfs"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := b.vfs.ReadFileSync(args.Path)
					if err != nil {
						return api.OnLoadResult{}, fmt.Errorf("reading %q: %w", args.Path, err)
					}
					contents := string(data)
					loader := loaderForPath(args.Path)
					return api.OnLoadResult{Contents: &contents, Loader: loader, ResolveDir: vfs.Dir(args.Path)}, nil
				})
		},
	}
}

func loaderForPath(path string) api.Loader {
	switch {
	case hasSuffixAny(path, ".json"):
		return api.LoaderJSON
	case hasSuffixAny(path, ".jsx"):
		return api.LoaderJSX
	case hasSuffixAny(path, ".tsx"):
		return api.LoaderTSX
	case hasSuffixAny(path, ".ts"):
		return api.LoaderTS
	case hasSuffixAny(path, ".css"):
		return api.LoaderCSS
	default:
		return api.LoaderJS
	}
}

func hasSuffixAny(path, suffix string) bool {
	n := len(path)
	m := len(suffix)
	return n >= m && path[n-m:] == suffix
}
