// Package transform implements the source-transformation pipeline
// from spec.md §4.3: TS/JSX/TSX to browser-runnable ESM (for page and
// client modules) or CJS (for API handlers), with CSS stripping, path
// aliasing, npm-import redirection, and React-Refresh registration.
package transform

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/almostnode/core/internal/errs"
	"github.com/almostnode/core/internal/vfs"
)

// Config carries the caller-supplied options that influence
// transformation (spec.md §6.4).
type Config struct {
	Port                    int
	Aliases                 []Alias
	AdditionalLocalPackages map[string]bool
	Dependencies            map[string]string
	EsmShDeps               string
}

// Transformer runs the pipeline against a VFS, caching results.
type Transformer struct {
	vfs    vfs.VFS
	cfg    Config
	cache  *Cache
}

func New(v vfs.VFS, cfg Config) *Transformer {
	return &Transformer{vfs: v, cache: NewCache(), cfg: cfg}
}

// Result is the outcome of transforming a single module.
type Result struct {
	Code   string
	Hash   uint64
	Cached bool
}

// Transform runs the full ESM pipeline for a page/client module
// (spec.md §4.3 "Pipeline for source modules").
func (t *Transformer) Transform(path string) (Result, error) {
	src, err := t.vfs.ReadFileSync(path)
	if err != nil {
		return Result{}, &errs.TransformError{Path: path, Err: err}
	}

	hash := ContentHash(src)
	if entry, ok := t.cache.Get(path, hash); ok {
		return Result{Code: entry.Code, Hash: hash, Cached: true}, nil
	}

	code := string(src)
	code = stripCSSImports(t.vfs, vfs.Dir(path), code)
	code = rewriteAliases(code, t.cfg.Aliases, t.cfg.Port, false)

	loader := loaderForPath(path)
	transformed, err := t.esbuildTransform(code, path, loader, esbuild.FormatESModule)
	if err != nil {
		return Result{}, &errs.TransformError{Path: path, Err: err}
	}

	transformed = RedirectNpmImports(transformed, RedirectOptions{
		VFS:                     t.vfs,
		AdditionalLocalPackages: t.cfg.AdditionalLocalPackages,
		Dependencies:            t.cfg.Dependencies,
		EsmShDeps:               t.cfg.EsmShDeps,
	})

	if loader == esbuild.LoaderJSX || loader == esbuild.LoaderTSX {
		transformed = injectReactRefresh(transformed, path)
	}

	entry := Entry{Code: transformed, Hash: hash}
	t.cache.Put(path, entry)

	return Result{Code: transformed, Hash: hash}, nil
}

// TransformForHandler runs the CJS pipeline for API/route handlers
// (spec.md §4.3 "Pipeline for API handlers"). No virtual-port
// rewriting is applied to aliases since require() resolves through
// the VFS directly.
func (t *Transformer) TransformForHandler(path string) (string, error) {
	src, err := t.vfs.ReadFileSync(path)
	if err != nil {
		return "", &errs.TransformError{Path: path, Err: err}
	}

	code := rewriteAliases(string(src), t.cfg.Aliases, t.cfg.Port, true)

	result, err := t.esbuildTransform(code, path, loaderForPath(path), esbuild.FormatCommonJS)
	if err != nil {
		// esbuild unavailable or failed: fall back to the regex-based
		// ESM->CJS safety net (spec.md §4.3, §9 open question (b)).
		return TransformEsmToCjsSimple(code), nil
	}
	return result, nil
}

func loaderForPath(path string) esbuild.Loader {
	switch {
	case strings.HasSuffix(path, ".jsx"):
		return esbuild.LoaderJSX
	case strings.HasSuffix(path, ".tsx"):
		return esbuild.LoaderTSX
	case strings.HasSuffix(path, ".ts"):
		return esbuild.LoaderTS
	default:
		return esbuild.LoaderJS
	}
}

func (t *Transformer) esbuildTransform(code, filename string, loader esbuild.Loader, format esbuild.Format) (string, error) {
	opts := esbuild.TransformOptions{
		Loader:            loader,
		Format:            format,
		Target:            esbuild.ESNext,
		Sourcefile:        filename,
		Sourcemap:         esbuild.SourceMapInline,
		JSX:               esbuild.JSXAutomatic,
		JSXImportSource:   "react",
	}
	if format == esbuild.FormatCommonJS {
		opts.Platform = esbuild.PlatformNeutral
	}

	result := esbuild.Transform(code, opts)
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, m := range result.Errors {
			msgs[i] = m.Text
		}
		return "", fmt.Errorf("esbuild: %s", strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}

// ClearCache drops all cached transforms (used by test harnesses and
// after VFS-wide resets).
func (t *Transformer) ClearCache() { t.cache = NewCache() }

// CacheLen exposes the cache size for tests/metrics.
func (t *Transformer) CacheLen() int { return t.cache.Len() }
