package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// bareImportRe matches ESM import/export-from specifiers and dynamic
// imports whose specifier looks like a bare package name: starts with
// a letter or "@" and has no leading "./", "../", or "/".
var bareImportRe = regexp.MustCompile(`(from\s+|import\()(['"])([a-zA-Z@][^'"]*)(['"])(\)?)`)

// RedirectOptions carries the caller-supplied configuration consulted
// while rewriting bare npm specifiers (spec.md §4.3 step 6).
type RedirectOptions struct {
	VFS                      vfs.VFS
	AdditionalLocalPackages  map[string]bool
	Dependencies             map[string]string // package -> semver range, for CDN pinning
	EsmShDeps                string
}

// RedirectNpmImports rewrites bare npm specifiers per spec.md §4.3
// step 6: keep as-is when locally whitelisted, redirect to /_npm/<spec>
// when the package exists under VFS node_modules, else redirect to an
// esm.sh-style CDN URL pinned by the known dependency version.
//
// It is a fixed point after one pass (spec.md §8 "Idempotent
// redirects"): "/_npm/..." specifiers never match bareImportRe (no
// leading "/" in its character class), and "http(s)://..." specifiers
// are recognized and left untouched below even though they'd otherwise
// match the same "starts with a letter" shape as a bare package name.
func RedirectNpmImports(code string, opts RedirectOptions) string {
	return bareImportRe.ReplaceAllStringFunc(code, func(m string) string {
		sub := bareImportRe.FindStringSubmatch(m)
		kw, openQuote, spec, closeQuote, trailingParen := sub[1], sub[2], sub[3], sub[4], sub[5]

		if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
			return m
		}

		topLevel := topLevelPackageName(spec)

		if opts.AdditionalLocalPackages[spec] || opts.AdditionalLocalPackages[topLevel] {
			return m
		}

		if opts.VFS != nil && packageInstalled(opts.VFS, topLevel) {
			return kw + openQuote + "/_npm/" + spec + closeQuote + trailingParen
		}

		return kw + openQuote + cdnURL(spec, topLevel, opts) + closeQuote + trailingParen
	})
}

// topLevelPackageName returns the package root of a specifier,
// handling scoped packages ("@scope/name/sub" -> "@scope/name").
func topLevelPackageName(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func packageInstalled(v vfs.VFS, pkg string) bool {
	return v.Exists(vfs.Join("/node_modules", pkg, "package.json"))
}

func cdnURL(spec, topLevel string, opts RedirectOptions) string {
	url := "https://esm.sh/" + spec
	if version, ok := opts.Dependencies[topLevel]; ok && version != "" {
		if strings.Contains(spec, "@"+version) {
			// already pinned in the specifier itself
		} else {
			url = fmt.Sprintf("https://esm.sh/%s@%s", spec, version)
		}
	}
	if opts.EsmShDeps != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "deps=" + opts.EsmShDeps
	}
	return url
}
