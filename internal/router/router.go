// Package router resolves file-based routes for both the Pages Router
// and the App Router against a vfs.VFS snapshot (spec.md §4.1).
package router

import (
	"net/url"
	"sort"
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// Extensions is the fixed probe order used everywhere a source-file
// extension is guessed, satisfying the "file-extension priority
// .tsx > .jsx > .ts > .js holds everywhere" invariant (spec.md §8).
var Extensions = []string{".tsx", ".jsx", ".ts", ".js"}

// Params binds dynamic-segment values; catch-all segments bind a
// []string under the same map via the List variant.
type Params = map[string]any

func hasAnyExt(v vfs.VFS, base string) (string, bool) {
	for _, ext := range Extensions {
		p := base + ext
		if v.Exists(p) {
			if fi, err := v.Stat(p); err == nil && fi.IsFile() {
				return p, true
			}
		}
	}
	return "", false
}

// ResolveFileWithExtension probes a bare path (no extension) against
// the fixed extension list (spec.md §4.1 `resolveFileWithExtension`).
// It only tries basePath+ext; basePath/index.{ext} is not probed.
func ResolveFileWithExtension(v vfs.VFS, basePath string) (string, bool) {
	return hasAnyExt(v, basePath)
}

// decodeSegment percent-decodes a single raw URL path segment. Params
// bound from dynamic/catch-all segments are always decoded (spec.md
// §4.2 "Params").
func decodeSegment(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// sortedKeys returns the keys of a Params map in ascending order, for
// deterministic iteration.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
