package router

import (
	"sort"
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// Route is the resolved App Router match (spec.md §3 "Route (App
// Router)").
type Route struct {
	Page     string
	Layouts  []string // outermost first
	Params   Params
	Loading  string
	Error    string
	NotFound string
}

const (
	uiLoading  = "loading"
	uiError    = "error"
	uiNotFound = "not-found"
)

// nearestConvention finds the nearest enclosing loading/error/not-found
// file by scanning from the terminal directory up the chain, matching
// spec.md's "attached from the nearest enclosing directory".
func nearestConvention(v vfs.VFS, chain []string, stem string) string {
	for i := len(chain) - 1; i >= 0; i-- {
		if file, ok := hasAnyExt(v, vfs.Join(chain[i], stem)); ok {
			return file
		}
	}
	return ""
}

// HasAppRouter implements spec.md §4.1 `hasAppRouter`: true iff
// appDir/page.{ext} exists, or any page.{ext} exists anywhere beneath
// appDir.
func HasAppRouter(v vfs.VFS, appDir string) bool {
	if _, ok := hasAnyExt(v, vfs.Join(appDir, "page")); ok {
		return true
	}
	return anyPageUnder(v, appDir)
}

func anyPageUnder(v vfs.VFS, dir string) bool {
	entries, err := v.ReadDirSync(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDirectory() {
			continue
		}
		if IsPrivate(e.Name()) {
			continue
		}
		sub := vfs.Join(dir, e.Name())
		if _, ok := hasAnyExt(v, vfs.Join(sub, "page")); ok {
			return true
		}
		if anyPageUnder(v, sub) {
			return true
		}
	}
	return false
}

// ResolveAppRoute implements spec.md §4.1 `resolveAppRoute`.
func ResolveAppRoute(v vfs.VFS, appDir, urlPath string) *Route {
	segs := vfs.Segments(urlPath)
	chain := []string{appDir}
	terminalDir, params, ok := walkAppTree(v, appDir, segs, 0, &chain, "page")
	if !ok {
		return nil
	}
	return buildRoute(v, terminalDir, chain, params)
}

// ResolveAppRouteHandler is the identical traversal with "route" as
// the terminal filename (spec.md §4.1 `resolveAppRouteHandler`).
func ResolveAppRouteHandler(v vfs.VFS, appDir, urlPath string) (file string, params Params, ok bool) {
	segs := vfs.Segments(urlPath)
	chain := []string{appDir}
	terminalDir, p, found := walkAppTree(v, appDir, segs, 0, &chain, "route")
	if !found {
		return "", nil, false
	}
	file, hit := hasAnyExt(v, vfs.Join(terminalDir, "route"))
	if !hit {
		return "", nil, false
	}
	return file, p, true
}

func buildRoute(v vfs.VFS, terminalDir string, chain []string, params Params) *Route {
	page, _ := hasAnyExt(v, vfs.Join(terminalDir, "page"))

	var layouts []string
	for _, dir := range chain {
		if file, ok := hasAnyExt(v, vfs.Join(dir, "layout")); ok {
			layouts = append(layouts, file)
		}
	}

	return &Route{
		Page:     page,
		Layouts:  layouts,
		Params:   params,
		Loading:  nearestConvention(v, chain, uiLoading),
		Error:    nearestConvention(v, chain, uiError),
		NotFound: nearestConvention(v, chain, uiNotFound),
	}
}

// walkAppTree performs the segment-tree traversal described in
// spec.md §4.1, trying the exact static match, then route groups
// (transparent), then dynamic, optional catch-all, and catch-all
// candidates in that order, backtracking on failure. terminalFilename is "page" or
// "route".
func walkAppTree(v vfs.VFS, dir string, segs []string, idx int, chain *[]string, terminalFilename string) (string, Params, bool) {
	entries, err := v.ReadDirSync(dir)
	if err != nil {
		return "", nil, false
	}

	var groups []string
	var staticMatch string
	var dynamicDirs []string
	var optionalCatchAllDirs []string
	var catchAllDirs []string

	var want string
	hasWant := idx < len(segs)
	if hasWant {
		want = segs[idx]
	}

	if !hasWant {
		if _, ok := hasAnyExt(v, vfs.Join(dir, terminalFilename)); ok {
			return dir, Params{}, true
		}
	}

	for _, e := range entries {
		if !e.IsDirectory() || IsPrivate(e.Name()) {
			continue
		}
		seg := ParseSegment(e.Name())
		switch seg.Kind {
		case KindGroup:
			groups = append(groups, e.Name())
		case KindStatic:
			if hasWant && seg.Raw == want {
				staticMatch = e.Name()
			}
		case KindDynamic:
			dynamicDirs = append(dynamicDirs, e.Name())
		case KindOptionalCatchAll:
			optionalCatchAllDirs = append(optionalCatchAllDirs, e.Name())
		case KindCatchAll:
			catchAllDirs = append(catchAllDirs, e.Name())
		}
	}
	sort.Strings(groups)
	sort.Strings(dynamicDirs)
	sort.Strings(optionalCatchAllDirs)
	sort.Strings(catchAllDirs)

	tryTerminal := func(candidateDir string, newIdx int, extraParams Params) (string, Params, bool) {
		if newIdx == len(segs) {
			if _, ok := hasAnyExt(v, vfs.Join(candidateDir, terminalFilename)); ok {
				return candidateDir, extraParams, true
			}
		}
		return "", nil, false
	}

	// 1. Exact static match.
	if staticMatch != "" {
		sub := vfs.Join(dir, staticMatch)
		*chain = append(*chain, sub)
		if d, p, ok := tryTerminal(sub, idx+1, cloneParams(nil)); ok {
			return d, p, true
		}
		if d, p, ok := walkAppTree(v, sub, segs, idx+1, chain, terminalFilename); ok {
			return d, p, true
		}
		*chain = (*chain)[:len(*chain)-1]
	}

	// Groups: transparent, tried at every position regardless of
	// whether a URL segment remains.
	for _, g := range groups {
		sub := vfs.Join(dir, g)
		*chain = append(*chain, sub)
		if d, p, ok := tryTerminal(sub, idx, cloneParams(nil)); ok {
			return d, p, true
		}
		if d, p, ok := walkAppTree(v, sub, segs, idx, chain, terminalFilename); ok {
			return d, p, true
		}
		*chain = (*chain)[:len(*chain)-1]
	}

	// 2. Single dynamic.
	if hasWant {
		for _, dd := range dynamicDirs {
			seg := ParseSegment(dd)
			sub := vfs.Join(dir, dd)
			*chain = append(*chain, sub)
			params := Params{seg.Param: decodeSegment(want)}
			if d, p, ok := tryTerminal(sub, idx+1, params); ok {
				return d, p, true
			}
			if d, p, ok := walkAppTree(v, sub, segs, idx+1, chain, terminalFilename); ok {
				return d, mergeParams(params, p), true
			}
			*chain = (*chain)[:len(*chain)-1]
		}
	}

	// 3. Optional catch-all (zero or more; terminal).
	for _, od := range optionalCatchAllDirs {
		seg := ParseSegment(od)
		sub := vfs.Join(dir, od)
		rest := decodeAll(segs[idx:])
		if _, ok := hasAnyExt(v, vfs.Join(sub, terminalFilename)); ok {
			*chain = append(*chain, sub)
			return sub, Params{seg.Param: rest}, true
		}
	}

	// 4. Catch-all (one or more; terminal).
	if hasWant {
		for _, cd := range catchAllDirs {
			seg := ParseSegment(cd)
			sub := vfs.Join(dir, cd)
			rest := decodeAll(segs[idx:])
			if _, ok := hasAnyExt(v, vfs.Join(sub, terminalFilename)); ok {
				*chain = append(*chain, sub)
				return sub, Params{seg.Param: rest}, true
			}
		}
	}

	return "", nil, false
}

func decodeAll(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = decodeSegment(s)
	}
	return out
}

func cloneParams(p Params) Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func mergeParams(a, b Params) Params {
	out := cloneParams(a)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// NormalizeURLPath strips a trailing slash (except for "/" itself),
// matching the matcher's normalization before segmenting.
func NormalizeURLPath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return strings.TrimRight(p, "/")
	}
	return p
}
