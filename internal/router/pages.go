package router

import (
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// PageMatch is the result of a Pages Router resolution.
type PageMatch struct {
	File   string
	Params Params
}

// ResolvePageFile implements spec.md §4.1 `resolvePageFile`: try
// pagesDir+"/a/b.{ext}"`, then `pagesDir+"/a/b/index.{ext}"`, falling
// back to a directory scan for dynamic/catch-all segments when no
// static file matches. "/" maps to pagesDir+"/index.{ext}".
func ResolvePageFile(v vfs.VFS, pagesDir, urlPath string) *PageMatch {
	return resolveRoutedFile(v, pagesDir, urlPath)
}

// ResolveApiFile is the same algorithm rooted at pagesDir+"/api".
func ResolveApiFile(v vfs.VFS, pagesDir, urlPath string) *PageMatch {
	return resolveRoutedFile(v, vfs.Join(pagesDir, "api"), urlPath)
}

func resolveRoutedFile(v vfs.VFS, rootDir, urlPath string) *PageMatch {
	segs := vfs.Segments(urlPath)

	// Fast path: fully static file or directory/index, including "/".
	base := vfs.Join(rootDir, strings.Join(segs, "/"))
	if file, ok := hasAnyExt(v, base); ok {
		return &PageMatch{File: file, Params: Params{}}
	}
	if file, ok := hasAnyExt(v, vfs.Join(base, "index")); ok {
		return &PageMatch{File: file, Params: Params{}}
	}

	// Walk the directory tree segment by segment, falling back to
	// dynamic/catch-all directories at the first segment that has no
	// static match, matching the App Router's per-segment specificity
	// order so behavior stays consistent across both routers.
	return matchDynamic(v, rootDir, segs)
}

func matchDynamic(v vfs.VFS, rootDir string, segs []string) *PageMatch {
	params := Params{}
	dir := rootDir
	i := 0

	for i < len(segs) {
		entries, err := v.ReadDirSync(dir)
		if err != nil {
			return nil
		}

		want := segs[i]
		var staticHit, dynamicHit, optionalCatchAllHit, catchAllHit string

		for _, e := range entries {
			if !e.IsDirectory() {
				continue
			}
			seg := ParseSegment(e.Name())
			switch seg.Kind {
			case KindStatic:
				if seg.Raw == want {
					staticHit = seg.Raw
				}
			case KindDynamic:
				dynamicHit = seg.Raw
			case KindOptionalCatchAll:
				optionalCatchAllHit = seg.Raw
			case KindCatchAll:
				catchAllHit = seg.Raw
			}
		}

		switch {
		case staticHit != "":
			dir = vfs.Join(dir, staticHit)
			i++
		case dynamicHit != "":
			seg := ParseSegment(dynamicHit)
			params[seg.Param] = decodeSegment(want)
			dir = vfs.Join(dir, dynamicHit)
			i++
		case optionalCatchAllHit != "":
			seg := ParseSegment(optionalCatchAllHit)
			rest := make([]string, len(segs)-i)
			for j, s := range segs[i:] {
				rest[j] = decodeSegment(s)
			}
			params[seg.Param] = rest
			dir = vfs.Join(dir, optionalCatchAllHit)
			i = len(segs)
		case catchAllHit != "":
			seg := ParseSegment(catchAllHit)
			rest := make([]string, len(segs)-i)
			for j, s := range segs[i:] {
				rest[j] = decodeSegment(s)
			}
			params[seg.Param] = rest
			dir = vfs.Join(dir, catchAllHit)
			i = len(segs)
		default:
			return nil
		}
	}

	if file, ok := hasAnyExt(v, dir); ok {
		return &PageMatch{File: file, Params: params}
	}
	if file, ok := hasAnyExt(v, vfs.Join(dir, "index")); ok {
		return &PageMatch{File: file, Params: params}
	}
	return nil
}
