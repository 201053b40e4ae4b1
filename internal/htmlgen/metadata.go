package htmlgen

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// pageMetadata is the flat subset of the App Router `metadata` object
// (spec.md SPEC_FULL.md §C) the shell renders into <head>.
type pageMetadata struct {
	Title       string
	Description string
}

var (
	metadataBlockRe = regexp.MustCompile(`export\s+const\s+metadata\s*=\s*\{([^}]*)\}`)
	titleRe         = regexp.MustCompile(`title\s*:\s*['"]([^'"]*)['"]`)
	descriptionRe   = regexp.MustCompile(`description\s*:\s*['"]([^'"]*)['"]`)
)

// scanMetadata extracts `title`/`description` from a layout or page
// file's `export const metadata = {...}` object by regex scan, the
// same non-evaluating approach nextconfig uses for next.config.* — the
// file may contain arbitrary JS and no engine runs here.
func scanMetadata(v vfs.VFS, path string) pageMetadata {
	if path == "" {
		return pageMetadata{}
	}
	data, err := v.ReadFileSync(path)
	if err != nil {
		return pageMetadata{}
	}
	block := metadataBlockRe.FindStringSubmatch(string(data))
	if block == nil {
		return pageMetadata{}
	}
	var md pageMetadata
	if m := titleRe.FindStringSubmatch(block[1]); m != nil {
		md.Title = m[1]
	}
	if m := descriptionRe.FindStringSubmatch(block[1]); m != nil {
		md.Description = m[1]
	}
	return md
}

// mergeMetadata composes layout metadata outermost-first with the
// page's own metadata last, child overriding parent per field.
func mergeMetadata(v vfs.VFS, layouts []string, page string) pageMetadata {
	var merged pageMetadata
	for _, l := range layouts {
		applyMetadata(&merged, scanMetadata(v, l))
	}
	applyMetadata(&merged, scanMetadata(v, page))
	return merged
}

func applyMetadata(dst *pageMetadata, src pageMetadata) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
}

func metadataHeadTags(md pageMetadata) string {
	var b strings.Builder
	if md.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(md.Title))
	}
	if md.Description != "" {
		fmt.Fprintf(&b, "<meta name=\"description\" content=%q>\n", md.Description)
	}
	return b.String()
}
