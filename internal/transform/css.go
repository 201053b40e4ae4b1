package transform

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/almostnode/core/internal/vfs"
	"github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
)

// cssImportRe matches both `import x from '...css'` and bare
// `import '...css'` forms, single- or double-quoted.
var cssImportRe = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:[\w${}*\s,]+from\s+)?['"]([^'"]+\.css)['"];?[ \t]*$`)

// stripCSSImports removes CSS import lines from source, replacing
// `.module.css` imports with an injected CSS-Modules object module per
// spec.md §4.3 step 3. The CSS-module default export binds to the
// identifier originally imported, so later references keep working.
func stripCSSImports(v vfs.VFS, sourceDir, code string) string {
	var injected []string

	code = cssImportRe.ReplaceAllStringFunc(code, func(match string) string {
		sub := cssImportRe.FindStringSubmatch(match)
		cssPath := sub[1]

		if !strings.HasSuffix(cssPath, ".module.css") {
			return ""
		}

		styles := extractCSSModuleClasses(v, resolveCSSPath(sourceDir, cssPath))
		varName := cssModuleVarName(match)
		injected = append(injected, fmt.Sprintf("const %s = %s;", varName, styles))
		return ""
	})

	if len(injected) > 0 {
		code = strings.Join(injected, "\n") + "\n" + code
	}
	return code
}

// cssModuleVarName extracts the bound identifier from an import
// statement so the injected object keeps the same name the rest of
// the module already refers to (e.g. `import styles from './a.module.css'`).
func cssModuleVarName(importLine string) string {
	m := regexp.MustCompile(`import\s+(\w+)\s+from`).FindStringSubmatch(importLine)
	if len(m) == 2 {
		return m[1]
	}
	return "styles"
}

func resolveCSSPath(sourceDir, cssPath string) string {
	if strings.HasPrefix(cssPath, "/") {
		return cssPath
	}
	return vfs.Join(sourceDir, cssPath)
}

// classSelectorRe is the plain selector scan spec.md §4.3/§9 calls
// for ("not a full CSS parser"): extract `.className` selectors.
var classSelectorRe = regexp.MustCompile(`\.([A-Za-z_][\w-]*)`)

// extractCSSModuleClasses reads the referenced CSS file and returns a
// JS object-literal string mapping each class name to itself. Failure
// to read or lex the file yields an empty object, never an error
// (spec.md §9 "CSS-module extraction").
func extractCSSModuleClasses(v vfs.VFS, path string) string {
	src, err := v.ReadFileSync(path)
	if err != nil {
		return "{}"
	}

	classes := scanClassSelectors(src)
	if len(classes) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{ ")
	for i, c := range classes {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %q", c, c)
	}
	b.WriteString(" }")
	return b.String()
}

// scanClassSelectors runs the stylesheet through tdewolff/parse's CSS
// lexer purely to confirm it's well-formed enough to tokenize (a
// lexer error other than end of input bails out to an empty result),
// then extracts class selectors with a plain regex scan per spec.md §9
// ("not a full CSS parser").
func scanClassSelectors(src []byte) []string {
	lexer := tcss.NewLexer(parse.NewInputBytes(src))
	for {
		tt, _ := lexer.Next()
		if tt == tcss.ErrorToken {
			break
		}
	}
	if err := lexer.Err(); err != nil && err != io.EOF {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range classSelectorRe.FindAllStringSubmatch(string(src), -1) {
		name := m[1]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
