package transform

import (
	"fmt"
	"regexp"
	"strings"
)

// Alias is one `tsconfig.json compilerOptions.paths` entry, with the
// trailing "*" already stripped from both sides (spec.md §4.3 step 4).
type Alias struct {
	Prefix string
	Target string
}

// ParseTSConfigPaths reads `compilerOptions.paths` from a parsed
// tsconfig.json-shaped map and returns the first target per key, with
// trailing "*" stripped, as spec.md §6.4 requires.
func ParseTSConfigPaths(paths map[string][]string) []Alias {
	var aliases []Alias
	for prefix, targets := range paths {
		if len(targets) == 0 {
			continue
		}
		aliases = append(aliases, Alias{
			Prefix: strings.TrimSuffix(prefix, "*"),
			Target: strings.TrimSuffix(targets[0], "*"),
		})
	}
	return aliases
}

// rewriteAliases rewrites `from "<prefix>sub"` and `import("<prefix>sub")`
// to `from "/__virtual__/<port><target>sub"` for each alias, in both
// quote styles (spec.md §4.3 step 4). When forHandler is true (CJS API
// handler pipeline) no virtual-port prefix is applied, since require()
// resolves through the VFS directly.
func rewriteAliases(code string, aliases []Alias, port int, forHandler bool) string {
	for _, a := range aliases {
		if a.Prefix == "" {
			continue
		}
		code = rewriteAliasOne(code, a, port, forHandler)
	}
	return code
}

func resolvedTarget(a Alias, rest string, port int, forHandler bool) string {
	target := a.Target + rest
	if forHandler {
		return target
	}
	return fmt.Sprintf("/__virtual__/%d%s", port, target)
}

func rewriteAliasOne(code string, a Alias, port int, forHandler bool) string {
	prefixPattern := regexp.QuoteMeta(a.Prefix)

	fromRe := regexp.MustCompile(`from(\s+)(['"])` + prefixPattern + `([^'"]*)(['"])`)
	code = fromRe.ReplaceAllStringFunc(code, func(m string) string {
		sub := fromRe.FindStringSubmatch(m)
		ws, quote, rest := sub[1], sub[2], sub[3]
		return "from" + ws + quote + resolvedTarget(a, rest, port, forHandler) + quote
	})

	importRe := regexp.MustCompile(`import\((\s*)(['"])` + prefixPattern + `([^'"]*)(['"])(\s*)\)`)
	code = importRe.ReplaceAllStringFunc(code, func(m string) string {
		sub := importRe.FindStringSubmatch(m)
		wsPre, quote, rest, wsPost := sub[1], sub[2], sub[3], sub[5]
		return "import(" + wsPre + quote + resolvedTarget(a, rest, port, forHandler) + quote + wsPost + ")"
	})

	return code
}
