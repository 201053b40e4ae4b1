package transform

import (
	"regexp"
	"strings"
)

var (
	exportDefaultRe = regexp.MustCompile(`export\s+default\s+`)
	exportNamedRe   = regexp.MustCompile(`export\s*\{([^}]*)\}\s*;?`)
	importDefaultRe = regexp.MustCompile(`import\s+(\w+)\s+from\s+(['"][^'"]+['"]);?`)
)

// TransformEsmToCjsSimple is the regex-based ESM->CJS safety net from
// spec.md §4.3/§9: TransformForHandler uses it when the esbuild
// transform of a handler returns errors. It is
// deliberately naive — it will mis-transform code using the strings
// "import"/"export" inside template literals (spec.md §9 open question
// (b)) — callers should prefer routing through esbuild whenever
// possible.
func TransformEsmToCjsSimple(code string) string {
	code = exportDefaultRe.ReplaceAllString(code, "module.exports = ")

	code = exportNamedRe.ReplaceAllStringFunc(code, func(m string) string {
		sub := exportNamedRe.FindStringSubmatch(m)
		names := sub[1]
		var out string
		for _, part := range splitNames(names) {
			out += "module.exports." + part + " = " + part + ";\n"
		}
		return out
	})

	code = importDefaultRe.ReplaceAllString(code, `const $1 = require($2).default ?? require($2);`)

	return code
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
