package transform

import "regexp"

// exportedComponentRe finds top-level exported functions/consts whose
// name begins with an uppercase letter — the React convention for
// components — covering `export function Name`, `export default
// function Name`, and `export const Name =`.
var exportedComponentRe = regexp.MustCompile(
	`(?m)^export\s+(?:default\s+)?(?:function|const)\s+([A-Z]\w*)`,
)

// injectReactRefresh appends a `$RefreshReg$` call per exported
// component and an `import.meta.hot.accept()` footer, per spec.md
// §4.3 step 7. Only applied to .jsx/.tsx outputs by the caller.
func injectReactRefresh(code, filename string) string {
	matches := exportedComponentRe.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return code
	}

	var footer string
	for _, m := range matches {
		name := m[1]
		footer += "\n$RefreshReg$(" + name + ", " + quoteJS(filename+":"+name) + ");"
	}
	footer += "\nif (import.meta.hot) { import.meta.hot.accept(); }\n"

	return code + footer
}

func quoteJS(s string) string {
	out := []byte{'"'}
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, string(r)...)
	}
	out = append(out, '"')
	return string(out)
}
