package resolve

import "encoding/json"

// resolveExportsField implements "standard exports-field matching"
// (spec.md §4.5) for a package's `exports` map against a subpath
// ("." for the package root, "./foo" for a named export). It tries
// primary then fallback condition keys, matching the order the CJS
// loader and npm bundler each pass in (require-then-import for CJS,
// import-then-require for the ESM bundler).
func resolveExportsField(raw json.RawMessage, subpath string, primary, fallback string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if subpath == "." {
			return asString, true
		}
		return "", false
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", false
	}

	// Flat subpath map: {".": "...", "./foo": "..."} vs condition map:
	// {"require": "...", "import": "..."}. Distinguish by whether any
	// key starts with "." or is exactly ".".
	looksLikeSubpathMap := false
	for k := range generic {
		if k == "." || (len(k) > 0 && k[0] == '.') {
			looksLikeSubpathMap = true
			break
		}
	}

	if looksLikeSubpathMap {
		entry, ok := generic[subpath]
		if !ok {
			return "", false
		}
		return resolveConditionValue(entry, primary, fallback)
	}

	if subpath != "." {
		return "", false
	}
	return resolveConditionValue(raw, primary, fallback)
}

// resolveConditionValue descends a condition-keyed export value
// (string | array | nested condition object) looking for primary,
// then fallback, then "default".
func resolveConditionValue(raw json.RawMessage, primary, fallback string) (string, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, true
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		for _, item := range asArray {
			if v, ok := resolveConditionValue(item, primary, fallback); ok {
				return v, true
			}
		}
		return "", false
	}

	var conditions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return "", false
	}
	for _, key := range []string{primary, fallback, "default"} {
		if v, ok := conditions[key]; ok {
			if resolved, ok := resolveConditionValue(v, primary, fallback); ok {
				return resolved, true
			}
		}
	}
	return "", false
}
