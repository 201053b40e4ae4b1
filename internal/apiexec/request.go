// Package apiexec executes Pages API and App Router route handlers
// against mock request/response objects (spec.md §4.6).
package apiexec

import (
	"encoding/json"
	"net/url"
	"strings"
)

// RequestContext is the mock req passed to Pages API handlers.
type RequestContext struct {
	Method  string
	URL     string // pathname only
	Headers map[string]string
	Query   map[string]string
	Body    any // JSON-parsed if the raw body looked like JSON
	Cookies map[string]string
}

// NewRequestContext builds a RequestContext from raw wire values,
// JSON-decoding the body when the content-type (or a leading brace)
// indicates JSON, and parsing the query string and cookie header.
func NewRequestContext(method, rawURL string, headers map[string]string, rawBody []byte) RequestContext {
	u, err := url.Parse(rawURL)
	pathname := rawURL
	query := map[string]string{}
	if err == nil {
		pathname = u.Path
		for k, vs := range u.Query() {
			if len(vs) > 0 {
				query[k] = vs[0]
			}
		}
	}

	return RequestContext{
		Method:  strings.ToUpper(method),
		URL:     pathname,
		Headers: normalizeHeaders(headers),
		Query:   query,
		Body:    decodeBody(rawBody, headers),
		Cookies: parseCookies(headerValue(headers, "cookie")),
	}
}

func normalizeHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}

func headerValue(h map[string]string, key string) string {
	key = strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == key {
			return v
		}
	}
	return ""
}

func decodeBody(raw []byte, headers map[string]string) any {
	if len(raw) == 0 {
		return nil
	}
	ct := strings.ToLower(headerValue(headers, "content-type"))
	trimmed := strings.TrimSpace(string(raw))
	looksJSON := strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
	if strings.Contains(ct, "application/json") || (ct == "" && looksJSON) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func parseCookies(header string) map[string]string {
	out := map[string]string{}
	if header == "" {
		return out
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[percentDecode(strings.TrimSpace(kv[0]))] = percentDecode(strings.TrimSpace(kv[1]))
	}
	return out
}

// percentDecode unescapes a cookie key/value, falling back to the raw
// input on a malformed escape (the same leniency u.Query() already
// applies to query parameters above).
func percentDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
