package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/almostnode/core/internal/apiexec"
	"github.com/almostnode/core/internal/errs"
	"github.com/almostnode/core/internal/htmlgen"
	"github.com/almostnode/core/internal/router"
	"github.com/almostnode/core/internal/shims"
	"github.com/almostnode/core/internal/vfs"
)

// ResponseData is the buffered response shape returned to the
// Service-Worker bridge (spec.md §3 "ResponseData").
type ResponseData = apiexec.ResponseData

// HandleRequest dispatches a single request through the fixed
// 16-step order from spec.md §4.7.
func (s *Server) HandleRequest(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) ResponseData {
	pathname, query := splitPathQuery(rawURL)

	pathname = s.stripVirtualPrefix(pathname)
	pathname = s.stripAssetPrefix(pathname)
	pathname = s.stripBasePath(pathname)
	pathname = router.NormalizeURLPath(pathname)

	if !strings.HasPrefix(pathname, "/_next/") && !strings.HasPrefix(pathname, "/_npm/") {
		if resp, handled := s.runRootMiddleware(ctx, method, pathname, headers, body); handled {
			return resp
		}
	}

	if strings.HasPrefix(pathname, "/_next/shims/") {
		return s.serveShim(pathname)
	}

	if pathname == "/robots.txt" {
		if resp, ok := s.serveWellKnownRoute("robots", "text/plain; charset=utf-8", method, pathname, headers, body); ok {
			return resp
		}
	}

	if pathname == "/sitemap.xml" {
		if resp, ok := s.serveWellKnownRoute("sitemap", "application/xml; charset=utf-8", method, pathname, headers, body); ok {
			return resp
		}
	}

	if pathname == "/_next/route-info" {
		return s.serveRouteInfo(query["pathname"])
	}

	if strings.HasPrefix(pathname, "/_next/pages/") {
		route := strings.TrimSuffix(strings.TrimPrefix(pathname, "/_next/pages"), ".js")
		return s.servePagesModule(route)
	}

	if strings.HasPrefix(pathname, "/_next/app/") {
		return s.serveAppModule(strings.TrimPrefix(pathname, "/_next/app"))
	}

	if strings.HasPrefix(pathname, "/_next/static/") {
		return s.serveStatic(strings.TrimPrefix(pathname, "/_next/static"))
	}

	if strings.HasPrefix(pathname, "/_npm/") {
		return s.serveNpmBundle(strings.TrimPrefix(pathname, "/_npm/"))
	}

	if s.usesAppRouter() {
		if file, params, ok := router.ResolveAppRouteHandler(s.vfs, s.opts.AppDir, pathname); ok {
			return s.serveAppRouteHandler(ctx, file, params, method, pathname, headers, body)
		}
	}

	if strings.HasPrefix(pathname, "/api/") {
		return s.servePagesAPIHandler(pathname, method, headers, body, query)
	}

	if publicFile := vfs.Join(s.opts.PublicDir, pathname); s.vfs.Exists(publicFile) {
		if fi, err := s.vfs.Stat(publicFile); err == nil && fi.IsFile() {
			return s.serveStaticFile(publicFile)
		}
	}

	if looksLikeSourceFile(pathname) && s.vfs.Exists(pathname) {
		return s.serveTransformed(pathname)
	}

	if file, ok := router.ResolveFileWithExtension(s.vfs, pathname); ok {
		return s.serveTransformed(file)
	}

	if s.vfs.Exists(pathname) {
		if fi, err := s.vfs.Stat(pathname); err == nil && fi.IsFile() {
			return s.serveStaticFile(pathname)
		}
	}

	return s.servePageHTML(pathname)
}

// splitPathQuery separates the pathname from the query string,
// percent-decoding query values via net/url the same way
// apiexec.NewRequestContext does, so a query parameter stays decoded
// consistently whichever code path reads it.
func splitPathQuery(rawURL string) (string, map[string]string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, map[string]string{}
	}
	query := map[string]string{}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	return u.Path, query
}

// stripVirtualPrefix removes "/__virtual__/<port>" (spec.md §4.7 step
// 1).
func (s *Server) stripVirtualPrefix(pathname string) string {
	prefix := fmt.Sprintf("/__virtual__/%d", s.opts.Port)
	return strings.TrimPrefix(pathname, prefix)
}

// stripAssetPrefix removes the configured assetPrefix, collapsing a
// double slash when the prefix itself ends in "/" (spec.md §4.7 step
// 2).
func (s *Server) stripAssetPrefix(pathname string) string {
	if s.opts.AssetPrefix == "" {
		return pathname
	}
	trimmed := strings.TrimPrefix(pathname, s.opts.AssetPrefix)
	if trimmed == pathname {
		return pathname
	}
	return "/" + strings.TrimPrefix(trimmed, "/")
}

func (s *Server) stripBasePath(pathname string) string {
	if s.opts.BasePath == "" {
		return pathname
	}
	if trimmed := strings.TrimPrefix(pathname, s.opts.BasePath); trimmed != pathname {
		if trimmed == "" {
			return "/"
		}
		return trimmed
	}
	return pathname
}

func looksLikeSourceFile(pathname string) bool {
	for _, ext := range []string{".jsx", ".tsx", ".ts", ".js"} {
		if strings.HasSuffix(pathname, ext) {
			return true
		}
	}
	return false
}

func (s *Server) usesAppRouter() bool {
	if s.opts.PreferAppRouter != nil {
		return *s.opts.PreferAppRouter
	}
	return router.HasAppRouter(s.vfs, s.opts.AppDir)
}

func jsonResponse(status int, v any) ResponseData {
	body, _ := json.Marshal(v)
	return ResponseData{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       body,
	}
}

func textResponse(status int, body string) ResponseData {
	return ResponseData{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       []byte(body),
	}
}

func htmlResponse(status int, body string) ResponseData {
	return ResponseData{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
		Body:       []byte(body),
	}
}

func jsResponse(status int, body string, extraHeaders map[string]string) ResponseData {
	headers := map[string]string{"Content-Type": "application/javascript; charset=utf-8"}
	for k, v := range extraHeaders {
		headers[k] = v
	}
	return ResponseData{StatusCode: status, Headers: headers, Body: []byte(body)}
}

func (s *Server) serveShim(pathname string) ResponseData {
	name := strings.TrimPrefix(pathname, "/_next/shims/")
	src, ok := shims.Source(name)
	if !ok {
		return jsonResponse(404, map[string]string{"error": "unknown shim"})
	}
	return jsResponse(200, src, map[string]string{"Cache-Control": "no-cache"})
}

// routeInfo is the JSON shape spec.md §4.7 step 5 / §6.3 describes.
type routeInfo struct {
	Found   bool     `json:"found"`
	Params  any      `json:"params"`
	Page    string   `json:"page"`
	Layouts []string `json:"layouts"`
}

func (s *Server) serveRouteInfo(pathname string) ResponseData {
	pathname = router.NormalizeURLPath(pathname)

	if s.usesAppRouter() {
		if route := router.ResolveAppRoute(s.vfs, s.opts.AppDir, pathname); route != nil {
			return jsonResponse(200, routeInfo{Found: true, Params: route.Params, Page: route.Page, Layouts: route.Layouts})
		}
		return jsonResponse(200, routeInfo{Found: false})
	}

	if match := router.ResolvePageFile(s.vfs, s.opts.PagesDir, pathname); match != nil {
		return jsonResponse(200, routeInfo{Found: true, Params: match.Params, Page: match.File, Layouts: nil})
	}
	return jsonResponse(200, routeInfo{Found: false})
}

// runRootMiddleware invokes root middleware.ts, if present, before every
// other dispatch step except the /_next/* and /_npm/* paths, which
// never reach it (spec.md SPEC_FULL.md §C "Middleware stub"). Its
// only supported actions are an early-return redirect or an internal
// rewrite; anything else (including "no middleware file") means
// dispatch continues unmodified.
func (s *Server) runRootMiddleware(ctx context.Context, method, pathname string, headers map[string]string, body []byte) (ResponseData, bool) {
	file, ok := router.ResolveFileWithExtension(s.vfs, vfs.Join(s.opts.Root, "middleware"))
	if !ok {
		return ResponseData{}, false
	}

	req := apiexec.NewRequestContext(method, pathname, headers, body)
	result, err := s.apiExecutor.RunMiddleware(file, req)
	if err != nil {
		s.log.Error("middleware failed", "path", file, "error", err)
		return ResponseData{}, false
	}
	if result == nil {
		return ResponseData{}, false
	}
	if result.Redirect != "" {
		return ResponseData{StatusCode: 307, Headers: map[string]string{"Location": result.Redirect}}, true
	}
	if result.Rewrite != "" {
		return s.HandleRequest(ctx, method, result.Rewrite, headers, body), true
	}
	return ResponseData{}, false
}

// serveWellKnownRoute executes app/<stem>.{ext} through the same
// default-export handler path as a Pages API route (spec.md
// SPEC_FULL.md §C "robots.txt / sitemap.xml file conventions").
func (s *Server) serveWellKnownRoute(stem, contentType, method, pathname string, headers map[string]string, body []byte) (ResponseData, bool) {
	file, ok := router.ResolveFileWithExtension(s.vfs, vfs.Join(s.opts.AppDir, stem))
	if !ok {
		return ResponseData{}, false
	}

	req := apiexec.NewRequestContext(method, pathname, headers, body)
	result := s.apiExecutor.RunPagesAPIHandler(file, req)
	resp := s.handlerOutcome(file, result)
	if resp.StatusCode == 200 {
		if resp.Headers == nil {
			resp.Headers = map[string]string{}
		}
		resp.Headers["Content-Type"] = contentType
	}
	return resp, true
}

func (s *Server) servePagesModule(pathname string) ResponseData {
	match := router.ResolvePageFile(s.vfs, s.opts.PagesDir, pathname)
	if match == nil {
		return jsonResponse(404, map[string]string{"error": "page not found"})
	}
	return s.serveTransformed(match.File)
}

func (s *Server) serveAppModule(vfsPath string) ResponseData {
	if !s.vfs.Exists(vfsPath) {
		return jsonResponse(404, map[string]string{"error": "module not found"})
	}
	return s.serveTransformed(vfsPath)
}

func (s *Server) serveStatic(rest string) ResponseData {
	return s.serveStaticFile(rest)
}

func (s *Server) serveStaticFile(path string) ResponseData {
	data, err := s.vfs.ReadFileSync(path)
	if err != nil {
		if vfs.IsNotExist(err) {
			return jsonResponse(404, map[string]string{"error": "not found"})
		}
		return textResponse(500, err.Error())
	}
	return ResponseData{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": contentTypeForPath(path)},
		Body:       data,
	}
}

func (s *Server) serveNpmBundle(specifier string) ResponseData {
	result, err := s.bundler.Bundle(specifier)
	if err != nil {
		bundleErr := &errs.BundleError{Specifier: specifier, Err: err}
		s.log.Error("npm bundle failed", "specifier", specifier, "error", err)
		return textResponse(500, bundleErr.Error())
	}
	return ResponseData{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type":  "application/javascript; charset=utf-8",
			"Cache-Control": result.CacheControl,
		},
		Body: []byte(result.Code),
	}
}

// serveTransformed runs the ESM pipeline; transform errors are never
// fatal to page requests (spec.md §7): they come back as a runnable
// 200 body instead of an error status.
func (s *Server) serveTransformed(path string) ResponseData {
	result, err := s.transformer.Transform(path)
	if err != nil {
		s.log.Warn("transform failed", "path", path, "error", err)
		body := fmt.Sprintf("console.error(%q); /* Transform Error */", err.Error())
		return jsResponse(200, body, map[string]string{"X-Transform-Error": "true"})
	}
	headers := map[string]string{"X-Transformed": "true"}
	if result.Cached {
		headers["X-Cache"] = "hit"
	}
	return jsResponse(200, result.Code, headers)
}

func (s *Server) servePagesAPIHandler(pathname, method string, headers map[string]string, body []byte, query map[string]string) ResponseData {
	match := router.ResolveApiFile(s.vfs, s.opts.PagesDir, strings.TrimPrefix(pathname, "/api"))
	if match == nil {
		return jsonResponse(404, map[string]string{"error": "API route not found"})
	}

	req := apiexec.NewRequestContext(method, pathname, headers, body)
	for k, v := range query {
		req.Query[k] = v
	}

	result := s.apiExecutor.RunPagesAPIHandler(match.File, req)
	return s.handlerOutcome(match.File, result)
}

func (s *Server) serveAppRouteHandler(ctx context.Context, file string, params router.Params, method, pathname string, headers map[string]string, body []byte) ResponseData {
	req := apiexec.NewRequestContext(method, pathname, headers, body)
	result := s.apiExecutor.RunAppRouteHandler(ctx, file, req)
	return s.handlerOutcome(file, result)
}

func (s *Server) handlerOutcome(path string, result apiexec.HandlerResult) ResponseData {
	if result.Err == nil {
		return result.Response
	}
	switch result.Err.(type) {
	case *errs.HandlerTimeout:
		s.log.Warn("handler timed out", "path", path)
		return jsonResponse(500, map[string]string{"error": "API handler timeout"})
	case *errs.MethodNotAllowed:
		return jsonResponse(405, map[string]string{"error": "method not allowed"})
	case *errs.NotFoundSentinel:
		if nf := s.notFoundFallback(); nf != "" {
			return htmlResponse(404, htmlgen.Generate(s.vfs, htmlgen.Options{
				Port:                s.opts.Port,
				Env:                 s.env,
				BasePath:            s.opts.BasePath,
				AdditionalImportMap: s.opts.AdditionalImportMap,
				CORSProxyURL:        s.opts.CORSProxy,
				AppRoute:            &router.Route{Page: nf, Params: router.Params{}},
			}))
		}
		return jsonResponse(404, map[string]string{"error": "not found"})
	default:
		s.log.Error("handler failed", "path", path, "error", result.Err)
		return jsonResponse(500, map[string]string{"error": result.Err.Error()})
	}
}

func (s *Server) servePageHTML(pathname string) ResponseData {
	opts := htmlgen.Options{
		Port:                s.opts.Port,
		Pathname:            pathname,
		Env:                 s.env,
		BasePath:            s.opts.BasePath,
		AdditionalImportMap: s.opts.AdditionalImportMap,
		CORSProxyURL:        s.opts.CORSProxy,
	}

	status := 200
	if s.usesAppRouter() {
		route := router.ResolveAppRoute(s.vfs, s.opts.AppDir, pathname)
		if route == nil {
			if nf := s.notFoundFallback(); nf != "" {
				opts.AppRoute = &router.Route{Page: nf, Params: router.Params{}}
			} else {
				status = 404
			}
		} else {
			opts.AppRoute = route
		}
	} else {
		match := router.ResolvePageFile(s.vfs, s.opts.PagesDir, pathname)
		if match == nil {
			if nf := s.notFoundFallback(); nf != "" {
				opts.AppRoute = &router.Route{Page: nf, Params: router.Params{}}
			} else {
				status = 404
			}
		} else {
			opts.PageFile = match.File
			opts.PageFound = true
		}
	}

	return htmlResponse(status, htmlgen.Generate(s.vfs, opts))
}

// notFoundFallback looks for a not-found.{ext} under appDir or a
// /404.{ext} Pages Router convention (spec.md §4.2 "A 404 page is
// returned when no route matches and no not-found convention exists").
func (s *Server) notFoundFallback() string {
	if file, ok := router.ResolveFileWithExtension(s.vfs, vfs.Join(s.opts.AppDir, "not-found")); ok {
		return file
	}
	if file, ok := router.ResolveFileWithExtension(s.vfs, vfs.Join(s.opts.PagesDir, "404")); ok {
		return file
	}
	return ""
}

func contentTypeForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".json"):
		return "application/json; charset=utf-8"
	case strings.HasSuffix(path, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".mjs"):
		return "application/javascript; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
