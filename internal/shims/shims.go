// Package shims holds the virtual module sources served at
// /_next/shims/* (spec.md §6.3): browser-runnable stand-ins for the
// next/* package surface, since no real "next" package is installed in
// the VFS.
package shims

import "fmt"

// Names are the shim identifiers the import map and /_next/shims/*
// route both key off of.
const (
	Link         = "link"
	Router       = "router"
	Navigation   = "navigation"
	Head         = "head"
	Image        = "image"
	Dynamic      = "dynamic"
	Script       = "script"
	FontGoogle   = "font/google"
	FontLocal    = "font/local"
)

// All lists every known shim name, in import-map iteration order.
var All = []string{Link, Router, Navigation, Head, Image, Dynamic, Script, FontGoogle, FontLocal}

// Source returns the shim module's JS body, or ("", false) for an
// unknown name.
func Source(name string) (string, bool) {
	src, ok := sources[name]
	return src, ok
}

// ShimPath builds the /_next/shims/<name> request path.
func ShimPath(name string) string { return fmt.Sprintf("/_next/shims/%s", name) }

var sources = map[string]string{
	Link: linkSrc,

	Router: routerSrc,

	Navigation: navigationSrc,

	Head: headSrc,

	Image: imageSrc,

	Dynamic: dynamicSrc,

	Script: scriptSrc,

	FontGoogle: fontGoogleSrc,

	FontLocal: fontLocalSrc,
}

const linkSrc = `
import React from 'react';

export default function Link({ href, children, replace, prefetch, ...rest }) {
  const onClick = (e) => {
    if (rest.onClick) rest.onClick(e);
    if (e.defaultPrevented) return;
    if (e.metaKey || e.ctrlKey || e.shiftKey || e.altKey) return;
    e.preventDefault();
    if (replace) {
      window.history.replaceState({}, '', href);
    } else {
      window.history.pushState({}, '', href);
    }
    window.dispatchEvent(new PopStateEvent('popstate'));
  };
  return React.createElement('a', { ...rest, href, onClick }, children);
}
`

const routerSrc = `
export function useRouter() {
  return {
    push: (url) => { window.history.pushState({}, '', url); window.dispatchEvent(new PopStateEvent('popstate')); },
    replace: (url) => { window.history.replaceState({}, '', url); window.dispatchEvent(new PopStateEvent('popstate')); },
    back: () => window.history.back(),
    forward: () => window.history.forward(),
    reload: () => window.location.reload(),
    pathname: window.location.pathname,
    query: Object.fromEntries(new URLSearchParams(window.location.search)),
  };
}
export default { useRouter };
`

const navigationSrc = `
import React from 'react';

export function useRouter() {
  return {
    push: (url) => { window.history.pushState({}, '', url); window.dispatchEvent(new PopStateEvent('popstate')); },
    replace: (url) => { window.history.replaceState({}, '', url); window.dispatchEvent(new PopStateEvent('popstate')); },
    back: () => window.history.back(),
    forward: () => window.history.forward(),
    refresh: () => window.location.reload(),
  };
}

export function usePathname() {
  return window.location.pathname;
}

export function useSearchParams() {
  return new URLSearchParams(window.location.search);
}

export function useParams() {
  return window.__NEXT_ROUTE_PARAMS__ || {};
}

export function notFound() {
  const err = new Error('NEXT_NOT_FOUND');
  err.digest = 'NEXT_NOT_FOUND';
  throw err;
}

export function redirect(url) {
  const err = new Error('NEXT_REDIRECT');
  err.digest = 'NEXT_REDIRECT;' + url;
  throw err;
}
`

const headSrc = `
import { useEffect } from 'react';

export default function Head({ children }) {
  useEffect(() => {
    // static metadata merging happens server-side in the HTML shell;
    // this client shim is a no-op placeholder so existing <Head> usage
    // does not throw.
  }, [children]);
  return null;
}
`

const imageSrc = `
import React from 'react';

export default function Image({ src, alt, width, height, fill, priority, ...rest }) {
  const style = fill ? { position: 'absolute', inset: 0, width: '100%', height: '100%', objectFit: 'cover' } : rest.style;
  return React.createElement('img', { src, alt, width, height, style, ...rest });
}
`

const dynamicSrc = `
import React, { lazy, Suspense } from 'react';

export default function dynamic(loader, options = {}) {
  const LazyComponent = lazy(loader);
  return function DynamicComponent(props) {
    const fallback = options.loading ? React.createElement(options.loading) : null;
    return React.createElement(Suspense, { fallback }, React.createElement(LazyComponent, props));
  };
}
`

const scriptSrc = `
import { useEffect } from 'react';

export default function Script({ src, strategy, id, children, dangerouslySetInnerHTML }) {
  useEffect(() => {
    const el = document.createElement('script');
    if (src) el.src = src;
    if (id) el.id = id;
    if (dangerouslySetInnerHTML && dangerouslySetInnerHTML.__html) {
      el.textContent = dangerouslySetInnerHTML.__html;
    } else if (typeof children === 'string') {
      el.textContent = children;
    }
    document.body.appendChild(el);
    return () => { document.body.removeChild(el); };
  }, [src, id]);
  return null;
}
`

const fontGoogleSrc = `
function makeFontLoader(defaultFamily) {
  return function loadFont(options = {}) {
    return {
      className: 'font-shim',
      style: { fontFamily: options.family || defaultFamily },
      variable: options.variable,
    };
  };
}

export const Inter = makeFontLoader('Inter, sans-serif');
export const Roboto = makeFontLoader('Roboto, sans-serif');
export const Open_Sans = makeFontLoader('"Open Sans", sans-serif');
`

const fontLocalSrc = `
export default function localFont(options = {}) {
  return {
    className: 'font-shim-local',
    style: { fontFamily: options.family || 'system-ui' },
    variable: options.variable,
  };
}
`
