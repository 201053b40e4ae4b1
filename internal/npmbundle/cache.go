package npmbundle

import "github.com/VictoriaMetrics/fastcache"

// cacheControlImmutable is the Cache-Control every bundle is served
// with (spec.md §4.4): the specifier is content-addressed by the
// installed-package snapshot, so a hit is valid until
// clearInstalledPackagesCache() resets it.
const cacheControlImmutable = "public, max-age=31536000, immutable"

// bundleCache is a byte-keyed, bounded fastcache over bundled
// specifier -> ESM source, sized for a dev session's worth of distinct
// npm specifiers rather than a whole registry mirror. It is not an LRU:
// fastcache drops its oldest entries when full. fastcache.Set does not
// store an entry whose key plus value exceed 64KB, so such bundles are
// not cached and are rebuilt on every request.
type bundleCache struct {
	c *fastcache.Cache
}

func newBundleCache() *bundleCache {
	return &bundleCache{c: fastcache.New(64 * 1024 * 1024)}
}

func (bc *bundleCache) get(specifier string) (Result, bool) {
	v := bc.c.Get(nil, []byte(specifier))
	if v == nil {
		return Result{}, false
	}
	return Result{Code: string(v), CacheControl: cacheControlImmutable}, true
}

func (bc *bundleCache) set(specifier string, r Result) {
	bc.c.Set([]byte(specifier), []byte(r.Code))
}

func (bc *bundleCache) reset() {
	bc.c.Reset()
}
