package apiexec

import (
	"strings"

	"github.com/almostnode/core/internal/vfs"
)

// BuildBuiltinModules constructs the node-shim module table handlers
// can require() (spec.md §4.6): fs is VFS-backed, the rest are thin
// data-only shims sufficient for typical handler code (no native
// sockets or TLS).
func BuildBuiltinModules(v vfs.VFS) map[string]any {
	return map[string]any{
		"fs":          newFSShim(v),
		"path":        newPathShim(),
		"url":         newURLShim(),
		"querystring": newQuerystringShim(),
		"util":        newUtilShim(),
		"events":      newEventsShim(),
		"stream":      newStreamShim(),
		"buffer":      newBufferShim(),
		"crypto":      newCryptoShim(),
		"http":        newHTTPShim(),
		"https":       newHTTPShim(),
	}
}

// fsShim exposes the subset of node:fs handlers realistically call,
// mapped onto the VFS contract.
type fsShim struct{ vfs vfs.VFS }

func newFSShim(v vfs.VFS) *fsShim { return &fsShim{vfs: v} }

func (f *fsShim) ReadFileSync(path string) ([]byte, error)   { return f.vfs.ReadFileSync(path) }
func (f *fsShim) ExistsSync(path string) bool                { return f.vfs.Exists(path) }
func (f *fsShim) WriteFileSync(path string, data []byte) error { return f.vfs.WriteFileSync(path, data) }
func (f *fsShim) MkdirSync(path string, recursive bool) error { return f.vfs.MkdirSync(path, recursive) }
func (f *fsShim) ReaddirSync(path string) ([]vfs.DirEntry, error) {
	return f.vfs.ReadDirSync(path)
}

type pathShim struct{}

func newPathShim() *pathShim { return &pathShim{} }

func (pathShim) Join(elems ...string) string { return vfs.Join(elems...) }
func (pathShim) Dirname(p string) string     { return vfs.Dir(p) }
func (pathShim) Basename(p string) string    { return vfs.Base(p) }
func (pathShim) Extname(p string) string     { return vfs.Ext(p) }

type urlShim struct{}

func newURLShim() *urlShim { return &urlShim{} }

type querystringShim struct{}

func newQuerystringShim() *querystringShim { return &querystringShim{} }

func (querystringShim) Stringify(m map[string]string) string {
	var b strings.Builder
	first := true
	for k, v := range m {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

type utilShim struct{}

func newUtilShim() *utilShim { return &utilShim{} }

// eventsShim stands in for node:events; it exposes no methods (no
// EventEmitter On/Emit).
type eventsShim struct{}

func newEventsShim() *eventsShim { return &eventsShim{} }

type streamShim struct{}

func newStreamShim() *streamShim { return &streamShim{} }

type bufferShim struct{}

func newBufferShim() *bufferShim { return &bufferShim{} }

func (bufferShim) From(s string) []byte { return []byte(s) }

type cryptoShim struct{}

func newCryptoShim() *cryptoShim { return &cryptoShim{} }

// httpShim is a stub: handler code that needs to make outbound
// requests is expected to use fetch (provided by the host JS engine),
// not node's http/https client.
type httpShim struct{}

func newHTTPShim() *httpShim { return &httpShim{} }
