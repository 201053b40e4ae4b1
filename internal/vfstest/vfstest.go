// Package vfstest implements the vfs.VFS contract purely in memory, so
// every other package in this module can be tested without touching a
// real filesystem. It also drives watch callbacks synchronously,
// mirroring the single-threaded cooperative model described in
// spec.md §5.
package vfstest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/almostnode/core/internal/vfs"
)

type node struct {
	isDir bool
	data  []byte
}

type watchEntry struct {
	path      string
	recursive bool
	cb        func(vfs.EventType, string)
	closed    bool
}

// FS is an in-memory implementation of vfs.VFS.
type FS struct {
	mu       sync.Mutex
	nodes    map[string]*node
	watchers []*watchEntry
}

// New returns an empty FS with just the root directory present.
func New() *FS {
	f := &FS{nodes: map[string]*node{"/": {isDir: true}}}
	return f
}

// NewFromFiles builds an FS pre-populated with the given path->content
// map, creating parent directories as needed.
func NewFromFiles(files map[string]string) *FS {
	f := New()
	for p, content := range files {
		f.WriteFileSync(p, []byte(content))
	}
	return f
}

func clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func parentsOf(p string) []string {
	p = clean(p)
	var parents []string
	for {
		idx := strings.LastIndex(p, "/")
		if idx <= 0 {
			break
		}
		p = p[:idx]
		if p == "" {
			p = "/"
		}
		parents = append(parents, p)
		if p == "/" {
			break
		}
	}
	return parents
}

func (f *FS) Exists(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[clean(p)]
	return ok
}

type fileInfo struct {
	name  string
	isDir bool
	size  int64
}

func (fi fileInfo) Name() string        { return fi.name }
func (fi fileInfo) IsDirectory() bool   { return fi.isDir }
func (fi fileInfo) IsFile() bool        { return !fi.isDir }
func (fi fileInfo) Size() int64         { return fi.size }

type notFoundErr struct{ path string }

func (e *notFoundErr) Error() string    { return fmt.Sprintf("ENOENT: no such file or directory, %s", e.path) }
func (e *notFoundErr) IsNotExist() bool { return true }

func (f *FS) Stat(p string) (vfs.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	if !ok {
		return nil, &notFoundErr{cp}
	}
	return fileInfo{name: lastSegment(cp), isDir: n.isDir, size: int64(len(n.data))}, nil
}

func lastSegment(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

func (f *FS) ReadFileSync(p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	if !ok || n.isDir {
		return nil, &notFoundErr{cp}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

type dirEntry struct {
	name  string
	isDir bool
}

func (d dirEntry) Name() string      { return d.name }
func (d dirEntry) IsDirectory() bool { return d.isDir }

func (f *FS) ReadDirSync(p string) ([]vfs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	if !ok || !n.isDir {
		return nil, &notFoundErr{cp}
	}
	prefix := cp
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var entries []vfs.DirEntry
	for path, node := range f.nodes {
		if path == cp || !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if strings.Contains(rest, "/") {
			rest = rest[:strings.Index(rest, "/")]
			if seen[rest] {
				continue
			}
			seen[rest] = true
			entries = append(entries, dirEntry{name: rest, isDir: true})
			continue
		}
		if seen[rest] {
			continue
		}
		seen[rest] = true
		entries = append(entries, dirEntry{name: rest, isDir: node.isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *FS) WriteFileSync(p string, data []byte) error {
	f.mu.Lock()
	cp := clean(p)
	for _, parent := range parentsOf(cp) {
		if _, ok := f.nodes[parent]; !ok {
			f.nodes[parent] = &node{isDir: true}
		}
	}
	f.nodes[cp] = &node{data: append([]byte(nil), data...)}
	f.mu.Unlock()
	f.notify(cp, vfs.EventChange)
	return nil
}

func (f *FS) MkdirSync(p string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	if !recursive {
		parent := cp[:strings.LastIndex(cp, "/")]
		if parent == "" {
			parent = "/"
		}
		if _, ok := f.nodes[parent]; !ok {
			return fmt.Errorf("ENOENT: parent directory does not exist, %s", parent)
		}
	} else {
		for _, parent := range parentsOf(cp) {
			if _, ok := f.nodes[parent]; !ok {
				f.nodes[parent] = &node{isDir: true}
			}
		}
	}
	f.nodes[cp] = &node{isDir: true}
	return nil
}

func (f *FS) Watch(p string, opts vfs.WatchOptions, cb func(vfs.EventType, string)) (vfs.Watcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &watchEntry{path: clean(p), recursive: opts.Recursive, cb: cb}
	f.watchers = append(f.watchers, w)
	return w, nil
}

func (w *watchEntry) Close() error {
	w.closed = true
	return nil
}

// notify fires watch callbacks synchronously for a changed path,
// matching the single-threaded cooperative scheduling model.
func (f *FS) notify(changed string, ev vfs.EventType) {
	f.mu.Lock()
	watchers := make([]*watchEntry, len(f.watchers))
	copy(watchers, f.watchers)
	f.mu.Unlock()

	for _, w := range watchers {
		if w.closed {
			continue
		}
		if w.path == changed {
			w.cb(ev, lastSegment(changed))
			continue
		}
		prefix := w.path
		if prefix != "/" {
			prefix += "/"
		} else {
			prefix = "/"
		}
		if w.recursive && strings.HasPrefix(changed, prefix) {
			w.cb(ev, strings.TrimPrefix(changed, prefix))
		}
	}
}

// Touch re-writes a file's existing content, useful in tests that want
// to trigger a watch callback without changing bytes.
func (f *FS) Touch(p string) {
	f.mu.Lock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	f.mu.Unlock()
	if !ok || n == nil {
		return
	}
	f.WriteFileSync(cp, n.data)
}
