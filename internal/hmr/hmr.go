// Package hmr implements the per-watched-directory HMR state machine
// (spec.md §3 HMRUpdate, §4.7 "HMR state machine"): classify VFS
// change events, deliver them via an internal emitter, and best-effort
// postMessage them to a registered iframe target window.
package hmr

import (
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/almostnode/core/internal/vfs"
)

// UpdateType is the HMR event kind (spec.md §3).
type UpdateType string

const (
	UpdateKind     UpdateType = "update"
	FullReloadKind UpdateType = "full-reload"
)

// Update is one HMR event.
type Update struct {
	Type      UpdateType
	Path      string
	Timestamp int64
}

// TargetWindow abstracts the iframe contentWindow a production host
// posts messages into; PostMessage failures are swallowed (spec.md
// §4.7 "Delivery failures are swallowed").
type TargetWindow interface {
	PostMessage(payload map[string]any) error
}

// Listener receives every emitted Update (the "internal event
// emitter" spec.md §4.7 always delivers through).
type Listener func(Update)

// Emitter wires VFS watchers for a set of directories to listener
// callbacks and an optional TargetWindow.
type Emitter struct {
	mu         sync.Mutex
	vfs        vfs.VFS
	listeners  []Listener
	target     TargetWindow
	watchers   []vfs.Watcher
	ignoreGlobs []string
	now        func() int64
}

// Options configures an Emitter.
type Options struct {
	IgnoreGlobs []string // doublestar patterns matched against the changed path
	Now         func() int64 // overridable for tests; defaults to wall-clock millis
}

func New(v vfs.VFS, opts Options) *Emitter {
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Emitter{vfs: v, ignoreGlobs: opts.IgnoreGlobs, now: now}
}

// OnUpdate registers a listener invoked for every classified update.
func (e *Emitter) OnUpdate(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// SetTargetWindow registers (or clears, with nil) the iframe window
// updates are postMessage'd to.
func (e *Emitter) SetTargetWindow(w TargetWindow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = w
}

// Watch starts watching dir (recursively) and wires its change events
// into classification + delivery. The underlying watcher is kept so
// Stop can close every one.
func (e *Emitter) Watch(dir string) error {
	w, err := e.vfs.Watch(dir, vfs.WatchOptions{Recursive: true}, func(evType vfs.EventType, filename string) {
		e.handleChange(dir, filename)
	})
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.watchers = append(e.watchers, w)
	e.mu.Unlock()
	return nil
}

// Stop closes every watcher started via Watch.
func (e *Emitter) Stop() {
	e.mu.Lock()
	watchers := e.watchers
	e.watchers = nil
	e.mu.Unlock()
	for _, w := range watchers {
		w.Close()
	}
}

func (e *Emitter) handleChange(watchedDir, filename string) {
	path := filename
	if !strings.HasPrefix(path, "/") {
		path = vfs.Join(watchedDir, filename)
	}

	if e.isIgnored(path) {
		return
	}

	update := Update{Type: classify(path), Path: path, Timestamp: e.now()}
	e.deliver(update)
}

func (e *Emitter) isIgnored(path string) bool {
	for _, pattern := range e.ignoreGlobs {
		if ok, _ := doublestar.Match(pattern, strings.TrimPrefix(path, "/")); ok {
			return true
		}
	}
	return false
}

// classify implements spec.md §4.7: ".css" or source extensions ->
// update, else -> full-reload.
func classify(path string) UpdateType {
	switch {
	case strings.HasSuffix(path, ".css"):
		return UpdateKind
	case strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".tsx"),
		strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".js"):
		return UpdateKind
	default:
		return FullReloadKind
	}
}

func (e *Emitter) deliver(u Update) {
	e.mu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	target := e.target
	e.mu.Unlock()

	for _, l := range listeners {
		l(u)
	}

	if target == nil {
		return
	}
	payload := map[string]any{
		"type":      string(u.Type),
		"path":      u.Path,
		"timestamp": u.Timestamp,
		"channel":   "next-hmr",
	}
	_ = target.PostMessage(payload) // delivery failures are swallowed
}
