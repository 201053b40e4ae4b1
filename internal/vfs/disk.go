package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DiskVFS implements VFS against a real directory on the host
// filesystem, rooted at Root. This is the out-of-browser adapter used
// when the dev server drives a real checkout instead of the in-memory
// store the Service-Worker host normally supplies (spec.md §6.1 "the
// VFS itself is an external collaborator").
type DiskVFS struct {
	Root string
}

// NewDiskVFS returns a DiskVFS rooted at the given absolute OS
// directory.
func NewDiskVFS(root string) *DiskVFS {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &DiskVFS{Root: abs}
}

func (d *DiskVFS) osPath(p string) string {
	rel := strings.TrimPrefix(p, "/")
	return filepath.Join(d.Root, filepath.FromSlash(rel))
}

func (d *DiskVFS) vfsPath(osPath string) string {
	rel, err := filepath.Rel(d.Root, osPath)
	if err != nil {
		return "/" + filepath.ToSlash(osPath)
	}
	return Join("/", filepath.ToSlash(rel))
}

func (d *DiskVFS) Exists(p string) bool {
	_, err := os.Stat(d.osPath(p))
	return err == nil
}

type diskFileInfo struct{ fs.FileInfo }

func (i diskFileInfo) IsDirectory() bool { return i.FileInfo.IsDir() }
func (i diskFileInfo) IsFile() bool      { return !i.FileInfo.IsDir() }

func (d *DiskVFS) Stat(p string) (FileInfo, error) {
	fi, err := os.Stat(d.osPath(p))
	if err != nil {
		return nil, err
	}
	return diskFileInfo{fi}, nil
}

func (d *DiskVFS) ReadFileSync(p string) ([]byte, error) {
	return os.ReadFile(d.osPath(p))
}

type diskDirEntry struct{ fs.DirEntry }

func (e diskDirEntry) IsDirectory() bool { return e.DirEntry.IsDir() }

func (d *DiskVFS) ReadDirSync(p string) ([]DirEntry, error) {
	entries, err := os.ReadDir(d.osPath(p))
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, len(entries))
	for i, e := range entries {
		out[i] = diskDirEntry{e}
	}
	return out, nil
}

func (d *DiskVFS) WriteFileSync(p string, data []byte) error {
	full := d.osPath(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (d *DiskVFS) MkdirSync(p string, recursive bool) error {
	full := d.osPath(p)
	if recursive {
		return os.MkdirAll(full, 0o755)
	}
	return os.Mkdir(full, 0o755)
}

// fsnotifyWatcher adapts an *fsnotify.Watcher to the Watcher handle.
type fsnotifyWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

func (fw *fsnotifyWatcher) Close() error {
	close(fw.done)
	return fw.w.Close()
}

// Watch recursively adds every subdirectory of path to an fsnotify
// watcher and dispatches translated events to cb until the returned
// Watcher is closed.
func (d *DiskVFS) Watch(p string, opts WatchOptions, cb func(event EventType, filename string)) (Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root := d.osPath(p)
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil //nolint:nilerr
		}
		if addErr := fsWatch.Add(path); addErr != nil {
			return addErr
		}
		if !opts.Recursive && path != root {
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		fsWatch.Close()
		return nil, walkErr
	}

	fw := &fsnotifyWatcher{w: fsWatch, done: make(chan struct{})}
	go d.dispatchEvents(fw, cb)
	return fw, nil
}

func (d *DiskVFS) dispatchEvents(fw *fsnotifyWatcher, cb func(event EventType, filename string)) {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.w.Events:
			if !ok {
				return
			}
			cb(classifyFsnotifyOp(event), d.vfsPath(event.Name))
		case _, ok := <-fw.w.Errors:
			if !ok {
				return
			}
		}
	}
}

func classifyFsnotifyOp(event fsnotify.Event) EventType {
	if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
		return EventRename
	}
	return EventChange
}
