package vfs

import (
	"path"
	"strings"
)

// Join joins POSIX path elements, always returning an absolute path
// (the VFS contract never deals in relative paths).
func Join(elems ...string) string {
	joined := path.Join(elems...)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return path.Clean(joined)
}

// Dir is path.Dir, named locally so callers don't need to also import
// the standard "path" package alongside this one.
func Dir(p string) string { return path.Dir(p) }

// Base is path.Base.
func Base(p string) string { return path.Base(p) }

// Ext returns the file extension including the leading dot, or "" if
// there is none.
func Ext(p string) string { return path.Ext(p) }

// TrimExt removes the final extension, if any.
func TrimExt(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return p
	}
	return strings.TrimSuffix(p, ext)
}

// Segments splits a path into its non-empty components.
func Segments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
