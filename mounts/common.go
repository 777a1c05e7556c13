// Package mounts provides the backend variants the mount manager can attach:
// an in-memory store, a SQLite-backed persistent store, a granted directory
// and a read-only ZIP archive.
package mounts

import (
	"path"
	"strings"

	"go.uber.org/zap"
)

// Option configures a backend.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger a backend reports through.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// normPath turns any backend-supplied path into the canonical relative form:
// forward slashes, no leading or trailing slash, root is "".
func normPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func baseName(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// parentDir returns the parent of a normalized path, "" for top-level names.
func parentDir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// childPrefix is the key prefix under which a directory's children live.
func childPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + "/"
}
