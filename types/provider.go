// Package types defines the core interfaces and types shared by the mount
// manager, the backends and the asset map builder.
// This package is intentionally kept minimal with no external dependencies.
package types

import "context"

// Backend is the capability surface every mountable storage source
// implements. Paths are posix-style and relative to the backend root; the
// root itself is "".
type Backend interface {
	Stat(ctx context.Context, path string) (*Entry, error)
	List(ctx context.Context, path string) ([]Entry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	MountInfo() (name, extra string)
	Close() error
}

// WritableBackend is implemented by backends that accept edits. Read-only
// backends (archives) do not implement it, so the capability difference is
// checked with a type assertion rather than at call time inside the backend.
type WritableBackend interface {
	Backend
	WriteFile(ctx context.Context, path string, data []byte) error
	Mkdir(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Unlink(ctx context.Context, path string) error
}
