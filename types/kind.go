package types

import "fmt"

// FilesystemKind selects between the virtual store and a user-granted source.
type FilesystemKind string

const (
	FilesystemVirtual FilesystemKind = "virtual"
	FilesystemLocal   FilesystemKind = "local"
)

// ParseFilesystemKind converts a configuration or wire value into a
// FilesystemKind.
func ParseFilesystemKind(s string) (FilesystemKind, error) {
	switch FilesystemKind(s) {
	case FilesystemVirtual, FilesystemLocal:
		return FilesystemKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown filesystem type %q", ErrInvalidInput, s)
}

// MountKind identifies which backend variant is attached.
type MountKind string

const (
	MountVirtual   MountKind = "virtual"
	MountDirectory MountKind = "directory"
	MountArchive   MountKind = "archive"
)
