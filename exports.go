// Package assetfs lets an editor and its build pipeline treat a virtual
// store, a user-granted directory or an uploaded ZIP archive as one mountable
// tree of named byte blobs.
//
// The key type is Manager: it owns the single mounted backend, serializes
// every operation that changes it, keeps a flattened asset map of the
// mounted tree and tells subscribers when any of that changed. Subscribers
// receive no payload; they read the current state back through the
// accessors.
package assetfs

import (
	"github.com/jackfish212/assetfs/types"
)

type (
	Entry           = types.Entry
	Backend         = types.Backend
	WritableBackend = types.WritableBackend
	FilesystemKind  = types.FilesystemKind
	MountKind       = types.MountKind
	PermissionState = types.PermissionState
)

const (
	FilesystemVirtual = types.FilesystemVirtual
	FilesystemLocal   = types.FilesystemLocal
)

const (
	MountVirtual   = types.MountVirtual
	MountDirectory = types.MountDirectory
	MountArchive   = types.MountArchive
)

var (
	ErrNotFound         = types.ErrNotFound
	ErrNotWritable      = types.ErrNotWritable
	ErrIsDir            = types.ErrIsDir
	ErrNotDir           = types.ErrNotDir
	ErrNotSupported     = types.ErrNotSupported
	ErrNotMounted       = types.ErrNotMounted
	ErrMountFailure     = types.ErrMountFailure
	ErrPermissionDenied = types.ErrPermissionDenied
	ErrInvalidInput     = types.ErrInvalidInput
	ErrCorruptStore     = types.ErrCorruptStore
	ErrAlreadyExists    = types.ErrAlreadyExists
	ErrClosed           = types.ErrClosed
)

var ParseFilesystemKind = types.ParseFilesystemKind
