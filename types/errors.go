package types

import "errors"

var (
	ErrNotFound         = errors.New("assetfs: not found")
	ErrNotWritable      = errors.New("assetfs: backend is read-only")
	ErrIsDir            = errors.New("assetfs: is a directory")
	ErrNotDir           = errors.New("assetfs: not a directory")
	ErrNotSupported     = errors.New("assetfs: operation not supported")
	ErrNotMounted       = errors.New("assetfs: nothing is mounted")
	ErrMountFailure     = errors.New("assetfs: mount failed")
	ErrPermissionDenied = errors.New("assetfs: permission denied")
	ErrInvalidInput     = errors.New("assetfs: invalid input")
	ErrCorruptStore     = errors.New("assetfs: persistent store is corrupt")
	ErrAlreadyExists    = errors.New("assetfs: already exists")
	ErrClosed           = errors.New("assetfs: manager is closed")
)
