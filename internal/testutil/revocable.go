package testutil

import (
	"os"
	"sync/atomic"

	"github.com/spf13/afero"
)

// RevocableFs wraps a filesystem and answers every access with a permission
// error once Revoke has been called, the way a host behaves after a user
// withdraws a grant.
type RevocableFs struct {
	afero.Fs
	revoked atomic.Bool
}

func NewRevocableFs(fs afero.Fs) *RevocableFs {
	return &RevocableFs{Fs: fs}
}

func (r *RevocableFs) Revoke() { r.revoked.Store(true) }

func (r *RevocableFs) Stat(name string) (os.FileInfo, error) {
	if r.revoked.Load() {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return r.Fs.Stat(name)
}

func (r *RevocableFs) Open(name string) (afero.File, error) {
	if r.revoked.Load() {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return r.Fs.Open(name)
}

func (r *RevocableFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if r.revoked.Load() {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return r.Fs.OpenFile(name, flag, perm)
}
