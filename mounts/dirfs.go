package mounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/types"
)

var (
	_ types.Backend         = (*DirFS)(nil)
	_ types.WritableBackend = (*DirFS)(nil)
)

// DirFS proxies to a granted directory. The afero.Fs it is given must already
// be rooted at that directory; DirFS never reaches outside it.
type DirFS struct {
	fsys afero.Fs
	name string
	log  *zap.Logger
}

// NewDirFS wraps a directory filesystem. It fails with ErrMountFailure when the
// root cannot be read or is not a directory, e.g. because access was revoked.
func NewDirFS(fsys afero.Fs, name string, opts ...Option) (*DirFS, error) {
	o := buildOptions(opts)
	info, err := fsys.Stat("/")
	if err != nil {
		return nil, fmt.Errorf("%w: directory %q: %v", types.ErrMountFailure, name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", types.ErrMountFailure, name)
	}
	o.log.Debug("dirfs: opened", zap.String("name", name))
	return &DirFS{fsys: fsys, name: name, log: o.log}, nil
}

func (fs *DirFS) hostPath(p string) string {
	return "/" + normPath(p)
}

func (fs *DirFS) Stat(_ context.Context, p string) (*types.Entry, error) {
	p = normPath(p)
	info, err := fs.fsys.Stat(fs.hostPath(p))
	if err != nil {
		return nil, fs.wrapErr(err, p)
	}
	return infoToEntry(p, info), nil
}

func (fs *DirFS) List(_ context.Context, p string) ([]types.Entry, error) {
	p = normPath(p)
	hp := fs.hostPath(p)
	info, err := fs.fsys.Stat(hp)
	if err != nil {
		return nil, fs.wrapErr(err, p)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrNotDir, p)
	}

	infos, err := afero.ReadDir(fs.fsys, hp)
	if err != nil {
		return nil, fs.wrapErr(err, p)
	}

	entries := make([]types.Entry, 0, len(infos))
	for _, fi := range infos {
		childPath := fi.Name()
		if p != "" {
			childPath = p + "/" + fi.Name()
		}
		entries = append(entries, *infoToEntry(childPath, fi))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (fs *DirFS) ReadFile(_ context.Context, p string) ([]byte, error) {
	p = normPath(p)
	hp := fs.hostPath(p)
	info, err := fs.fsys.Stat(hp)
	if err != nil {
		return nil, fs.wrapErr(err, p)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrIsDir, p)
	}
	data, err := afero.ReadFile(fs.fsys, hp)
	if err != nil {
		return nil, fs.wrapErr(err, p)
	}
	return data, nil
}

func (fs *DirFS) WriteFile(_ context.Context, p string, data []byte) error {
	p = normPath(p)
	if p == "" {
		return fmt.Errorf("%w: cannot write root", types.ErrIsDir)
	}
	hp := fs.hostPath(p)
	if info, err := fs.fsys.Stat(hp); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", types.ErrIsDir, p)
	}
	if err := fs.fsys.MkdirAll(path.Dir(hp), 0o755); err != nil {
		return fs.wrapErr(err, p)
	}
	if err := afero.WriteFile(fs.fsys, hp, data, 0o644); err != nil {
		return fs.wrapErr(err, p)
	}
	return nil
}

func (fs *DirFS) Mkdir(_ context.Context, p string) error {
	p = normPath(p)
	if p == "" {
		return fmt.Errorf("%w: cannot mkdir root", types.ErrNotSupported)
	}
	hp := fs.hostPath(p)
	if _, err := fs.fsys.Stat(hp); err == nil {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, p)
	}
	return fs.wrapErr(fs.fsys.MkdirAll(hp, 0o755), p)
}

func (fs *DirFS) Unlink(_ context.Context, p string) error {
	p = normPath(p)
	if p == "" {
		return fmt.Errorf("%w: cannot remove root", types.ErrNotSupported)
	}
	hp := fs.hostPath(p)
	if _, err := fs.fsys.Stat(hp); err != nil {
		return fs.wrapErr(err, p)
	}
	return fs.wrapErr(fs.fsys.RemoveAll(hp), p)
}

func (fs *DirFS) Rename(_ context.Context, oldPath, newPath string) error {
	oldPath = normPath(oldPath)
	newPath = normPath(newPath)
	if oldPath == "" || newPath == "" {
		return fmt.Errorf("%w: cannot rename root", types.ErrNotSupported)
	}
	hpOld := fs.hostPath(oldPath)
	hpNew := fs.hostPath(newPath)
	if _, err := fs.fsys.Stat(hpOld); err != nil {
		return fs.wrapErr(err, oldPath)
	}
	if err := fs.fsys.MkdirAll(path.Dir(hpNew), 0o755); err != nil {
		return fs.wrapErr(err, newPath)
	}
	return fs.wrapErr(fs.fsys.Rename(hpOld, hpNew), oldPath)
}

func (fs *DirFS) wrapErr(err error, p string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", types.ErrNotFound, p)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", types.ErrPermissionDenied, p)
	}
	return err
}

func infoToEntry(p string, info os.FileInfo) *types.Entry {
	name := info.Name()
	if p == "" {
		name = "/"
	}
	size := info.Size()
	if info.IsDir() {
		size = 0
	}
	return &types.Entry{
		Name: name, Path: p, IsDir: info.IsDir(),
		Size: size, Modified: info.ModTime(),
	}
}

func (fs *DirFS) MountInfo() (string, string) { return "dirfs", fs.name }

// Close releases nothing: the directory belongs to whoever granted it.
func (fs *DirFS) Close() error { return nil }
