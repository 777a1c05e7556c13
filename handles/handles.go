// Package handles models granted references to a directory or a file. A
// handle is distinct from the bytes it points at: it can be persisted as a
// Ref, resolved again later and asked whether it may still be read.
package handles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jackfish212/assetfs/types"
)

// Kind distinguishes directory handles from file handles.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Ref is the serializable form of a handle. It never carries file contents.
type Ref struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Handle is a granted reference to a directory or a file.
type Handle interface {
	Kind() Kind
	Name() string
	Ref() Ref
	// QueryPermission reports the current read permission without asking
	// for more access.
	QueryPermission(ctx context.Context) (types.PermissionState, error)
}

var (
	_ Handle = (*Directory)(nil)
	_ Handle = (*File)(nil)
)

// Directory is a granted directory inside base.
type Directory struct {
	base afero.Fs
	path string
	name string
}

// NewDirectory returns a handle for dir inside base.
func NewDirectory(base afero.Fs, dir string) *Directory {
	return &Directory{base: base, path: dir, name: displayName(dir)}
}

// OpenDirectory returns a handle for a directory on the host filesystem.
func OpenDirectory(dir string) (*Directory, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	return NewDirectory(afero.NewOsFs(), abs), nil
}

func (d *Directory) Kind() Kind   { return KindDirectory }
func (d *Directory) Name() string { return d.name }
func (d *Directory) Path() string { return d.path }
func (d *Directory) Ref() Ref     { return Ref{Kind: KindDirectory, Name: d.name, Path: d.path} }

// OnHost reports whether the directory lives on the host filesystem.
func (d *Directory) OnHost() bool {
	_, ok := d.base.(*afero.OsFs)
	return ok
}

// FS returns a filesystem rooted at the directory.
func (d *Directory) FS() afero.Fs {
	return afero.NewBasePathFs(d.base, d.path)
}

func (d *Directory) QueryPermission(ctx context.Context) (types.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return types.PermissionPrompt, err
	}
	info, err := d.base.Stat(d.path)
	if err != nil {
		return permissionFromErr(err)
	}
	if !info.IsDir() {
		return types.PermissionDenied, nil
	}
	f, err := d.base.Open(d.path)
	if err != nil {
		return permissionFromErr(err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return permissionFromErr(err)
	}
	return types.PermissionGranted, nil
}

// File is a granted file inside base.
type File struct {
	base afero.Fs
	path string
	name string
}

// NewFile returns a handle for the file at p inside base.
func NewFile(base afero.Fs, p string) *File {
	return &File{base: base, path: p, name: displayName(p)}
}

// OpenFile returns a handle for a file on the host filesystem.
func OpenFile(p string) (*File, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	return NewFile(afero.NewOsFs(), abs), nil
}

func (f *File) Kind() Kind   { return KindFile }
func (f *File) Name() string { return f.name }
func (f *File) Path() string { return f.path }
func (f *File) Ref() Ref     { return Ref{Kind: KindFile, Name: f.name, Path: f.path} }

func (f *File) QueryPermission(ctx context.Context) (types.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return types.PermissionPrompt, err
	}
	info, err := f.base.Stat(f.path)
	if err != nil {
		return permissionFromErr(err)
	}
	if info.IsDir() {
		return types.PermissionDenied, nil
	}
	fh, err := f.base.Open(f.path)
	if err != nil {
		return permissionFromErr(err)
	}
	fh.Close()
	return types.PermissionGranted, nil
}

// ReadAll returns the file's current contents.
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.base, f.path)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, f.name)
	case errors.Is(err, os.ErrPermission):
		return nil, fmt.Errorf("%w: %s", types.ErrPermissionDenied, f.name)
	}
	return nil, fmt.Errorf("reading %s: %w", f.name, err)
}

// Resolve turns a stored Ref back into a handle inside base.
func Resolve(base afero.Fs, ref Ref) (Handle, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("%w: handle reference without a path", types.ErrInvalidInput)
	}
	switch ref.Kind {
	case KindDirectory:
		return NewDirectory(base, ref.Path), nil
	case KindFile:
		return NewFile(base, ref.Path), nil
	}
	return nil, fmt.Errorf("%w: unknown handle kind %q", types.ErrInvalidInput, ref.Kind)
}

// permissionFromErr maps a filesystem error onto a permission answer. A
// vanished or forbidden target is denied; anything else is reported.
func permissionFromErr(err error) (types.PermissionState, error) {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return types.PermissionDenied, nil
	}
	return types.PermissionPrompt, err
}

func displayName(p string) string {
	name := filepath.Base(filepath.Clean(p))
	if name == "." || name == string(filepath.Separator) {
		return p
	}
	return name
}
