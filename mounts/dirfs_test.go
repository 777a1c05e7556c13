package mounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/jackfish212/assetfs/types"
)

func setupDirFS(t *testing.T) (*DirFS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()

	afero.WriteFile(mem, "/project/hello.txt", []byte("hello world"), 0o644)
	mem.MkdirAll("/project/sub", 0o755)
	afero.WriteFile(mem, "/project/sub/nested.txt", []byte("nested"), 0o644)

	fs, err := NewDirFS(afero.NewBasePathFs(mem, "/project"), "project")
	if err != nil {
		t.Fatalf("NewDirFS: %v", err)
	}
	return fs, mem
}

func TestDirFSStat(t *testing.T) {
	fs, _ := setupDirFS(t)
	ctx := context.Background()

	entry, err := fs.Stat(ctx, "hello.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if entry.Name != "hello.txt" {
		t.Errorf("Name = %q", entry.Name)
	}
	if entry.IsDir {
		t.Error("hello.txt should not be dir")
	}
	if entry.Size != 11 {
		t.Errorf("Size = %d, want 11", entry.Size)
	}
}

func TestDirFSStatRoot(t *testing.T) {
	fs, _ := setupDirFS(t)
	entry, err := fs.Stat(context.Background(), "")
	if err != nil {
		t.Fatalf("Stat root: %v", err)
	}
	if !entry.IsDir {
		t.Error("root should be dir")
	}
}

func TestDirFSStatNotFound(t *testing.T) {
	fs, _ := setupDirFS(t)
	_, err := fs.Stat(context.Background(), "nope.txt")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirFSList(t *testing.T) {
	fs, _ := setupDirFS(t)
	entries, err := fs.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "hello.txt" || entries[1].Name != "sub" || !entries[1].IsDir {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestDirFSListSubdir(t *testing.T) {
	fs, _ := setupDirFS(t)
	entries, err := fs.List(context.Background(), "/sub")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "sub/nested.txt" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestDirFSListFile(t *testing.T) {
	fs, _ := setupDirFS(t)
	_, err := fs.List(context.Background(), "hello.txt")
	if !errors.Is(err, types.ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}
}

func TestDirFSReadFile(t *testing.T) {
	fs, _ := setupDirFS(t)
	ctx := context.Background()

	data, err := fs.ReadFile(ctx, "sub/nested.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "nested" {
		t.Errorf("content = %q", string(data))
	}
	if _, err := fs.ReadFile(ctx, "sub"); !errors.Is(err, types.ErrIsDir) {
		t.Errorf("expected ErrIsDir, got %v", err)
	}
	if _, err := fs.ReadFile(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirFSWriteCreatesParent(t *testing.T) {
	fs, mem := setupDirFS(t)
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "deep/nested/new.txt", []byte("created")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := afero.ReadFile(mem, "/project/deep/nested/new.txt")
	if err != nil {
		t.Fatalf("underlying file missing: %v", err)
	}
	if string(data) != "created" {
		t.Errorf("content = %q", string(data))
	}
}

func TestDirFSMkdir(t *testing.T) {
	fs, mem := setupDirFS(t)
	ctx := context.Background()

	if err := fs.Mkdir(ctx, "newdir"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	info, err := mem.Stat("/project/newdir")
	if err != nil || !info.IsDir() {
		t.Errorf("newdir not created: %v", err)
	}
	if err := fs.Mkdir(ctx, "newdir"); !errors.Is(err, types.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDirFSUnlink(t *testing.T) {
	fs, mem := setupDirFS(t)
	ctx := context.Background()

	if err := fs.Unlink(ctx, "sub"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := mem.Stat("/project/sub/nested.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("nested file should be removed, got %v", err)
	}
	if err := fs.Unlink(ctx, "sub"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirFSRename(t *testing.T) {
	fs, mem := setupDirFS(t)
	ctx := context.Background()

	if err := fs.Rename(ctx, "hello.txt", "moved/hello.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := mem.Stat("/project/moved/hello.txt"); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
}

func TestDirFSOnHostDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644)

	fs, err := NewDirFS(afero.NewBasePathFs(afero.NewOsFs(), dir), filepath.Base(dir))
	if err != nil {
		t.Fatalf("NewDirFS: %v", err)
	}
	data, err := fs.ReadFile(context.Background(), "index.html")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("content = %q", string(data))
	}
}

func TestNewDirFSMissingRoot(t *testing.T) {
	mem := afero.NewMemMapFs()
	_, err := NewDirFS(afero.NewBasePathFs(mem, "/gone"), "gone")
	if !errors.Is(err, types.ErrMountFailure) {
		t.Errorf("expected ErrMountFailure, got %v", err)
	}
}

func TestDirFSMountInfo(t *testing.T) {
	fs, _ := setupDirFS(t)
	name, extra := fs.MountInfo()
	if name != "dirfs" || extra != "project" {
		t.Errorf("MountInfo = %q, %q", name, extra)
	}
}
