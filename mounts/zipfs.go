package mounts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/types"
)

var _ types.Backend = (*ZipFS)(nil)

// maxPrealloc caps the buffer reserved from an entry's declared size.
const maxPrealloc = 1 << 20

// ZipFS is a read-only tree decoded from a ZIP archive. The whole archive is
// inflated when the backend is created, so reads never touch the archive
// again.
type ZipFS struct {
	name     string
	size     int
	entries  map[string]*zipEntry
	children map[string][]string
	log      *zap.Logger
}

type zipEntry struct {
	data     []byte
	isDir    bool
	modified time.Time
}

// NewZipFS decodes data as a ZIP archive. Bytes that are not a ZIP archive
// fail with ErrInvalidInput; an archive with damaged or unsafe entries fails
// with ErrMountFailure.
func NewZipFS(name string, data []byte, opts ...Option) (*ZipFS, error) {
	o := buildOptions(opts)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s is not a zip archive", types.ErrInvalidInput, name)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrMountFailure, name, err)
	}

	fs := &ZipFS{
		name:     name,
		size:     len(data),
		entries:  map[string]*zipEntry{"": {isDir: true}},
		children: make(map[string][]string),
		log:      o.log,
	}

	for _, f := range zr.File {
		p, err := zipEntryPath(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrMountFailure, name, err)
		}
		if p == "" {
			continue
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := fs.addDir(p, f.Modified); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", types.ErrMountFailure, name, err)
			}
			continue
		}

		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entry %s: %v", types.ErrMountFailure, name, f.Name, err)
		}
		if err := fs.addFile(p, content, f.Modified); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrMountFailure, name, err)
		}
	}

	for dir := range fs.children {
		sort.Strings(fs.children[dir])
	}
	o.log.Debug("zipfs: archive decoded", zap.String("name", name), zap.Int("entries", len(fs.entries)-1))
	return fs, nil
}

// zipEntryPath normalizes an archive entry name and rejects names that would
// climb out of the archive root.
func zipEntryPath(raw string) (string, error) {
	slashed := strings.ReplaceAll(raw, "\\", "/")
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("unsafe entry name %q", raw)
		}
	}
	return normPath(slashed), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	hint := f.UncompressedSize64
	if hint > maxPrealloc {
		hint = maxPrealloc
	}
	buf := bytes.NewBuffer(make([]byte, 0, int(hint)))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (fs *ZipFS) addDir(p string, modified time.Time) error {
	if e, ok := fs.entries[p]; ok {
		if !e.isDir {
			return fmt.Errorf("entry %s is both a file and a directory", p)
		}
		return nil
	}
	if err := fs.addDir(parentDir(p), time.Time{}); err != nil {
		return err
	}
	fs.entries[p] = &zipEntry{isDir: true, modified: modified}
	fs.link(p)
	return nil
}

func (fs *ZipFS) addFile(p string, data []byte, modified time.Time) error {
	if e, ok := fs.entries[p]; ok {
		if e.isDir {
			return fmt.Errorf("entry %s is both a file and a directory", p)
		}
		e.data, e.modified = data, modified
		return nil
	}
	if err := fs.addDir(parentDir(p), time.Time{}); err != nil {
		return err
	}
	fs.entries[p] = &zipEntry{data: data, modified: modified}
	fs.link(p)
	return nil
}

func (fs *ZipFS) link(p string) {
	parent := parentDir(p)
	fs.children[parent] = append(fs.children[parent], baseName(p))
}

func (fs *ZipFS) Stat(_ context.Context, path string) (*types.Entry, error) {
	path = normPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	return e.toEntry(path), nil
}

func (fs *ZipFS) List(_ context.Context, path string) ([]types.Entry, error) {
	path = normPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if !e.isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrNotDir, path)
	}

	names := fs.children[path]
	entries := make([]types.Entry, 0, len(names))
	for _, name := range names {
		child := childPrefix(path) + name
		entries = append(entries, *fs.entries[child].toEntry(child))
	}
	return entries, nil
}

func (fs *ZipFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	path = normPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if e.isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (e *zipEntry) toEntry(path string) *types.Entry {
	return &types.Entry{
		Name: baseName(path), Path: path, IsDir: e.isDir,
		Size: int64(len(e.data)), Modified: e.modified,
	}
}

func (fs *ZipFS) MountInfo() (string, string) {
	return "zipfs", fmt.Sprintf("%s (%d bytes)", fs.name, fs.size)
}

// Close drops the decoded tree.
func (fs *ZipFS) Close() error {
	fs.entries = map[string]*zipEntry{"": {isDir: true}}
	fs.children = make(map[string][]string)
	return nil
}
