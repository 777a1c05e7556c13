package mounts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/types"
)

var (
	_ types.Backend         = (*MemFS)(nil)
	_ types.WritableBackend = (*MemFS)(nil)
)

// MemFS is an in-memory filesystem. Its contents are lost when it is closed
// or the process exits.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	log   *zap.Logger
}

type memFile struct {
	content  []byte
	isDir    bool
	modified time.Time
}

// NewMemFS creates a new, empty in-memory filesystem.
func NewMemFS(opts ...Option) *MemFS {
	o := buildOptions(opts)
	return &MemFS{files: make(map[string]*memFile), log: o.log}
}

func (fs *MemFS) Stat(_ context.Context, path string) (*types.Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path = normPath(path)
	if path == "" {
		return &types.Entry{Name: "/", Path: "", IsDir: true}, nil
	}

	if f, ok := fs.files[path]; ok {
		return f.toEntry(path), nil
	}

	if fs.hasChildrenLocked(path) {
		return &types.Entry{Name: baseName(path), Path: path, IsDir: true}, nil
	}

	return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
}

func (fs *MemFS) List(_ context.Context, path string) ([]types.Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path = normPath(path)
	if f, ok := fs.files[path]; ok && !f.isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrNotDir, path)
	}
	prefix := childPrefix(path)

	seen := make(map[string]bool)
	var entries []types.Entry

	for k, f := range fs.files {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if rest == "" {
			continue
		}

		name := rest
		isImplicitDir := false
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name = rest[:idx]
			isImplicitDir = true
		}

		if seen[name] {
			continue
		}
		seen[name] = true

		if isImplicitDir {
			entries = append(entries, types.Entry{Name: name, Path: prefix + name, IsDir: true})
		} else {
			entries = append(entries, *f.toEntry(prefix + name))
		}
	}

	if path != "" && len(entries) == 0 {
		if f, ok := fs.files[path]; !ok || !f.isDir {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (fs *MemFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p := normPath(path)
	f, ok := fs.files[p]
	if !ok {
		if p == "" || fs.hasChildrenLocked(p) {
			return nil, fmt.Errorf("%w: %s", types.ErrIsDir, path)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if f.isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}

	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out, nil
}

func (fs *MemFS) WriteFile(_ context.Context, path string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := normPath(path)
	if p == "" {
		return fmt.Errorf("%w: cannot write root", types.ErrIsDir)
	}
	if existing, ok := fs.files[p]; ok && existing.isDir {
		return fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}
	if fs.hasChildrenLocked(p) {
		return fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}

	content := make([]byte, len(data))
	copy(content, data)
	if existing, ok := fs.files[p]; ok {
		existing.content = content
		existing.modified = time.Now()
	} else {
		fs.files[p] = &memFile{content: content, modified: time.Now()}
	}
	fs.log.Debug("memfs: wrote file", zap.String("path", p), zap.Int("size", len(content)))
	return nil
}

func (fs *MemFS) Mkdir(_ context.Context, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := normPath(path)
	if p == "" {
		return fmt.Errorf("%w: cannot mkdir root", types.ErrNotSupported)
	}
	if _, ok := fs.files[p]; ok || fs.hasChildrenLocked(p) {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, p)
	}
	fs.files[p] = &memFile{isDir: true, modified: time.Now()}
	fs.log.Debug("memfs: created directory", zap.String("path", p))
	return nil
}

func (fs *MemFS) Unlink(_ context.Context, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := normPath(path)
	if p == "" {
		return fmt.Errorf("%w: cannot remove root", types.ErrNotSupported)
	}

	_, exists := fs.files[p]
	if !exists && !fs.hasChildrenLocked(p) {
		return fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}

	delete(fs.files, p)
	prefix := p + "/"
	for k := range fs.files {
		if strings.HasPrefix(k, prefix) {
			delete(fs.files, k)
		}
	}
	return nil
}

func (fs *MemFS) Rename(_ context.Context, oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	old := normPath(oldPath)
	nw := normPath(newPath)
	if old == "" || nw == "" {
		return fmt.Errorf("%w: cannot rename root", types.ErrNotSupported)
	}

	f, exists := fs.files[old]
	if !exists && !fs.hasChildrenLocked(old) {
		return fmt.Errorf("%w: %s", types.ErrNotFound, oldPath)
	}

	if exists {
		delete(fs.files, old)
		fs.files[nw] = f
		f.modified = time.Now()
	}

	oldPrefix := old + "/"
	newPrefix := nw + "/"
	moved := make(map[string]*memFile)
	for k, v := range fs.files {
		if strings.HasPrefix(k, oldPrefix) {
			moved[newPrefix+k[len(oldPrefix):]] = v
			delete(fs.files, k)
		}
	}
	for k, v := range moved {
		fs.files[k] = v
	}
	return nil
}

func (fs *MemFS) hasChildrenLocked(p string) bool {
	prefix := p + "/"
	for k := range fs.files {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (f *memFile) toEntry(path string) *types.Entry {
	return &types.Entry{
		Name: baseName(path), Path: path, IsDir: f.isDir,
		Size: int64(len(f.content)), Modified: f.modified,
	}
}

func (fs *MemFS) MountInfo() (string, string) { return "memfs", "in-memory" }

// Close drops every stored file.
func (fs *MemFS) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files = make(map[string]*memFile)
	return nil
}
