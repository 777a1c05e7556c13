// Package assets flattens a mounted tree into an asset map: every leaf file
// becomes a revocable blob URL with a content type.
package assets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/types"
)

type Option func(*Builder)

// WithIgnore skips every path matching one of the doublestar patterns, for
// example ".git/**".
func WithIgnore(patterns ...string) Option {
	return func(b *Builder) { b.ignore = append(b.ignore, patterns...) }
}

// WithContentSniffing inspects file contents when the extension is unknown.
func WithContentSniffing() Option {
	return func(b *Builder) { b.sniff = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// Builder walks a backend and registers its files. URLs of a built map stay
// live until the map is released, so a new map can be built while the old
// one is still published.
type Builder struct {
	registry *Registry
	ignore   []string
	sniff    bool
	log      *zap.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewBuilder returns a builder issuing URLs from registry.
func NewBuilder(registry *Registry, opts ...Option) (*Builder, error) {
	b := &Builder{registry: registry, log: zap.NewNop(), live: make(map[string]struct{})}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = NewRegistry("")
	}
	for _, p := range b.ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad ignore pattern %q", types.ErrInvalidInput, p)
		}
	}
	return b, nil
}

// Registry returns the registry the builder issues URLs from.
func (b *Builder) Registry() *Registry { return b.registry }

// Build walks backend breadth-first from the root. A nil backend yields an
// empty map. Files that cannot be read are logged and left out; failing to
// read the root is an error and registers nothing.
func (b *Builder) Build(ctx context.Context, backend types.Backend) (*Map, error) {
	if backend == nil {
		return EmptyMap(), nil
	}

	entries := make(map[string]Entry)
	var urls []string
	fail := func(err error) (*Map, error) {
		for _, u := range urls {
			b.registry.Revoke(u)
		}
		return nil, err
	}

	queue := []string{""}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		p := queue[0]
		queue = queue[1:]

		info, err := backend.Stat(ctx, p)
		if err != nil {
			if p == "" {
				return fail(fmt.Errorf("stat root: %w", err))
			}
			b.log.Warn("assets: skipping unreadable entry", zap.String("path", p), zap.Error(err))
			continue
		}

		if info.IsDir {
			children, err := backend.List(ctx, p)
			if err != nil {
				if p == "" {
					return fail(fmt.Errorf("list root: %w", err))
				}
				b.log.Warn("assets: skipping unreadable directory", zap.String("path", p), zap.Error(err))
				continue
			}
			for _, child := range children {
				cp := joinPath(p, child.Name)
				if cp == "" || b.ignored(cp, child.IsDir) {
					continue
				}
				queue = append(queue, cp)
			}
			continue
		}

		data, err := backend.ReadFile(ctx, p)
		if err != nil {
			b.log.Warn("assets: skipping unreadable file", zap.String("path", p), zap.Error(err))
			continue
		}
		mime := MimeType(p)
		if mime == DefaultMimeType && b.sniff {
			mime = sniff(data)
		}
		blob := b.registry.Create(data, mime)
		urls = append(urls, blob.URL)
		entries[p] = Entry{Path: p, URL: blob.URL, MimeType: mime, Size: int64(len(data))}
	}

	b.mu.Lock()
	for _, u := range urls {
		b.live[u] = struct{}{}
	}
	b.mu.Unlock()

	b.log.Debug("assets: map built", zap.Int("count", len(entries)))
	return newMap(entries), nil
}

// Release revokes the URLs of a map that is no longer published.
func (b *Builder) Release(m *Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range m.Entries() {
		if _, ok := b.live[e.URL]; !ok {
			continue
		}
		b.registry.Revoke(e.URL)
		delete(b.live, e.URL)
	}
}

// Revoke releases every URL the builder issued.
func (b *Builder) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for u := range b.live {
		b.registry.Revoke(u)
	}
	b.live = make(map[string]struct{})
}

func (b *Builder) ignored(p string, isDir bool) bool {
	for _, pattern := range b.ignore {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, p+"/"); ok {
				return true
			}
		}
	}
	return false
}

// joinPath appends a backend-supplied child name to dir, dropping any
// leading slash the backend put on it.
func joinPath(dir, name string) string {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if dir == "" {
		return name
	}
	if name == "" {
		return ""
	}
	return dir + "/" + name
}
