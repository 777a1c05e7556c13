// Package handlecache remembers the last directory or archive handle the user
// granted so it can be restored in a later session. Only handle references
// are stored, never file contents.
package handlecache

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/handles"
)

// Slot keys in the backing store.
const (
	KeyDirectory = "lastDirectory"
	KeyArchive   = "lastArchive"
)

// Record holds the cached handles. At most one of them is meaningful.
type Record struct {
	Directory *handles.Directory
	Archive   *handles.File
}

// Empty reports whether neither slot is set.
func (r Record) Empty() bool { return r.Directory == nil && r.Archive == nil }

// Resolver turns a stored reference back into a live handle.
type Resolver func(ref handles.Ref) (handles.Handle, error)

// OSResolver resolves references against the host filesystem.
func OSResolver(ref handles.Ref) (handles.Handle, error) {
	return handles.Resolve(afero.NewOsFs(), ref)
}

// FsResolver resolves references against fs.
func FsResolver(fs afero.Fs) Resolver {
	return func(ref handles.Ref) (handles.Handle, error) {
		return handles.Resolve(fs, ref)
	}
}

type Option func(*Cache)

func WithResolver(r Resolver) Option {
	return func(c *Cache) {
		if r != nil {
			c.resolve = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// Cache reads and writes the two handle slots.
type Cache struct {
	store   Store
	resolve Resolver
	log     *zap.Logger
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, resolve: OSResolver, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save clears both slots, then writes the ones set in rec.
func (c *Cache) Save(ctx context.Context, rec Record) error {
	if err := c.Clear(ctx); err != nil {
		return err
	}
	if rec.Directory != nil {
		if err := c.put(ctx, KeyDirectory, rec.Directory.Ref()); err != nil {
			return err
		}
	}
	if rec.Archive != nil {
		if err := c.put(ctx, KeyArchive, rec.Archive.Ref()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) put(ctx context.Context, key string, ref handles.Ref) error {
	data, err := sonic.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.store.Put(ctx, key, data)
}

// Load returns both slots resolved into handles. A slot whose stored value
// cannot be decoded or resolved is reported as empty.
func (c *Cache) Load(ctx context.Context) (Record, error) {
	var rec Record

	h, err := c.get(ctx, KeyDirectory)
	if err != nil {
		return Record{}, err
	}
	if dir, ok := h.(*handles.Directory); ok {
		rec.Directory = dir
	} else if h != nil {
		c.log.Warn("handlecache: directory slot holds a non-directory handle", zap.String("kind", string(h.Kind())))
	}

	h, err = c.get(ctx, KeyArchive)
	if err != nil {
		return Record{}, err
	}
	if f, ok := h.(*handles.File); ok {
		rec.Archive = f
	} else if h != nil {
		c.log.Warn("handlecache: archive slot holds a non-file handle", zap.String("kind", string(h.Kind())))
	}
	return rec, nil
}

func (c *Cache) get(ctx context.Context, key string) (handles.Handle, error) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var ref handles.Ref
	if err := sonic.Unmarshal(data, &ref); err != nil {
		c.log.Warn("handlecache: dropping undecodable slot", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	h, err := c.resolve(ref)
	if err != nil {
		c.log.Warn("handlecache: dropping unresolvable slot", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return h, nil
}

// Clear empties both slots.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, KeyDirectory); err != nil {
		return err
	}
	return c.store.Delete(ctx, KeyArchive)
}

// CanRead reports whether h currently holds an explicit read grant. A prompt
// or a failed query counts as unreadable.
func (c *Cache) CanRead(ctx context.Context, h handles.Handle) bool {
	if h == nil {
		return false
	}
	state, err := h.QueryPermission(ctx)
	if err != nil {
		c.log.Debug("handlecache: permission query failed", zap.String("name", h.Name()), zap.Error(err))
		return false
	}
	return state.Granted()
}
