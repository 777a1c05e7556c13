package assetfs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jackfish212/assetfs/assets"
	"github.com/jackfish212/assetfs/capability"
	"github.com/jackfish212/assetfs/handlecache"
	"github.com/jackfish212/assetfs/mounts"
	"github.com/jackfish212/assetfs/types"
)

// Observer is told about every finished operation and every rebuilt asset
// map. Calls happen while the operation still holds the manager, so
// implementations must not call back into it.
type Observer interface {
	OperationDone(op string, err error)
	AssetsRebuilt(count, liveBlobs int)
}

// Operation names reported to an Observer.
const (
	OpMountVirtual   = "mount-virtual"
	OpMountDirectory = "mount-directory"
	OpMountArchive   = "mount-archive"
	OpRemountArchive = "remount-archive"
	OpUnmount        = "unmount"
	OpRestore        = "restore"
	OpRebuild        = "rebuild"
	OpWrite          = "write"
)

type Option func(*Manager)

// WithHandleCache sets where granted handles are remembered. The default
// forgets them when the process exits.
func WithHandleCache(c *handlecache.Cache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithCapabilities sets the probe deciding whether local sources may be
// mounted.
func WithCapabilities(p *capability.Probe) Option {
	return func(m *Manager) {
		if p != nil {
			m.probe = p
		}
	}
}

// WithAssetBuilder sets the builder producing asset maps.
func WithAssetBuilder(b *assets.Builder) Option {
	return func(m *Manager) {
		if b != nil {
			m.builder = b
		}
	}
}

// WithPersistence makes the virtual store durable in the SQLite file at
// dbPath. Without it the virtual store lives in memory.
func WithPersistence(dbPath string) Option {
	return func(m *Manager) { m.persistPath = dbPath }
}

// WithFilesystemType sets the filesystem type Restore starts from.
func WithFilesystemType(kind types.FilesystemKind) Option {
	return func(m *Manager) { m.fsKind = kind }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager owns the single mounted backend and the asset map built from it.
// Operations that change either are serialized; overlapping calls queue.
type Manager struct {
	sem *semaphore.Weighted

	mu      sync.RWMutex // guards the published snapshot
	fsKind  types.FilesystemKind
	mounted *MountInfo
	assets  *assets.Map
	closed  bool

	cache       *handlecache.Cache
	probe       *capability.Probe
	builder     *assets.Builder
	persistPath string
	observer    Observer
	log         *zap.Logger
	hub         *notifier
}

// New returns an unmounted manager. Call Restore to bring back the mount of
// a previous session.
func New(opts ...Option) *Manager {
	m := &Manager{
		sem:    semaphore.NewWeighted(1),
		fsKind: types.FilesystemVirtual,
		assets: assets.EmptyMap(),
		log:    zap.NewNop(),
		hub:    newNotifier(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = handlecache.New(handlecache.NewMemoryStore(), handlecache.WithLogger(m.log))
	}
	if m.probe == nil {
		m.probe = capability.NewProbe(capability.Detect(true))
	}
	if m.builder == nil {
		m.builder, _ = assets.NewBuilder(assets.NewRegistry(""), assets.WithLogger(m.log))
	}
	return m
}

// acquire takes the operation slot. A caller whose context ends while it
// waits gets the context error and changes nothing.
func (m *Manager) acquire(ctx context.Context) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		m.sem.Release(1)
		return types.ErrClosed
	}
	return nil
}

// run executes fn holding the operation slot and reports the outcome.
func (m *Manager) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.sem.Release(1)

	err := fn(ctx)
	if err != nil {
		m.log.Warn("assetfs: operation failed", zap.String("op", op), zap.Error(err))
	} else {
		m.log.Debug("assetfs: operation done", zap.String("op", op))
	}
	if m.observer != nil {
		m.observer.OperationDone(op, err)
	}
	return err
}

// publish builds the asset map for next (nil for unmounted), then swaps the
// mount and its map in one step and notifies once. Until the swap, readers
// keep seeing the previous mount and map. The previous backend is closed and
// its URLs released only after the swap. kind selects the filesystem type
// when next is nil; empty keeps the current one.
//
// The build runs to completion even if ctx ends, so the published map always
// matches the published mount.
func (m *Manager) publish(ctx context.Context, next *MountInfo, kind types.FilesystemKind) {
	var backend types.Backend
	if next != nil {
		backend = next.Backend
		kind = types.FilesystemLocal
		if next.Kind == types.MountVirtual {
			kind = types.FilesystemVirtual
		}
	}
	amap, err := m.builder.Build(context.WithoutCancel(ctx), backend)
	if err != nil {
		m.log.Error("assetfs: building asset map", zap.Error(err))
		amap = assets.EmptyMap()
	}

	m.mu.Lock()
	prev, prevMap := m.mounted, m.assets
	m.mounted, m.assets = next, amap
	if kind != "" {
		m.fsKind = kind
	}
	m.mu.Unlock()

	m.builder.Release(prevMap)
	if prev != nil && (next == nil || prev.Backend != next.Backend) {
		if err := prev.Backend.Close(); err != nil {
			m.log.Warn("assetfs: closing detached backend", zap.String("kind", string(prev.Kind)), zap.Error(err))
		}
	}
	if next != nil && (prev == nil || prev.Backend != next.Backend) {
		name, extra := next.Backend.MountInfo()
		m.log.Info("assetfs: mounted",
			zap.String("kind", string(next.Kind)),
			zap.String("backend", name),
			zap.String("source", extra),
			zap.Int("assets", amap.Len()))
	}

	if m.observer != nil {
		m.observer.AssetsRebuilt(amap.Len(), m.builder.Registry().Len())
	}
	m.hub.emit()
}

// refresh rebuilds the map of the current mount and notifies.
func (m *Manager) refresh(ctx context.Context) {
	m.mu.RLock()
	cur := m.mounted
	m.mu.RUnlock()
	m.publish(ctx, cur, "")
}

func (m *Manager) backendOptions() []mounts.Option {
	return []mounts.Option{mounts.WithLogger(m.log)}
}

// FilesystemType returns the selected filesystem type.
func (m *Manager) FilesystemType() types.FilesystemKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsKind
}

// Mounted returns the mounted backend, if any.
func (m *Manager) Mounted() (MountInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mounted == nil {
		return MountInfo{}, false
	}
	return *m.mounted, true
}

// Assets returns the current asset map. The map is never mutated; a later
// change publishes a new one.
func (m *Manager) Assets() *assets.Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assets
}

// Registry returns the blob registry the asset map's URLs resolve in.
func (m *Manager) Registry() *assets.Registry {
	return m.builder.Registry()
}

// HasCapability reports whether a local directory or archive can be mounted.
func (m *Manager) HasCapability() bool {
	return m.probe.Capabilities().Any()
}

// Capabilities returns the probed local capabilities.
func (m *Manager) Capabilities() capability.Capabilities {
	return m.probe.Capabilities()
}

// State returns the snapshot consumers read after a notification.
func (m *Manager) State() AssetState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := AssetState{
		HasCapability:  m.probe.Capabilities().Any(),
		FilesystemType: m.fsKind,
		Map:            m.assets.URLs(),
		Count:          m.assets.Len(),
	}
	if m.mounted != nil {
		switch m.mounted.Kind {
		case types.MountDirectory:
			st.DirectoryName = m.mounted.DisplayName
		case types.MountArchive:
			st.ArchiveFilename = m.mounted.DisplayName
		}
	}
	return st
}

// Subscribe registers for change notifications.
func (m *Manager) Subscribe() *Subscription {
	return m.hub.subscribe()
}

// Generation counts the notifications sent so far.
func (m *Manager) Generation() uint64 {
	return m.hub.sent.Load()
}

// Close detaches the mounted backend, releases every blob URL and closes all
// subscriptions. Later operations fail with ErrClosed.
func (m *Manager) Close() error {
	if err := m.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	prev := m.mounted
	m.mounted = nil
	m.assets = assets.EmptyMap()
	m.mu.Unlock()

	m.builder.Revoke()
	m.hub.closeAll()
	if prev != nil {
		if err := prev.Backend.Close(); err != nil {
			return fmt.Errorf("closing %s backend: %w", prev.Kind, err)
		}
	}
	return nil
}
