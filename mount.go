package assetfs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/handlecache"
	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/mounts"
	"github.com/jackfish212/assetfs/types"
)

// ArchiveSource is a ZIP archive to mount: either a granted file handle, whose
// bytes are read at mount time, or plain bytes such as a dropped upload.
type ArchiveSource struct {
	Name   string
	Data   []byte
	Handle *handles.File
}

// MountVirtual mounts the virtual store: durable when persistence is
// configured, in memory otherwise. Cached handles are forgotten.
func (m *Manager) MountVirtual(ctx context.Context) error {
	return m.run(ctx, OpMountVirtual, m.mountVirtual)
}

func (m *Manager) mountVirtual(ctx context.Context) error {
	var backend types.Backend
	if m.persistPath != "" {
		fs, err := mounts.OpenSQLiteFS(m.persistPath, m.backendOptions()...)
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrMountFailure, err)
		}
		backend = fs
	} else {
		backend = mounts.NewMemFS(m.backendOptions()...)
	}

	if err := m.cache.Clear(ctx); err != nil {
		m.log.Warn("assetfs: clearing handle cache", zap.Error(err))
	}
	m.publish(ctx, &MountInfo{Kind: types.MountVirtual, Backend: backend}, "")
	return nil
}

// MountDirectory mounts a granted directory and remembers it for the next
// session. The handle must already report a granted permission.
func (m *Manager) MountDirectory(ctx context.Context, dir *handles.Directory) error {
	return m.run(ctx, OpMountDirectory, func(ctx context.Context) error {
		return m.mountDirectory(ctx, dir)
	})
}

func (m *Manager) mountDirectory(ctx context.Context, dir *handles.Directory) error {
	if dir == nil {
		return fmt.Errorf("%w: no directory given", types.ErrInvalidInput)
	}
	if !m.probe.Directory() {
		return fmt.Errorf("%w: local directories are unavailable", types.ErrNotSupported)
	}
	state, err := dir.QueryPermission(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrMountFailure, err)
	}
	if !state.Granted() {
		return fmt.Errorf("%w: %s (%s)", types.ErrPermissionDenied, dir.Name(), state)
	}

	backend, err := mounts.NewDirFS(dir.FS(), dir.Name(), m.backendOptions()...)
	if err != nil {
		return err
	}

	if err := m.cache.Save(ctx, handlecache.Record{Directory: dir}); err != nil {
		m.log.Warn("assetfs: caching directory handle", zap.Error(err))
	}
	m.publish(ctx, &MountInfo{Kind: types.MountDirectory, DisplayName: dir.Name(), Handle: dir, Backend: backend}, "")
	return nil
}

// MountArchive mounts a ZIP archive read-only. Only archives given as a
// handle are remembered; mounting plain bytes clears the cache.
func (m *Manager) MountArchive(ctx context.Context, src ArchiveSource) error {
	return m.run(ctx, OpMountArchive, func(ctx context.Context) error {
		return m.mountArchive(ctx, src)
	})
}

func (m *Manager) mountArchive(ctx context.Context, src ArchiveSource) error {
	if !m.probe.Archive() {
		return fmt.Errorf("%w: archives are unavailable", types.ErrNotSupported)
	}

	name, data := src.Name, src.Data
	if src.Handle != nil {
		if name == "" {
			name = src.Handle.Name()
		}
		b, err := src.Handle.ReadAll(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrMountFailure, err)
		}
		data = b
	}
	if name == "" {
		name = "archive.zip"
	}

	backend, err := mounts.NewZipFS(name, data, m.backendOptions()...)
	if err != nil {
		return err
	}

	info := &MountInfo{Kind: types.MountArchive, DisplayName: name, Backend: backend}
	if src.Handle != nil {
		info.Handle = src.Handle
	}
	if src.Handle != nil {
		err = m.cache.Save(ctx, handlecache.Record{Archive: src.Handle})
	} else {
		err = m.cache.Clear(ctx)
	}
	if err != nil {
		m.log.Warn("assetfs: updating handle cache", zap.Error(err))
	}
	m.publish(ctx, info, "")
	return nil
}

// RemountArchive mounts the cached archive again. It does nothing when no
// archive is cached and fails with ErrPermissionDenied when the cached
// archive can no longer be read.
func (m *Manager) RemountArchive(ctx context.Context) error {
	return m.run(ctx, OpRemountArchive, m.remountArchive)
}

func (m *Manager) remountArchive(ctx context.Context) error {
	rec, err := m.cache.Load(ctx)
	if err != nil {
		return err
	}
	if rec.Archive == nil {
		return nil
	}
	if !m.cache.CanRead(ctx, rec.Archive) {
		return fmt.Errorf("%w: %s", types.ErrPermissionDenied, rec.Archive.Name())
	}
	return m.mountArchive(ctx, ArchiveSource{Handle: rec.Archive})
}

// Unmount detaches the mounted backend and forgets cached handles. Calling
// it while unmounted is harmless.
func (m *Manager) Unmount(ctx context.Context) error {
	return m.run(ctx, OpUnmount, m.unmount)
}

func (m *Manager) unmount(ctx context.Context) error {
	if err := m.cache.Clear(ctx); err != nil {
		m.log.Warn("assetfs: clearing handle cache", zap.Error(err))
	}
	m.publish(ctx, nil, "")
	return nil
}

// SetFilesystemType switches between the virtual store and local sources.
// Switching to local restores the cached directory or archive, if any. The
// selected type changes together with the mount it leads to; a failed switch
// leaves both as they were.
func (m *Manager) SetFilesystemType(ctx context.Context, kind types.FilesystemKind) error {
	switch kind {
	case types.FilesystemVirtual:
		return m.MountVirtual(ctx)
	case types.FilesystemLocal:
		return m.run(ctx, OpRestore, func(ctx context.Context) error {
			return m.restore(ctx, types.FilesystemLocal)
		})
	}
	return fmt.Errorf("%w: unknown filesystem type %q", types.ErrInvalidInput, kind)
}

// Restore brings back the mount for the selected filesystem type. For local
// sources a readable cached directory wins over a cached archive; when
// neither is readable the cache is cleared and nothing stays mounted.
// Revoked permissions never surface as an error here.
func (m *Manager) Restore(ctx context.Context) error {
	return m.run(ctx, OpRestore, func(ctx context.Context) error {
		return m.restore(ctx, m.FilesystemType())
	})
}

func (m *Manager) restore(ctx context.Context, kind types.FilesystemKind) error {
	if kind == types.FilesystemVirtual {
		return m.mountVirtual(ctx)
	}

	rec, err := m.cache.Load(ctx)
	if err != nil {
		m.log.Warn("assetfs: loading handle cache", zap.Error(err))
		rec = handlecache.Record{}
	}

	if rec.Directory != nil && m.cache.CanRead(ctx, rec.Directory) {
		err := m.mountDirectory(ctx, rec.Directory)
		if err == nil || !recoverable(err) {
			return err
		}
		m.log.Info("assetfs: cached directory not restorable", zap.String("name", rec.Directory.Name()), zap.Error(err))
	}
	if rec.Archive != nil && m.cache.CanRead(ctx, rec.Archive) {
		err := m.mountArchive(ctx, ArchiveSource{Handle: rec.Archive})
		if err == nil || !recoverable(err) {
			return err
		}
		m.log.Info("assetfs: cached archive not restorable", zap.String("name", rec.Archive.Name()), zap.Error(err))
	}

	if !rec.Empty() {
		m.log.Info("assetfs: no cached handle is readable, clearing cache")
	}
	if err := m.cache.Clear(ctx); err != nil {
		m.log.Warn("assetfs: clearing handle cache", zap.Error(err))
	}
	m.publish(ctx, nil, types.FilesystemLocal)
	return nil
}

// recoverable reports whether restoration should move on to the next cached
// handle instead of failing.
func recoverable(err error) bool {
	return errors.Is(err, types.ErrPermissionDenied) ||
		errors.Is(err, types.ErrMountFailure) ||
		errors.Is(err, types.ErrInvalidInput) ||
		errors.Is(err, types.ErrNotSupported)
}

// Rebuild rebuilds the asset map of the current mount and notifies.
func (m *Manager) Rebuild(ctx context.Context) error {
	return m.run(ctx, OpRebuild, func(ctx context.Context) error {
		m.refresh(ctx)
		return nil
	})
}
