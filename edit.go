package assetfs

import (
	"context"
	"fmt"

	"github.com/jackfish212/assetfs/types"
)

// writable returns the mounted backend if it accepts edits. Caller holds the
// operation slot.
func (m *Manager) writable() (types.WritableBackend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mounted == nil {
		return nil, types.ErrNotMounted
	}
	w, ok := m.mounted.Backend.(types.WritableBackend)
	if !ok {
		return nil, fmt.Errorf("%w: %s mount", types.ErrNotWritable, m.mounted.Kind)
	}
	return w, nil
}

// edit applies fn to the writable backend, then rebuilds and notifies.
func (m *Manager) edit(ctx context.Context, fn func(types.WritableBackend) error) error {
	return m.run(ctx, OpWrite, func(ctx context.Context) error {
		w, err := m.writable()
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		m.refresh(ctx)
		return nil
	})
}

// WriteFile creates or replaces a file in the mounted tree.
func (m *Manager) WriteFile(ctx context.Context, path string, data []byte) error {
	path = CleanPath(path)
	return m.edit(ctx, func(w types.WritableBackend) error {
		return w.WriteFile(ctx, path, data)
	})
}

// Mkdir creates a directory in the mounted tree.
func (m *Manager) Mkdir(ctx context.Context, path string) error {
	path = CleanPath(path)
	return m.edit(ctx, func(w types.WritableBackend) error {
		return w.Mkdir(ctx, path)
	})
}

// Rename moves an entry within the mounted tree.
func (m *Manager) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPath, newPath = CleanPath(oldPath), CleanPath(newPath)
	return m.edit(ctx, func(w types.WritableBackend) error {
		return w.Rename(ctx, oldPath, newPath)
	})
}

// Unlink removes a file, or a directory with everything below it.
func (m *Manager) Unlink(ctx context.Context, path string) error {
	path = CleanPath(path)
	return m.edit(ctx, func(w types.WritableBackend) error {
		return w.Unlink(ctx, path)
	})
}

// read calls fn with the mounted backend while holding the snapshot read
// lock, so a concurrent mount change cannot close the backend under it.
func (m *Manager) read(fn func(types.Backend) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mounted == nil {
		return types.ErrNotMounted
	}
	return fn(m.mounted.Backend)
}

// ReadFile reads a file from the mounted tree.
func (m *Manager) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := m.read(func(b types.Backend) error {
		var err error
		data, err = b.ReadFile(ctx, CleanPath(path))
		return err
	})
	return data, err
}

// Stat describes an entry of the mounted tree.
func (m *Manager) Stat(ctx context.Context, path string) (*types.Entry, error) {
	var e *types.Entry
	err := m.read(func(b types.Backend) error {
		var err error
		e, err = b.Stat(ctx, CleanPath(path))
		return err
	})
	return e, err
}

// List lists a directory of the mounted tree.
func (m *Manager) List(ctx context.Context, path string) ([]types.Entry, error) {
	var entries []types.Entry
	err := m.read(func(b types.Backend) error {
		var err error
		entries, err = b.List(ctx, CleanPath(path))
		return err
	})
	return entries, err
}
