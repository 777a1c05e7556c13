package assetfs

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/types"
)

// DroppedItem is one entry of a drag-and-drop or upload gesture.
type DroppedItem struct {
	Name  string
	IsDir bool
	Data  []byte
	// Handle is set when the host granted a handle for the dropped file.
	Handle *handles.File
	// Directory is set for dropped directories the host granted.
	Directory *handles.Directory
}

// DropOptions configures which drops are accepted.
type DropOptions struct {
	Multiple         bool
	AllowDirectories bool
}

// ValidateDrop checks the file count and file types of a drop. Every
// rejection wraps ErrInvalidInput and carries a message fit for the user.
func ValidateDrop(items []DroppedItem, opts DropOptions) error {
	if len(items) == 0 || (len(items) > 1 && !opts.Multiple) {
		return fmt.Errorf("%w: expected exactly one file, got %d", types.ErrInvalidInput, len(items))
	}
	for _, item := range items {
		if item.IsDir {
			if !opts.AllowDirectories {
				return fmt.Errorf("%w: %q is a directory; only files can be mounted", types.ErrInvalidInput, item.Name)
			}
			continue
		}
		if !strings.EqualFold(extension(item.Name), ".zip") {
			return fmt.Errorf("%w: %q is not a .zip archive", types.ErrInvalidInput, item.Name)
		}
	}
	return nil
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// MountDropped validates a drop and mounts its first item. A rejected drop
// leaves the current mount untouched.
func (m *Manager) MountDropped(ctx context.Context, items []DroppedItem, opts DropOptions) error {
	if err := ValidateDrop(items, opts); err != nil {
		return err
	}
	item := items[0]
	if item.IsDir {
		if item.Directory == nil {
			return fmt.Errorf("%w: %q was dropped without a directory grant", types.ErrInvalidInput, item.Name)
		}
		return m.MountDirectory(ctx, item.Directory)
	}
	return m.MountArchive(ctx, ArchiveSource{Name: item.Name, Data: item.Data, Handle: item.Handle})
}
