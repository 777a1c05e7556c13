package assetfs

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/types"
)

// Selection is one user choice about what to mount. The concrete types are
// SelectFilesystemType, SelectMountDirectory, SelectMountArchive,
// SelectRemountArchive and SelectUnmount.
type Selection interface {
	selection()
}

type SelectFilesystemType struct{ Type types.FilesystemKind }

type SelectMountDirectory struct{ Directory *handles.Directory }

type SelectMountArchive struct{ Source ArchiveSource }

type SelectRemountArchive struct{}

type SelectUnmount struct{}

func (SelectFilesystemType) selection() {}
func (SelectMountDirectory) selection() {}
func (SelectMountArchive) selection()   {}
func (SelectRemountArchive) selection() {}
func (SelectUnmount) selection()        {}

// Apply dispatches a selection to the matching operation.
func (m *Manager) Apply(ctx context.Context, sel Selection) error {
	switch s := sel.(type) {
	case SelectFilesystemType:
		return m.SetFilesystemType(ctx, s.Type)
	case SelectMountDirectory:
		return m.MountDirectory(ctx, s.Directory)
	case SelectMountArchive:
		return m.MountArchive(ctx, s.Source)
	case SelectRemountArchive:
		return m.RemountArchive(ctx)
	case SelectUnmount:
		return m.Unmount(ctx)
	case nil:
		return fmt.Errorf("%w: empty selection", types.ErrInvalidInput)
	}
	return fmt.Errorf("%w: unknown selection %T", types.ErrInvalidInput, sel)
}

// Wire names of the selection kinds.
const (
	KindFilesystemType = "filesystem-type"
	KindMountDirectory = "mount-directory"
	KindMountArchive   = "mount-archive"
	KindRemountArchive = "remount-archive"
	KindUnmount        = "unmount"
)

// SelectionRequest is the wire form of a Selection. Directories and archives
// are named by host path.
type SelectionRequest struct {
	Kind           string `json:"kind"`
	FilesystemType string `json:"filesystemType,omitempty"`
	Path           string `json:"path,omitempty"`
}

// Selection converts the request, resolving paths inside base.
func (r SelectionRequest) Selection(base afero.Fs) (Selection, error) {
	switch r.Kind {
	case KindFilesystemType:
		kind, err := types.ParseFilesystemKind(r.FilesystemType)
		if err != nil {
			return nil, err
		}
		return SelectFilesystemType{Type: kind}, nil
	case KindMountDirectory:
		if r.Path == "" {
			return nil, fmt.Errorf("%w: mount-directory needs a path", types.ErrInvalidInput)
		}
		return SelectMountDirectory{Directory: handles.NewDirectory(base, r.Path)}, nil
	case KindMountArchive:
		if r.Path == "" {
			return nil, fmt.Errorf("%w: mount-archive needs a path", types.ErrInvalidInput)
		}
		return SelectMountArchive{Source: ArchiveSource{Handle: handles.NewFile(base, r.Path)}}, nil
	case KindRemountArchive:
		return SelectRemountArchive{}, nil
	case KindUnmount:
		return SelectUnmount{}, nil
	}
	return nil, fmt.Errorf("%w: unknown selection kind %q", types.ErrInvalidInput, r.Kind)
}
