package assetfs

import (
	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/types"
)

// MountInfo describes the mounted backend.
type MountInfo struct {
	Kind        types.MountKind
	DisplayName string
	// Handle is the granted directory or archive file, nil for the virtual
	// store and for archives mounted from plain bytes.
	Handle  handles.Handle
	Backend types.Backend
}

// AssetState is the snapshot published to the editor and the bundler after
// every change notification.
type AssetState struct {
	HasCapability   bool                 `json:"hasCapability"`
	FilesystemType  types.FilesystemKind `json:"filesystemType"`
	DirectoryName   string               `json:"directoryName,omitempty"`
	ArchiveFilename string               `json:"archiveFilename,omitempty"`
	Map             map[string]string    `json:"map"`
	Count           int                  `json:"count"`
}
