package types

import "time"

// Entry describes a file or directory inside a mounted backend.
type Entry struct {
	Name     string    `json:"name"`     // base name
	Path     string    `json:"path"`     // posix path relative to the backend root, no leading slash
	IsDir    bool      `json:"isDir"`    // true if directory
	Size     int64     `json:"size"`     // size in bytes (0 for dirs)
	Modified time.Time `json:"modified"` // last modification time, zero when the backend has none
}
