package assetfs

import (
	"path"
	"strings"
)

// CleanPath normalises an editor path into the form the asset map uses:
// forward slashes, no leading or trailing slash, "" for the root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
