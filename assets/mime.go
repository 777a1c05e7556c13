package assets

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMimeType is used when nothing better is known.
const DefaultMimeType = "application/octet-stream"

var mimeByExt = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// MimeType derives a content type from the lowercase extension of p.
func MimeType(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	return DefaultMimeType
}

// sniff inspects content when the extension table has no answer.
func sniff(data []byte) string {
	m := mimetype.Detect(data)
	if m == nil {
		return DefaultMimeType
	}
	return m.String()
}
