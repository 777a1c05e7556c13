package assets

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultURLPrefix is prepended to every blob id.
const DefaultURLPrefix = "blob:assetfs"

// Blob is the registered content behind one URL.
type Blob struct {
	ID       string
	URL      string
	MimeType string
	Data     []byte
}

// Registry issues process-local URLs for byte blobs. A URL stays resolvable
// until it is revoked.
type Registry struct {
	mu     sync.RWMutex
	prefix string
	blobs  map[string]*Blob // keyed by id
}

func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	return &Registry{prefix: strings.TrimSuffix(prefix, "/"), blobs: make(map[string]*Blob)}
}

// Create registers data and returns its blob.
func (r *Registry) Create(data []byte, mimeType string) *Blob {
	id := uuid.NewString()
	b := &Blob{ID: id, URL: r.prefix + "/" + id, MimeType: mimeType, Data: data}

	r.mu.Lock()
	r.blobs[id] = b
	r.mu.Unlock()
	return b
}

// Revoke releases url. It reports whether the url was live.
func (r *Registry) Revoke(url string) bool {
	id, ok := r.idOf(url)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.blobs[id]; !live {
		return false
	}
	delete(r.blobs, id)
	return true
}

// Resolve returns the blob behind url.
func (r *Registry) Resolve(url string) (*Blob, bool) {
	id, ok := r.idOf(url)
	if !ok {
		return nil, false
	}
	return r.Lookup(id)
}

// Lookup returns the blob with the given id.
func (r *Registry) Lookup(id string) (*Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	return b, ok
}

// Len is the number of live blobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// Prefix returns the URL prefix blobs are issued under.
func (r *Registry) Prefix() string { return r.prefix }

func (r *Registry) idOf(url string) (string, bool) {
	return strings.CutPrefix(url, r.prefix+"/")
}
