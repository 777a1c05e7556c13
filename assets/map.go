package assets

import "sort"

// Entry describes one leaf file of the mounted tree.
type Entry struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Map is an immutable path -> Entry snapshot. A nil *Map is empty.
type Map struct {
	entries map[string]Entry
	paths   []string
}

func newMap(entries map[string]Entry) *Map {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &Map{entries: entries, paths: paths}
}

// EmptyMap returns a map with no entries.
func EmptyMap() *Map { return newMap(map[string]Entry{}) }

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.paths)
}

func (m *Map) Get(path string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.entries[path]
	return e, ok
}

// Paths returns the leaf paths in sorted order.
func (m *Map) Paths() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// Entries returns every entry sorted by path.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, 0, len(m.paths))
	for _, p := range m.paths {
		out = append(out, m.entries[p])
	}
	return out
}

// URLs flattens the map into the path -> url form consumed downstream.
func (m *Map) URLs() map[string]string {
	out := make(map[string]string, m.Len())
	if m == nil {
		return out
	}
	for p, e := range m.entries {
		out[p] = e.URL
	}
	return out
}
