// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"bytes"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

// BuildZip returns an in-memory ZIP archive containing files. Names ending in
// "/" become directory entries. Entries are written in sorted order so
// archives are reproducible.
func BuildZip(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
