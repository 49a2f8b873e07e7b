// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// Entry is a file inside archive. Name is decoded entry name, it differs from
// File.Name when archive was created with legacy code page.
type Entry struct {
	Name string
	File *zip.File
}

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk. If an error is returned, processing stops.
type WalkFunc func(archive string, entry Entry) error

// Walk visits all files in the archive with names starting with prefix in
// natural sort order of their names. When cp is not nil, names not marked as
// UTF-8 are decoded using it. Archives with entries escaping extraction
// directory (absolute paths or ".." components) are rejected.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		name, err := decodeName(f, cp)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			entries = append(entries, Entry{Name: name, File: f})
		}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, e := range entries {
		if err := walkFn(archive, e); err != nil {
			return err
		}
	}
	return nil
}

func decodeName(f *zip.File, cp encoding.Encoding) (string, error) {
	if cp == nil || !f.NonUTF8 {
		return f.Name, nil
	}
	return cp.NewDecoder().String(f.Name)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
