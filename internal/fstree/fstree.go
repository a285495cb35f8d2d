// Package fstree enumerates files under the served root. Tree walks
// recursively up to a configured cap and reports truncation; List
// returns the immediate children of one directory.
package fstree

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spoj/mq-mcp/internal/manifest"
	"github.com/spoj/mq-mcp/internal/paths"
	"github.com/spoj/mq-mcp/internal/qerr"
)

// errTreeCapReached stops WalkDir once the cap is hit.
var errTreeCapReached = errors.New("tree cap reached")

// Entry is one child returned by List.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

// Enumerator lists files under a root, honoring manifest exclusions.
type Enumerator struct {
	root     string
	treeCap  int
	manifest *manifest.Manifest
}

// New creates an Enumerator. treeCap bounds Tree output; m may be nil
// when no manifest exists.
func New(root string, treeCap int, m *manifest.Manifest) *Enumerator {
	if m == nil {
		m = &manifest.Manifest{}
	}
	return &Enumerator{root: root, treeCap: treeCap, manifest: m}
}

// Root returns the absolute root directory.
func (e *Enumerator) Root() string {
	return e.root
}

// Tree recursively lists relative file paths in lexicographic order,
// stopping after the configured cap. truncated reports whether the
// walk stopped early rather than exhausting the directory.
func (e *Enumerator) Tree() (files []string, truncated bool, err error) {
	walkErr := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, rerr := filepath.Rel(e.root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if e.manifest.Excluded(rel) {
			return nil
		}

		files = append(files, rel)
		if len(files) >= e.treeCap {
			return errTreeCapReached
		}
		return nil
	})

	if walkErr != nil && !errors.Is(walkErr, errTreeCapReached) {
		return nil, false, qerr.New(qerr.Internal, "walking "+e.root, walkErr)
	}

	// WalkDir visits directory entries in lexical order; sort the
	// collected paths so output order is lexicographic by full path.
	sort.Strings(files)
	return files, errors.Is(walkErr, errTreeCapReached), nil
}

// All recursively lists every relative file path with no cap, in
// lexicographic order. Selection and overview sampling work over the
// full candidate set; only Tree is capped.
func (e *Enumerator) All() ([]string, error) {
	var files []string
	walkErr := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(e.root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if e.manifest.Excluded(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, qerr.New(qerr.Internal, "walking "+e.root, walkErr)
	}
	sort.Strings(files)
	return files, nil
}

// List returns the immediate children of one directory, directories
// and files marked apart, sorted by name. An empty relPath lists the
// root itself.
func (e *Enumerator) List(relPath string) ([]Entry, error) {
	dir := e.root
	if relPath != "" {
		var err error
		_, dir, err = paths.Resolve(e.root, relPath)
		if err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, qerr.Newf(qerr.NotFound, "path %q does not exist", relPath)
	}
	if !info.IsDir() {
		return nil, qerr.Newf(qerr.NotFound, "path %q is not a directory", relPath)
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, qerr.New(qerr.NotFound, "cannot read directory "+relPath, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		rel := d.Name()
		if relPath != "" {
			rel = filepath.ToSlash(filepath.Join(relPath, d.Name()))
		}
		if !d.IsDir() && e.manifest.Excluded(rel) {
			continue
		}
		entries = append(entries, Entry{Name: d.Name(), IsDir: d.IsDir()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
