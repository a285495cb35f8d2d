// Package manifest reads the optional _mapquery.toml file at the served
// root. The manifest carries a human-written description of the
// directory and glob patterns excluded from enumeration and selection.
package manifest

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Filename is the reserved manifest filename. It never appears in
// listings, regex candidates, or overview samples.
const Filename = "_mapquery.toml"

// Manifest represents a parsed _mapquery.toml
type Manifest struct {
	// Description is prepended to overview synthesis input
	Description string `toml:"description,omitempty"`

	// Exclude lists glob patterns (matched against relative slash
	// paths) removed from enumeration and selection
	Exclude []string `toml:"exclude,omitempty"`
}

// Load reads the manifest from the root directory. A missing manifest
// is not an error; it yields an empty Manifest.
func Load(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to the root directory.
func (m *Manifest) Save(root string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, Filename), data, 0644)
}

// Excluded reports whether a relative slash path is hidden from
// listings and selection. The manifest file itself is always excluded.
func (m *Manifest) Excluded(rel string) bool {
	if rel == Filename {
		return true
	}
	for _, pattern := range m.Exclude {
		if ok, err := filepath.Match(pattern, rel); err == nil && ok {
			return true
		}
		// Also match against the basename so "*.log" excludes
		// nested log files the way users expect.
		if ok, err := filepath.Match(pattern, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}
