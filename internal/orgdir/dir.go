// Package orgdir manages the directory of .org source files: path
// containment, listing, export loaders and the on-disk record cache.
package orgdir

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir is the base directory org files live under. All relative paths in
// this package resolve against it, and resolved paths may not escape it.
type Dir struct {
	path string
}

// NewDir normalizes the base path to an absolute one.
func NewDir(path string) (*Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Dir{path: filepath.Clean(abs)}, nil
}

// Path returns the absolute base path.
func (d *Dir) Path() string { return d.path }

// Abs resolves a path against the base directory. Absolute paths pass
// through. The result is normalized and must stay inside the directory.
func (d *Dir) Abs(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.path, path)
	}
	path = filepath.Clean(path)
	if !d.contains(path) {
		return "", fmt.Errorf("path escapes org directory: %s", path)
	}
	return path, nil
}

// Rel converts a path to one relative to the base directory, enforcing
// containment the same way Abs does.
func (d *Dir) Rel(path string) (string, error) {
	abs, err := d.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(d.path, abs)
}

// OrgFile resolves a path and checks it is an existing .org file.
func (d *Dir) OrgFile(path string) (string, error) {
	abs, err := d.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is not a file", abs)
	}
	if filepath.Ext(abs) != ".org" {
		return "", fmt.Errorf("%s is not an org file", abs)
	}
	return abs, nil
}

func (d *Dir) contains(abs string) bool {
	if abs == d.path {
		return true
	}
	return strings.HasPrefix(abs, d.path+string(filepath.Separator))
}

// List returns org files under an optional subdirectory, as sorted
// paths relative to the base. Hidden files are skipped unless asked for.
func (d *Dir) List(sub string, recursive, hidden bool) ([]string, error) {
	base := d.path
	if sub != "" {
		abs, err := d.Abs(sub)
		if err != nil {
			return nil, err
		}
		base = abs
	}

	var out []string
	add := func(abs string) error {
		rel, err := filepath.Rel(d.path, abs)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	}

	if recursive {
		err := filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := entry.Name()
			if entry.IsDir() {
				if !hidden && strings.HasPrefix(name, ".") && path != base {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(name) != ".org" {
				return nil
			}
			if !hidden && strings.HasPrefix(name, ".") {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || filepath.Ext(name) != ".org" {
				continue
			}
			if !hidden && strings.HasPrefix(name, ".") {
				continue
			}
			if err := add(filepath.Join(base, name)); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(out)
	return out, nil
}
