package orgdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/emacs"
	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// ExportFunc exports an org file to its record form at dest. Both paths
// are absolute. The usual implementation is (*emacs.Client).ExportFile.
type ExportFunc func(ctx context.Context, src, dest string) error

// Loader loads org documents by path. Relative paths resolve against
// the loader's directory; absolute paths pass through.
type Loader interface {
	Load(ctx context.Context, file string) (*orgtree.Document, error)
}

// EmacsLoader exports through the editor on every load, bypassing any
// cache. Exports go to a temp file first; reading structured data off
// the editor's stdout is not reliable.
type EmacsLoader struct {
	Dir      *Dir
	Registry *orgtree.Registry
	Export   ExportFunc
}

func NewEmacsLoader(client *emacs.Client, dir *Dir, reg *orgtree.Registry) *EmacsLoader {
	return &EmacsLoader{Dir: dir, Registry: reg, Export: client.ExportFile}
}

func (l *EmacsLoader) Load(ctx context.Context, file string) (*orgtree.Document, error) {
	abs, err := resolveLoadPath(l.Dir, file)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	tmpdir, err := os.MkdirTemp("", "orgbridge-export-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	dest := filepath.Join(tmpdir, filepath.Base(abs)+".json")
	if err := l.Export(ctx, abs, dest); err != nil {
		return nil, err
	}
	return decodeRecordFile(l.Registry, dest, abs)
}

// resolveLoadPath keeps relative paths inside the org directory.
// Absolute paths are the caller's own business and pass through.
func resolveLoadPath(dir *Dir, file string) (string, error) {
	if filepath.IsAbs(file) {
		return filepath.Clean(file), nil
	}
	if dir == nil {
		return filepath.Abs(file)
	}
	return dir.Abs(file)
}

func decodeRecordFile(reg *orgtree.Registry, recordPath, srcPath string) (*orgtree.Document, error) {
	f, err := os.Open(recordPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := codec.DecodeDocument(reg, f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", recordPath, err)
	}
	doc.Path = srcPath
	return doc, nil
}
