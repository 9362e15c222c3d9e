package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/config"
	"github.com/dgallion1/orgbridge/internal/emacs"
	"github.com/dgallion1/orgbridge/internal/index"
	"github.com/dgallion1/orgbridge/internal/orgdir"
	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// runtime wires the collaborators a command needs from the loaded
// configuration. The editor is only contacted when a loader or searcher
// actually runs.
type runtime struct {
	cfg      config.Config
	registry *orgtree.Registry
	client   *emacs.Client
	dir      *orgdir.Dir
	loader   *orgdir.CachedLoader
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, registry: orgtree.NewRegistry()}

	if cfg.Schema != "" {
		f, err := os.Open(cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("open schema: %w", err)
		}
		err = rt.registry.LoadSchema(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", cfg.Schema, err)
		}
	}

	rt.client = emacs.NewClient(cfg.EmacsCmd)

	if cfg.OrgDir != "" {
		dir, err := orgdir.NewDir(cfg.OrgDir)
		if err != nil {
			return nil, err
		}
		rt.dir = dir
		rt.loader = orgdir.NewCachedLoader(rt.client, dir, cfg.CacheDir, rt.registry)
	}

	return rt, nil
}

func (rt *runtime) requireDir() error {
	if rt.dir == nil {
		return fmt.Errorf("ORGBRIDGE_ORG_DIR is not set")
	}
	return nil
}

func (rt *runtime) openIndex() (*index.Index, error) {
	if err := os.MkdirAll(filepath.Dir(rt.cfg.IndexPath), 0o755); err != nil {
		return nil, err
	}
	return index.Open(rt.cfg.IndexPath)
}

// loadDocument reads an org file through the export loader, or decodes
// an already exported record when given a .json path.
func (rt *runtime) loadDocument(ctx context.Context, path string) (*orgtree.Document, error) {
	if strings.HasSuffix(path, ".json") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		doc, err := codec.DecodeDocument(rt.registry, f)
		if err != nil {
			return nil, err
		}
		doc.Path = path
		return doc, nil
	}
	if rt.loader != nil {
		return rt.loader.Load(ctx, path)
	}
	loader := &orgdir.EmacsLoader{Registry: rt.registry, Export: rt.client.ExportFile}
	return loader.Load(ctx, path)
}

func printDiagnostics(doc *orgtree.Document) {
	for _, d := range doc.Diagnostics {
		fmt.Fprintln(os.Stderr, "warning:", d)
	}
}
