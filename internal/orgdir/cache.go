package orgdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/dgallion1/orgbridge/internal/emacs"
	"github.com/dgallion1/orgbridge/internal/orgtree"
)

const lockRetryDelay = 50 * time.Millisecond

// CachedLoader keeps exported records on disk, next to nothing else, as
// <cache>/<rel>.json mirroring the org directory layout. A record is
// valid while it is newer than its source file. Concurrent exports of
// the same file, in this process or another, serialize on a flock
// sidecar so each stale file is exported once.
type CachedLoader struct {
	Dir      *Dir
	CacheDir string
	Registry *orgtree.Registry
	Export   ExportFunc
}

func NewCachedLoader(client *emacs.Client, dir *Dir, cacheDir string, reg *orgtree.Registry) *CachedLoader {
	return &CachedLoader{Dir: dir, CacheDir: cacheDir, Registry: reg, Export: client.ExportFile}
}

func (c *CachedLoader) Load(ctx context.Context, file string) (*orgtree.Document, error) {
	abs, rel, err := c.resolve(file)
	if err != nil {
		return nil, err
	}
	cached := c.cachePath(rel)
	if !c.valid(abs, cached) {
		if err := c.store(ctx, abs, cached); err != nil {
			return nil, err
		}
	}
	return decodeRecordFile(c.Registry, cached, abs)
}

// Cached reports whether a record exists for the file, valid or not.
func (c *CachedLoader) Cached(file string) bool {
	_, rel, err := c.resolve(file)
	if err != nil {
		return false
	}
	_, err = os.Stat(c.cachePath(rel))
	return err == nil
}

// Invalidate drops the cached record for a file. Missing records are
// fine; the point is that the next load re-exports.
func (c *CachedLoader) Invalidate(file string) error {
	_, rel, err := c.resolve(file)
	if err != nil {
		return err
	}
	cached := c.cachePath(rel)
	if err := os.Remove(cached); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	// Drop the parent directory when it emptied out.
	if dir := filepath.Dir(cached); dir != c.CacheDir {
		_ = os.Remove(dir)
	}
	return nil
}

// Sync refreshes every stale record under the org directory with
// bounded concurrency and returns the files it re-exported.
func (c *CachedLoader) Sync(ctx context.Context, workers int) ([]string, error) {
	if workers < 1 {
		workers = 1
	}
	files, err := c.Dir.List("", true, false)
	if err != nil {
		return nil, err
	}

	type result struct {
		rel       string
		refreshed bool
		err       error
	}
	results := make(chan result, len(files))
	sem := make(chan struct{}, workers)

	for _, rel := range files {
		sem <- struct{}{}
		go func(rel string) {
			defer func() { <-sem }()
			abs, err := c.Dir.Abs(rel)
			if err != nil {
				results <- result{rel: rel, err: err}
				return
			}
			cached := c.cachePath(rel)
			if c.valid(abs, cached) {
				results <- result{rel: rel}
				return
			}
			err = c.store(ctx, abs, cached)
			results <- result{rel: rel, refreshed: err == nil, err: err}
		}(rel)
	}

	var refreshed []string
	var errs []error
	for range files {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.rel, r.err))
			continue
		}
		if r.refreshed {
			refreshed = append(refreshed, r.rel)
		}
	}
	sort.Strings(refreshed)
	return refreshed, errors.Join(errs...)
}

func (c *CachedLoader) resolve(file string) (abs, rel string, err error) {
	abs, err = c.Dir.Abs(file)
	if err != nil {
		return "", "", err
	}
	rel, err = c.Dir.Rel(abs)
	if err != nil {
		return "", "", err
	}
	return abs, rel, nil
}

func (c *CachedLoader) cachePath(rel string) string {
	return filepath.Join(c.CacheDir, rel) + ".json"
}

func (c *CachedLoader) valid(abs, cached string) bool {
	srcInfo, err := os.Stat(abs)
	if err != nil {
		return false
	}
	cacheInfo, err := os.Stat(cached)
	if err != nil {
		return false
	}
	return srcInfo.ModTime().Before(cacheInfo.ModTime())
}

func (c *CachedLoader) store(ctx context.Context, abs, cached string) error {
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		return err
	}

	lock := flock.New(cached + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("cache lock: %w", err)
	}
	if !locked {
		return errors.New("cache lock unavailable")
	}
	defer lock.Unlock()

	// Another holder may have refreshed the record while we waited.
	if c.valid(abs, cached) {
		return nil
	}
	return c.Export(ctx, abs, cached)
}
