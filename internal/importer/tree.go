package importer

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/playlist"
)

// TreeResult counts what a recursive import did.
type TreeResult struct {
	Scanned   int `json:"scanned"`
	Imported  int `json:"imported"`
	Unchanged int `json:"unchanged"`
	Playlists int `json:"playlists"`
	Errors    int `json:"errors"`
}

type treeCounters struct {
	scanned, imported, unchanged, playlists, errors atomic.Int64
}

func (c *treeCounters) record(typ mediatypes.FileType, result importResult, err error) {
	c.scanned.Add(1)
	switch {
	case err != nil:
		c.errors.Add(1)
	case result == resultImported:
		c.imported.Add(1)
		if typ == mediatypes.FileTypePlaylist {
			c.playlists.Add(1)
		}
	case result == resultUnchanged:
		c.unchanged.Add(1)
	}
}

func (c *treeCounters) result() TreeResult {
	return TreeResult{
		Scanned:   int(c.scanned.Load()),
		Imported:  int(c.imported.Load()),
		Unchanged: int(c.unchanged.Load()),
		Playlists: int(c.playlists.Load()),
		Errors:    int(c.errors.Load()),
	}
}

// ImportTree imports every media file below dir. Media files are imported
// concurrently first; playlists follow one at a time so their lines resolve
// against a populated catalog. Per-file failures are counted and logged,
// only cancellation stops the run.
func (imp *Importer) ImportTree(ctx context.Context, dir string) (TreeResult, error) {
	dir, err := imp.clean(dir)
	if err != nil {
		return TreeResult{}, err
	}
	return imp.importTree(ctx, dir)
}

func (imp *Importer) importTree(ctx context.Context, dir string) (TreeResult, error) {
	files, err := NewParallelWalker(dir, DefaultWalkerConfig(imp.workers)).Walk(ctx)
	if err != nil {
		return TreeResult{}, err
	}

	var media, lists []walkedFile
	for _, f := range files {
		if f.typ == mediatypes.FileTypePlaylist {
			lists = append(lists, f)
		} else {
			media = append(media, f)
		}
	}

	var counters treeCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.workers)
	for _, f := range media {
		if !imp.memory.WaitIfPaused(gctx) || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, result, err := imp.importFile(gctx, f.path, f.info)
			if err != nil {
				logging.Warn("Import of %s failed: %v", f.path, err)
			}
			counters.record(f.typ, result, err)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return counters.result(), err
	}

	for _, f := range lists {
		if err := ctx.Err(); err != nil {
			return counters.result(), err
		}
		_, result, err := imp.importFile(ctx, f.path, f.info)
		if err != nil && !errors.Is(err, playlist.ErrShutdownRequested) {
			logging.Warn("Playlist %s: %v", f.path, err)
		}
		counters.record(f.typ, result, err)
	}
	return counters.result(), ctx.Err()
}
