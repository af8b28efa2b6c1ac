package importer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// WalkerConfig configures the parallel directory walker.
type WalkerConfig struct {
	// NumWorkers bounds concurrent directory reads.
	NumWorkers int
	// SkipHidden skips files and directories starting with ".".
	SkipHidden bool
}

// DefaultWalkerConfig returns a configuration with workers directory readers.
// Three readers are safe for NFS and still fast on local disks.
func DefaultWalkerConfig(workers int) WalkerConfig {
	if workers <= 0 {
		workers = 3
	}
	return WalkerConfig{NumWorkers: workers, SkipHidden: true}
}

// walkedFile is a media file found by the walker.
type walkedFile struct {
	path string
	info os.FileInfo
	typ  mediatypes.FileType
}

// ParallelWalker lists the media files below a directory, reading
// directories concurrently.
type ParallelWalker struct {
	config WalkerConfig
	root   string
	retry  filesystem.RetryConfig

	mu    sync.Mutex
	files []walkedFile

	filesFound   atomic.Int64
	foldersFound atomic.Int64
	errorsCount  atomic.Int64
}

// NewParallelWalker creates a walker for root.
func NewParallelWalker(root string, config WalkerConfig) *ParallelWalker {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	return &ParallelWalker{
		config: config,
		root:   root,
		retry:  filesystem.DefaultRetryConfig(),
	}
}

// Walk returns every media file below the root, sorted by path. Unreadable
// directories are logged and skipped; only cancellation aborts the walk.
func (pw *ParallelWalker) Walk(ctx context.Context) ([]walkedFile, error) {
	start := time.Now()
	metrics.IndexerParallelWorkers.Set(float64(pw.config.NumWorkers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pw.config.NumWorkers)
	g.Go(func() error { return pw.walkDir(ctx, g, pw.root) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(pw.files, func(i, j int) bool { return pw.files[i].path < pw.files[j].path })

	logging.Info("Parallel walk complete: %d files, %d folders in %v (errors: %d)",
		pw.filesFound.Load(), pw.foldersFound.Load(), time.Since(start), pw.errorsCount.Load())
	return pw.files, nil
}

// walkDir reads one directory. Subdirectories go to a new goroutine when
// the group has room and are walked inline otherwise, so a full group never
// blocks its own members.
func (pw *ParallelWalker) walkDir(ctx context.Context, g *errgroup.Group, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := filesystem.ReadDirWithRetry(ctx, dir, pw.retry)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pw.errorsCount.Add(1)
		logging.Warn("Error reading directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if pw.config.SkipHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			pw.foldersFound.Add(1)
			if !g.TryGo(func() error { return pw.walkDir(ctx, g, path) }) {
				if err := pw.walkDir(ctx, g, path); err != nil {
					return err
				}
			}
			continue
		}

		typ := mediatypes.FileTypeOf(name)
		if typ == mediatypes.FileTypeOther {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			pw.errorsCount.Add(1)
			logging.Debug("Error getting info for %s: %v", path, err)
			continue
		}

		pw.filesFound.Add(1)
		pw.mu.Lock()
		pw.files = append(pw.files, walkedFile{path: path, info: info, typ: typ})
		pw.mu.Unlock()
	}
	return nil
}

// Stats returns walk counters.
func (pw *ParallelWalker) Stats() (files, folders, errors int64) {
	return pw.filesFound.Load(), pw.foldersFound.Load(), pw.errorsCount.Load()
}
