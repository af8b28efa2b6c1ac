package importer

import (
	"context"
	"errors"
	"path/filepath"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Finder looks up catalog objects by path.
type Finder interface {
	FindByPath(ctx context.Context, path string) (*database.Object, error)
}

// PathImporter imports a single path into the catalog.
type PathImporter interface {
	ImportFromPath(ctx context.Context, path string, recursive bool) (*database.Object, error)
}

// ObjectResolver maps paths named in playlists to catalog objects. It never
// returns an object for a path that does not exist on storage.
type ObjectResolver struct {
	finder   Finder
	importer PathImporter
	retry    filesystem.RetryConfig
}

// NewObjectResolver creates a resolver that imports missing objects through
// importer.
func NewObjectResolver(finder Finder, importer PathImporter) *ObjectResolver {
	return &ObjectResolver{
		finder:   finder,
		importer: importer,
		retry:    filesystem.DefaultRetryConfig(),
	}
}

// Resolve returns the catalog object for path, importing it (and only it)
// when the catalog does not know it yet. Failures are logged and reported
// as absent.
func (r *ObjectResolver) Resolve(ctx context.Context, path string) (*database.Object, bool) {
	path = filepath.Clean(path)

	obj, err := r.finder.FindByPath(ctx, path)
	if err == nil {
		metrics.ResolverLookupsTotal.WithLabelValues("hit").Inc()
		return obj, true
	}
	if !errors.Is(err, database.ErrNotFound) {
		logging.Warn("Catalog lookup for %s failed: %v", path, err)
		return r.absent()
	}

	info, err := filesystem.StatWithRetry(ctx, path, r.retry)
	if err != nil {
		logging.Debug("Cannot import %s: %v", path, err)
		return r.absent()
	}
	if info.IsDir() {
		logging.Debug("Not importing directory %s from a playlist", path)
		return r.absent()
	}

	obj, err = r.importer.ImportFromPath(ctx, path, false)
	if err != nil {
		logging.Warn("Import of %s failed: %v", path, err)
	}
	if obj == nil {
		return r.absent()
	}
	metrics.ResolverLookupsTotal.WithLabelValues("imported").Inc()
	return obj, true
}

func (r *ObjectResolver) absent() (*database.Object, bool) {
	metrics.ResolverLookupsTotal.WithLabelValues("absent").Inc()
	return nil, false
}
