package importer

import (
	"context"
	"crypto/md5" //nolint:gosec // change detection only
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/layout"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/memory"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/playlist"
)

// ErrOutsideRoot is returned for paths that are not below the media directory.
var ErrOutsideRoot = errors.New("path is outside the media directory")

// Options configures an Importer.
type Options struct {
	// GC is handed to the playlist driver.
	GC playlist.GCRequester
	// PlaylistGCThreshold is the number of playlists between GC requests.
	PlaylistGCThreshold int
	// Workers bounds concurrent imports during a recursive import.
	Workers int
	// Memory pauses recursive imports while memory is critical. Optional.
	Memory *memory.Monitor
}

// Importer turns files below the media directory into catalog objects and
// files them into the virtual layout.
type Importer struct {
	db        *database.Database
	root      string
	builder   *layout.Builder
	catalog   layout.Catalog
	extractor *metadata.Extractor
	resolver  *ObjectResolver
	driver    *playlist.Driver
	retry     filesystem.RetryConfig
	workers   int
	memory    *memory.Monitor

	// playlistMu serializes the driver for the whole Opening to Closing span.
	playlistMu sync.Mutex
	// nested holds playlists first seen from inside another playlist's
	// session. Guarded by playlistMu.
	nested []*database.Object
}

// New creates an Importer for the media directory root.
func New(db *database.Database, root string, builder *layout.Builder, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	imp := &Importer{
		db:        db,
		root:      filepath.Clean(root),
		builder:   builder,
		catalog:   db,
		extractor: metadata.NewExtractor(),
		retry:     filesystem.DefaultRetryConfig(),
		workers:   opts.Workers,
		memory:    opts.Memory,
	}
	imp.resolver = NewObjectResolver(db, imp)
	parser := playlist.NewParser(imp.root, builder, imp.resolver, db)
	imp.driver = playlist.NewDriver(parser, playlist.Options{
		GC:          opts.GC,
		GCThreshold: opts.PlaylistGCThreshold,
		Retry:       imp.retry,
	})
	return imp
}

// Root returns the media directory.
func (imp *Importer) Root() string {
	return imp.root
}

// Resolver returns the resolver used for playlist lines.
func (imp *Importer) Resolver() *ObjectResolver {
	return imp.resolver
}

// Builder returns the layout builder.
func (imp *Importer) Builder() *layout.Builder {
	return imp.builder
}

// ImportFromPath imports the file at path. Directories are walked only when
// recursive is set, and then the returned object is nil. A nil object with a
// nil error means the path is not an importable media file.
func (imp *Importer) ImportFromPath(ctx context.Context, path string, recursive bool) (*database.Object, error) {
	path, err := imp.clean(path)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(ctx, path, imp.retry)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		if !recursive {
			return nil, nil
		}
		_, err := imp.importTree(ctx, path)
		return nil, err
	}

	obj, _, err := imp.importFile(ctx, path, info)
	return obj, err
}

func (imp *Importer) clean(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(imp.root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(imp.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return path, nil
}

// importResult says what importFile did with a file.
type importResult int

const (
	resultSkipped importResult = iota
	resultUnchanged
	resultImported
)

func (r importResult) String() string {
	switch r {
	case resultImported:
		return "imported"
	case resultUnchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

// importFile upserts one file and, when its content changed, rebuilds its
// layout entries. Playlists are then driven through the playlist parser.
func (imp *Importer) importFile(ctx context.Context, path string, info os.FileInfo) (obj *database.Object, result importResult, err error) {
	ft := mediatypes.FileTypeOf(path)
	defer func() {
		label := result.String()
		if err != nil {
			label = "error"
		}
		if ft != mediatypes.FileTypeOther {
			metrics.ImportsTotal.WithLabelValues(string(ft), label).Inc()
		}
	}()

	if ft == mediatypes.FileTypeOther || imp.hidden(path) {
		return nil, resultSkipped, nil
	}

	hash := fileHash(path, info)
	if existing, ferr := imp.db.FindByPath(ctx, path); ferr == nil && existing.FileHash == hash {
		if err := imp.db.TouchObject(ctx, existing.ID); err != nil {
			return nil, resultSkipped, fmt.Errorf("touch %s: %w", path, err)
		}
		return existing, resultUnchanged, nil
	}

	rec, xerr := imp.extractor.Extract(ctx, path, ft)
	if xerr != nil {
		logging.Debug("Using file name metadata for %s: %v", path, xerr)
	}

	obj = &database.Object{
		Path:       path,
		Name:       info.Name(),
		ParentPath: filepath.Dir(path),
		Type:       database.ObjectType(ft),
		MimeType:   mediatypes.GetMimeType(strings.ToLower(filepath.Ext(path))),
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		FileHash:   hash,
		Metadata:   rec,
	}
	changed, err := imp.db.UpsertObject(ctx, obj)
	if err != nil {
		return nil, resultSkipped, fmt.Errorf("upsert %s: %w", path, err)
	}
	if !changed {
		return obj, resultUnchanged, nil
	}

	if obj.Type == database.ObjectTypePlaylist {
		err = imp.processPlaylist(ctx, obj)
	} else {
		err = imp.classify(ctx, obj)
	}
	if err != nil {
		imp.forget(ctx, obj)
	}
	return obj, resultImported, err
}

// hidden reports whether path, or any directory between the media root and
// it, starts with ".". The walker never enters such directories, so objects
// imported from there would be removed by the next cleanup.
func (imp *Importer) hidden(path string) bool {
	rel, err := filepath.Rel(imp.root, path)
	if err != nil {
		return strings.HasPrefix(filepath.Base(path), ".")
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// forget clears the stored hash of obj so the next import classifies it
// again instead of reporting it unchanged.
func (imp *Importer) forget(ctx context.Context, obj *database.Object) {
	if err := imp.db.ClearFileHash(context.WithoutCancel(ctx), obj.ID); err != nil {
		logging.Warn("Failed to reset hash of %s: %v", obj.Path, err)
	}
}

// classify replaces the layout entries of obj.
func (imp *Importer) classify(ctx context.Context, obj *database.Object) error {
	item, ok := obj.LayoutItem(imp.root)
	if !ok {
		return nil
	}
	if _, err := imp.db.DeleteEntriesByOrigin(ctx, obj.ID); err != nil {
		return fmt.Errorf("clear entries of %s: %w", obj.Path, err)
	}
	if _, err := imp.builder.Apply(ctx, obj.ID, item, imp.catalog); err != nil {
		return fmt.Errorf("classify %s: %w", obj.Path, err)
	}
	return nil
}

// processPlaylist runs the playlist driver on obj. Called from inside a
// playlist session it goes straight to the driver, which rejects the nested
// call instead of waiting on playlistMu forever; the nested playlist is then
// processed once the outer session has closed.
func (imp *Importer) processPlaylist(ctx context.Context, obj *database.Object) error {
	if playlist.InSession(ctx) {
		err := imp.driver.Process(ctx, obj)
		if errors.Is(err, playlist.ErrRecursion) {
			logging.Debug("Deferring nested playlist %s", obj.Path)
			imp.nested = append(imp.nested, obj)
			return nil
		}
		return err
	}

	imp.playlistMu.Lock()
	defer imp.playlistMu.Unlock()

	err := imp.driver.Process(ctx, obj)
	for len(imp.nested) > 0 && ctx.Err() == nil {
		next := imp.nested[0]
		imp.nested = imp.nested[1:]
		if nerr := imp.driver.Process(ctx, next); nerr != nil {
			logging.Warn("Nested playlist %s: %v", next.Path, nerr)
			imp.forget(ctx, next)
		}
	}
	for _, next := range imp.nested {
		imp.forget(ctx, next)
	}
	imp.nested = nil
	return err
}

// ProcessPlaylist re-runs the playlist parser for an already imported
// playlist.
func (imp *Importer) ProcessPlaylist(ctx context.Context, obj *database.Object) error {
	if obj == nil || obj.Type != database.ObjectTypePlaylist {
		return playlist.ErrUnsupportedType
	}
	return imp.processPlaylist(ctx, obj)
}

// DriverState reports the playlist driver's lifecycle state.
func (imp *Importer) DriverState() playlist.State {
	return imp.driver.State()
}

// fileHash identifies a file version by path, size and modification time.
func fileHash(path string, info os.FileInfo) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s%d%d", path, info.Size(), info.ModTime().UnixNano())) //nolint:gosec // change detection only
	return fmt.Sprintf("%x", sum)
}
