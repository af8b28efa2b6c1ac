package importer

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

const (
	// Minimum files to import before marking the server as ready
	minFilesForReady = 100

	// Default polling interval for change detection
	defaultPollInterval = 30 * time.Second
)

// Indexer keeps the catalog in sync with the media directory: a full import
// at startup, periodic re-imports, and a cheap poll that triggers a re-import
// when the top of the tree changes.
type Indexer struct {
	db            *database.Database
	importer      *Importer
	mediaDir      string
	indexInterval time.Duration
	pollInterval  time.Duration
	retry         filesystem.RetryConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	filesImported atomic.Int64

	// Last known state for lightweight change detection
	stateMu            sync.RWMutex
	lastRootModTime    time.Time
	lastTopLevelCount  int
	lastSubdirModTimes map[string]time.Time
}

// NewIndexer creates an Indexer running imp over its media directory.
func NewIndexer(db *database.Database, imp *Importer, indexInterval time.Duration) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		db:                 db,
		importer:           imp,
		mediaDir:           imp.Root(),
		indexInterval:      indexInterval,
		pollInterval:       defaultPollInterval,
		retry:              filesystem.DefaultRetryConfig(),
		ctx:                ctx,
		cancel:             cancel,
		startTime:          time.Now(),
		lastSubdirModTimes: make(map[string]time.Time),
	}
}

// SetPollInterval sets the interval for polling-based change detection.
func (idx *Indexer) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		idx.pollInterval = interval
	}
}

// Start runs the initial index in the background and starts the periodic
// and polling loops.
func (idx *Indexer) Start() error {
	idx.wg.Add(3)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial index in background...")
		if _, err := idx.Index(idx.ctx); err != nil {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()
	go func() {
		defer idx.wg.Done()
		idx.pollForChanges()
	}()
	go func() {
		defer idx.wg.Done()
		idx.periodicIndex()
	}()
	return nil
}

// Stop cancels any running index and waits for the background loops.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

// IsReady returns true if the server is ready to accept traffic.
func (idx *Indexer) IsReady() bool {
	if idx.filesImported.Load() >= minFilesForReady {
		return true
	}
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool      `json:"ready"`
	Indexing          bool      `json:"indexing"`
	StartTime         time.Time `json:"startTime"`
	Uptime            string    `json:"uptime"`
	LastIndexed       time.Time `json:"lastIndexed,omitempty"`
	InitialIndexError string    `json:"initialIndexError,omitempty"`
	FilesImported     int64     `json:"filesImported"`
	PlaylistDriver    string    `json:"playlistDriver"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:          idx.initialIndexComplete || idx.filesImported.Load() >= minFilesForReady,
		Indexing:       idx.isIndexing,
		StartTime:      idx.startTime,
		Uptime:         time.Since(idx.startTime).String(),
		LastIndexed:    idx.lastIndexTime,
		FilesImported:  idx.filesImported.Load(),
		PlaylistDriver: idx.importer.DriverState().String(),
	}
	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}
	return status
}

// Index imports the whole media directory, removes objects whose files are
// gone and prunes containers left empty. A call while another index runs
// returns immediately with started=false.
func (idx *Indexer) Index(ctx context.Context) (started bool, err error) {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return false, nil
	}
	defer idx.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	runID := uuid.NewString()
	startTime := time.Now()
	logging.Info("Starting index run %s of %s", runID, idx.mediaDir)

	result, err := idx.importer.importTree(ctx, idx.mediaDir)
	idx.filesImported.Store(int64(result.Imported + result.Unchanged))
	metrics.IndexerFilesProcessed.Add(float64(result.Scanned))
	if err != nil {
		metrics.IndexerErrors.Inc()
		return true, fmt.Errorf("index run %s: %w", runID, err)
	}
	if result.Errors > 0 {
		metrics.IndexerErrors.Add(float64(result.Errors))
	}

	removed, err := idx.cleanupMissingFiles(ctx, startTime)
	if err != nil {
		logging.Error("Error cleaning up missing files: %v", err)
		metrics.IndexerErrors.Inc()
	}

	pruned, err := idx.db.PruneEmptyContainers(ctx)
	if err != nil {
		logging.Error("Error pruning empty containers: %v", err)
		metrics.IndexerErrors.Inc()
	}

	idx.finalizeIndex(ctx, runID, startTime, result, removed, pruned)
	idx.updateLastKnownState(ctx)
	return true, nil
}

// TriggerIndex starts a re-index in the background.
func (idx *Indexer) TriggerIndex() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.Index(idx.ctx); err != nil {
			logging.Error("manually triggered re-index failed: %v", err)
		}
	}()
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.initialIndexComplete = true
}

// cleanupMissingFiles removes objects that were not seen since indexTime.
func (idx *Indexer) cleanupMissingFiles(ctx context.Context, indexTime time.Time) (int64, error) {
	tx, err := idx.db.BeginBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin cleanup transaction: %w", err)
	}

	deleted, err := idx.db.DeleteMissingObjects(tx, idx.mediaDir, indexTime)
	if err != nil {
		if endErr := idx.db.EndBatch(tx, err); endErr != nil {
			logging.Error("failed to end batch after cleanup error: %v", endErr)
		}
		return 0, err
	}

	if err := idx.db.EndBatch(tx, nil); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	if deleted > 0 {
		logging.Info("Removed %d missing files from catalog", deleted)
	}
	return deleted, nil
}

func (idx *Indexer) finalizeIndex(ctx context.Context, runID string, startTime time.Time, result TreeResult, removed, pruned int64) {
	duration := time.Since(startTime)
	now := time.Now()

	idx.indexMu.Lock()
	idx.lastIndexTime = now
	idx.indexMu.Unlock()

	idx.db.UpdateStats(database.IndexStats{
		RunID:         runID,
		Scanned:       result.Scanned,
		Imported:      result.Imported,
		Unchanged:     result.Unchanged,
		Playlists:     result.Playlists,
		Removed:       removed,
		Pruned:        pruned,
		Errors:        result.Errors,
		LastIndexed:   now,
		IndexDuration: duration.String(),
	})
	if err := idx.db.SetLastIndexRun(ctx, now); err != nil {
		logging.Warn("Failed to record index time: %v", err)
	}

	metrics.IndexerLastRunTimestamp.Set(float64(now.Unix()))
	metrics.IndexerLastRunDuration.Set(duration.Seconds())

	logging.Info("Index run %s complete in %v: %d scanned, %d imported, %d unchanged, %d playlists, %d removed, %d containers pruned, %d errors",
		runID, duration, result.Scanned, result.Imported, result.Unchanged, result.Playlists, removed, pruned, result.Errors)
}

func (idx *Indexer) periodicIndex() {
	if idx.indexInterval <= 0 {
		return
	}
	ticker := time.NewTicker(idx.indexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			if _, err := idx.Index(idx.ctx); err != nil {
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.ctx.Done():
			return
		}
	}
}

// pollForChanges periodically checks for file changes once the initial
// index is done.
func (idx *Indexer) pollForChanges() {
	for !idx.IsReady() {
		select {
		case <-time.After(1 * time.Second):
		case <-idx.ctx.Done():
			return
		}
	}

	logging.Info("Starting change detection polling (interval: %v)", idx.pollInterval)

	ticker := time.NewTicker(idx.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed, err := idx.detectChanges(idx.ctx)
			if err != nil {
				logging.Error("Error detecting changes: %v", err)
				continue
			}
			if changed {
				logging.Info("File changes detected, triggering re-index")
				if _, err := idx.Index(idx.ctx); err != nil {
					logging.Error("Re-index after change detection failed: %v", err)
				}
			}
		case <-idx.ctx.Done():
			logging.Info("Change detection polling stopped")
			return
		}
	}
}

// detectChanges checks the root directory's modification time, the number
// of top-level entries and the modification times of top-level folders. It
// never walks the tree, which keeps it cheap on NFS.
func (idx *Indexer) detectChanges(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.IndexerPollDuration.Observe(time.Since(start).Seconds())
		metrics.IndexerPollChecksTotal.Inc()
	}()

	rootInfo, err := filesystem.StatWithRetry(ctx, idx.mediaDir, idx.retry)
	if err != nil {
		return false, fmt.Errorf("failed to stat media directory: %w", err)
	}

	idx.stateMu.RLock()
	lastRootModTime := idx.lastRootModTime
	lastTopLevelCount := idx.lastTopLevelCount
	lastSubdirModTimes := idx.lastSubdirModTimes
	idx.stateMu.RUnlock()

	if rootInfo.ModTime().After(lastRootModTime) {
		logging.Debug("Root directory modified: %v > %v", rootInfo.ModTime(), lastRootModTime)
		metrics.IndexerPollChangesDetected.Inc()
		return true, nil
	}

	entries, err := filesystem.ReadDirWithRetry(ctx, idx.mediaDir, idx.retry)
	if err != nil {
		return false, fmt.Errorf("failed to read media directory: %w", err)
	}

	count, subdirs := idx.topLevelState(entries)
	if count != lastTopLevelCount {
		logging.Debug("Top-level count changed: %d -> %d", lastTopLevelCount, count)
		metrics.IndexerPollChangesDetected.Inc()
		return true, nil
	}

	for name, mod := range subdirs {
		last, ok := lastSubdirModTimes[name]
		if !ok || mod.After(last) {
			logging.Debug("Subdirectory %s changed", name)
			metrics.IndexerPollChangesDetected.Inc()
			return true, nil
		}
	}
	return false, nil
}

// topLevelState counts visible top-level entries and collects the
// modification times of top-level folders.
func (idx *Indexer) topLevelState(entries []fs.DirEntry) (int, map[string]time.Time) {
	count := 0
	subdirs := make(map[string]time.Time)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		count++
		if entry.IsDir() {
			if info, err := entry.Info(); err == nil {
				subdirs[entry.Name()] = info.ModTime()
			}
		}
	}
	return count, subdirs
}

func (idx *Indexer) updateLastKnownState(ctx context.Context) {
	rootInfo, err := filesystem.StatWithRetry(ctx, idx.mediaDir, idx.retry)
	if err != nil {
		logging.Warn("Failed to stat media directory for state update: %v", err)
		return
	}
	entries, err := filesystem.ReadDirWithRetry(ctx, idx.mediaDir, idx.retry)
	if err != nil {
		logging.Warn("Failed to read media directory for state update: %v", err)
		return
	}
	count, subdirs := idx.topLevelState(entries)

	idx.stateMu.Lock()
	idx.lastRootModTime = rootInfo.ModTime()
	idx.lastTopLevelCount = count
	idx.lastSubdirModTimes = subdirs
	idx.stateMu.Unlock()

	logging.Debug("Updated last known state: rootMod=%v, topLevel=%d, subdirs=%d",
		rootInfo.ModTime(), count, len(subdirs))
}
