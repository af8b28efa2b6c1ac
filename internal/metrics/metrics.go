package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_last_run_timestamp",
			Help: "Unix timestamp of the last completed indexer run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_files_processed_total",
			Help: "Total number of files processed by the indexer",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_running",
			Help: "Whether the indexer is currently running (1) or not (0)",
		},
	)

	IndexerParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_parallel_workers",
			Help: "Number of metadata extraction workers used by the last run",
		},
	)

	IndexerPollChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_poll_checks_total",
			Help: "Total number of polling checks for media changes",
		},
	)

	IndexerPollChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_poll_changes_detected_total",
			Help: "Total number of polling checks that detected changes",
		},
	)

	IndexerPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_indexer_poll_duration_seconds",
			Help:    "Duration of polling scans in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

// Import metrics
var (
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_imports_total",
			Help: "Total number of single path imports by media type and result",
		},
		[]string{"type", "result"}, // result: "imported", "unchanged", "skipped", "error"
	)

	MetadataExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_metadata_extract_duration_seconds",
			Help:    "Time spent reading tags from media files",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"type"},
	)

	ResolverLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_resolver_lookups_total",
			Help: "Object resolver lookups by outcome",
		},
		[]string{"outcome"}, // "hit", "imported", "absent"
	)
)

// Layout metrics
var (
	LayoutPlacementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_layout_placements_total",
			Help: "Classification entries produced, by layout rule",
		},
		[]string{"rule"},
	)

	LayoutClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_layout_classify_duration_seconds",
			Help:    "Time to classify one item including container resolution",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"kind"},
	)

	LayoutChainErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_layout_chain_errors_total",
			Help: "Container chains that could not be resolved",
		},
	)
)

// Playlist metrics
var (
	PlaylistSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_playlist_sessions_total",
			Help: "Playlist sessions by result",
		},
		[]string{"result"}, // "ok", "recursion", "unsupported", "open_error", "evaluation_error", "shutdown"
	)

	PlaylistSessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_playlist_session_duration_seconds",
			Help:    "Duration of one playlist session from open to close",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	PlaylistLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_playlist_lines_total",
			Help: "Non-blank playlist lines handed to the evaluator",
		},
	)

	PlaylistEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_playlist_entries_total",
			Help: "Playlist lines that resolved to a catalog object",
		},
	)

	PlaylistActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_playlist_active_sessions",
			Help: "Number of playlist sessions currently draining",
		},
	)

	PlaylistGCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_playlist_gc_requests_total",
			Help: "Garbage collection passes requested after processing playlists",
		},
		[]string{"status"},
	)
)

// Catalog content metrics
var (
	CatalogObjectsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_objects_total",
			Help: "Catalog objects by media type",
		},
		[]string{"type"},
	)

	CatalogContainersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_containers_total",
			Help: "Virtual containers in the catalog",
		},
	)

	CatalogEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_entries_total",
			Help: "Classification and playlist entries in the catalog",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_usage_ratio",
			Help: "Heap usage as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_paused",
			Help: "Whether imports are paused for memory pressure (1) or not (0)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_memory_gc_pauses_total",
			Help: "Number of times imports were paused for memory pressure",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_attempts_total",
			Help: "Retries after stale NFS file handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_filesystem_retry_duration_seconds",
			Help:    "Total time spent in an operation including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_stale_errors_total",
			Help: "Stale NFS file handle errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
