// Package metrics provides Prometheus instrumentation for the media catalog.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "media_catalog_". InitializeMetrics pre-creates the expected
// label combinations so dashboards see zero values before the first event.
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and durations per operation, file sizes
//   - Indexer: run counts, last run time and duration, poll checks
//   - Import: single path imports by type and result, tag extraction time,
//     object resolver outcomes
//   - Layout: placements per rule, classification latency, chain errors
//   - Playlist: sessions by result, lines and resolved entries, GC requests
//   - Catalog: object, container and entry gauges filled by Collector
//   - Memory: usage ratio and import pauses
//   - Filesystem: operation latency and NFS retry behavior
//
// # Usage
//
//	metrics.InitializeMetrics()
//	collector := metrics.NewCollector(db, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// Serve the default registry with promhttp.Handler() on the metrics port.
package metrics
