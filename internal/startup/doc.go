// Package startup loads the server configuration and prints the startup and
// shutdown log sections.
//
// # Configuration
//
// [LoadConfig] reads environment variables (main loads a .env file first
// when one exists):
//
//   - MEDIA_DIR: media directory to import (default: /media)
//   - DATABASE_DIR: catalog database and lock file (default: /database)
//   - PORT: HTTP API port (default: 8080)
//   - METRICS_PORT: Prometheus port (default: 9090)
//   - METRICS_ENABLED: serve metrics (default: true)
//   - INDEX_INTERVAL: full re-index interval (default: 30m)
//   - POLL_INTERVAL: change detection interval (default: 30s)
//   - LAYOUT_CONFIG: TOML layout rule file (default: built-in rules)
//   - PLAYLIST_GC_THRESHOLD: playlist sessions between GC requests (default: 1000)
//   - IMPORT_WORKERS: import pool size (default: derived from GOMAXPROCS)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_HEALTH_CHECKS: log health probe requests (default: true)
//
// MEMORY_LIMIT, MEMORY_RATIO and GOMEMLIMIT are handled by the memory
// package; [LogMemoryConfig] prints the result.
//
// Invalid numeric and duration values fall back to their defaults with a
// warning. The database directory is created if needed and must be
// writable; a missing media directory is only a warning.
//
// # Catalog Lock
//
// [AcquireLock] takes an flock on DATABASE_DIR/catalog.lock so two servers
// never write the same catalog.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and exposed by
// [GetBuildInfo].
package startup
