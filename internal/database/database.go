package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// schemaVersion is stored in the metadata table and bumped with every
// migration in runMigrations.
const schemaVersion = 2

// Options tunes the connection pool. A nil *Options uses the defaults.
type Options struct {
	MaxOpenConns int
	BusyTimeout  time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{MaxOpenConns: 25, BusyTimeout: 5 * time.Second}
	if o == nil {
		return out
	}
	if o.MaxOpenConns > 0 {
		out.MaxOpenConns = o.MaxOpenConns
	}
	if o.BusyTimeout > 0 {
		out.BusyTimeout = o.BusyTimeout
	}
	return out
}

// Database is the catalog store: imported objects, the virtual container
// tree and the entries that place objects in containers.
type Database struct {
	db     *sql.DB
	dbPath string

	// mu serializes writers; SQLite allows only one at a time anyway and
	// this keeps busy errors out of the hot path.
	mu sync.RWMutex

	// chains caches resolved container chains. Cleared when containers are
	// pruned.
	chains map[string]int64

	stats   IndexStats
	statsMu sync.RWMutex
}

// New opens (creating if needed) the catalog database FILE at dbPath. The
// parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	logging.Info("Database path: %s", dbPath)
	o := opts.withDefaults()

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=%d&_foreign_keys=1",
		dbPath, o.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(min(10, o.MaxOpenConns))
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
		chains: make(map[string]int64),
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Imported media objects, one per file
	CREATE TABLE IF NOT EXISTS objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		parent_path TEXT NOT NULL,
		type TEXT NOT NULL,
		mime_type TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		mod_time INTEGER NOT NULL,
		file_hash TEXT,
		metadata TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_objects_parent_path ON objects(parent_path);
	CREATE INDEX IF NOT EXISTS idx_objects_type ON objects(type);
	CREATE INDEX IF NOT EXISTS idx_objects_updated_at ON objects(updated_at);

	-- Virtual container tree. Row 0 is the root.
	CREATE TABLE IF NOT EXISTS containers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER REFERENCES containers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(parent_id, name)
	);

	INSERT OR IGNORE INTO containers (id, parent_id, name) VALUES (0, NULL, '');

	-- Placements of objects in containers. origin_id is the object whose
	-- import produced the entry: the object itself for layout entries, the
	-- playlist for playlist entries.
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		container_id INTEGER NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
		object_id INTEGER NOT NULL REFERENCES objects(id) ON DELETE CASCADE,
		origin_id INTEGER NOT NULL REFERENCES objects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_entries_container ON entries(container_id, position);
	CREATE INDEX IF NOT EXISTS idx_entries_object ON entries(object_id);
	CREATE INDEX IF NOT EXISTS idx_entries_origin ON entries(origin_id);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err = d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	err = d.runMigrations(ctx)
	return err
}

// runMigrations upgrades catalogs created by older versions.
func (d *Database) runMigrations(ctx context.Context) error {
	version := 0
	if v, err := d.GetMetadata(ctx, "schema_version"); err == nil {
		if _, scanErr := fmt.Sscanf(v, "%d", &version); scanErr != nil {
			logging.Warn("Ignoring malformed schema_version %q", v)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	// Migration 2: entries.metadata column, absent in version 1 catalogs.
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('entries')
		WHERE name='metadata'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for entries.metadata column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding metadata column to entries table")
		if _, err := d.db.ExecContext(ctx, `ALTER TABLE entries ADD COLUMN metadata TEXT`); err != nil {
			return fmt.Errorf("failed to add entries.metadata column: %w", err)
		}
	}

	if err := d.SetMetadata(ctx, "schema_version", fmt.Sprintf("%d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}
	logging.Info("Database schema at version %d", schemaVersion)
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// BeginBatch starts a write transaction. The caller must finish it with
// EndBatch.
func (d *Database) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	start := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	recordQuery("begin_transaction", start, err)
	return tx, err
}

// EndBatch commits the transaction, or rolls it back when err is non-nil
// and returns err.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	start := time.Now()
	if err != nil {
		rbErr := tx.Rollback()
		recordQuery("rollback", start, rbErr)
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	err = tx.Commit()
	recordQuery("commit", start, err)
	return err
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates connection and file size gauges.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))

	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			metrics.DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
		}
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("Database file %s is read-only! Mode: %v", path, info.Mode())
		if path == dbPath {
			continue
		}
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
		} else {
			logging.Info("Fixed permissions on %s", path)
		}
	}

	return nil
}
