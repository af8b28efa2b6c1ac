package database

import (
	"context"
	"database/sql"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Counts returns object, container and entry totals. The root container is
// not counted.
func (d *Database) Counts(ctx context.Context) (CatalogCounts, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts := CatalogCounts{Objects: make(map[ObjectType]int)}

	var rows *sql.Rows
	if rows, err = d.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM objects GROUP BY type"); err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var t ObjectType
		var n int
		if err = rows.Scan(&t, &n); err != nil {
			return counts, err
		}
		counts.Objects[t] = n
	}
	if err = rows.Err(); err != nil {
		return counts, err
	}

	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM containers WHERE id != 0").Scan(&counts.Containers); err != nil {
		return counts, err
	}
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&counts.Entries)
	return counts, err
}

// CatalogStats implements metrics.StatsProvider.
func (d *Database) CatalogStats() metrics.Stats {
	counts, err := d.Counts(context.Background())
	if err != nil {
		logging.Warn("Failed to collect catalog stats: %v", err)
	}
	objects := make(map[string]int, len(counts.Objects))
	for t, n := range counts.Objects {
		objects[string(t)] = n
	}
	d.UpdateDBMetrics()
	return metrics.Stats{Objects: objects, Containers: counts.Containers, Entries: counts.Entries}
}

// UpdateStats stores the result of the last index run.
func (d *Database) UpdateStats(stats IndexStats) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats = stats
}

// GetStats returns the result of the last index run.
func (d *Database) GetStats() IndexStats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}
