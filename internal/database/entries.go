package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddClassificationEntry files objectID in containerID under title. The
// entry's origin is the object itself.
func (d *Database) AddClassificationEntry(ctx context.Context, objectID, containerID int64, title string, meta map[string]string) error {
	return d.addEntry(ctx, Entry{
		ContainerID: containerID,
		ObjectID:    objectID,
		OriginID:    objectID,
		Title:       title,
		Metadata:    meta,
	})
}

// AddPlaylistEntry files the object referenced by a playlist line in the
// playlist's container. The entry's origin is the playlist.
func (d *Database) AddPlaylistEntry(ctx context.Context, pe PlaylistEntry) error {
	return d.addEntry(ctx, Entry{
		ContainerID: pe.ContainerID,
		ObjectID:    pe.ObjectID,
		OriginID:    pe.PlaylistID,
		Title:       pe.Title,
		Position:    pe.Position,
	})
}

func (d *Database) addEntry(ctx context.Context, e Entry) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_entry", start, err) }()

	var meta sql.NullString
	if meta, err = encodeMeta(e.Metadata); err != nil {
		return fmt.Errorf("encode entry metadata: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO entries (container_id, object_id, origin_id, title, position, metadata)
	VALUES (?, ?, ?, ?, ?, ?)
	`, e.ContainerID, e.ObjectID, e.OriginID, e.Title, e.Position, meta)
	return err
}

// DeleteEntriesByOrigin removes every entry created by importing originID.
func (d *Database) DeleteEntriesByOrigin(ctx context.Context, originID int64) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_entries", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	if result, err = d.db.ExecContext(ctx, "DELETE FROM entries WHERE origin_id = ?", originID); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const entryQuery = `
	SELECT e.id, e.container_id, e.object_id, e.origin_id, e.title, e.position,
		COALESCE(e.metadata, ''), o.path, o.type
	FROM entries e JOIN objects o ON o.id = e.object_id
`

func (d *Database) queryEntries(ctx context.Context, op, where string, args ...any) ([]Entry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(op, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	if rows, err = d.db.QueryContext(ctx, entryQuery+where, args...); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var metaJSON string
		if err = rows.Scan(&e.ID, &e.ContainerID, &e.ObjectID, &e.OriginID, &e.Title, &e.Position,
			&metaJSON, &e.ObjectPath, &e.ObjectType); err != nil {
			return nil, err
		}
		if e.Metadata, err = decodeMeta(metaJSON); err != nil {
			return nil, fmt.Errorf("entry %d metadata: %w", e.ID, err)
		}
		out = append(out, e)
	}
	err = rows.Err()
	return out, err
}

// ListEntries returns the entries of a container in position, then title
// order. A limit of 0 returns all entries.
func (d *Database) ListEntries(ctx context.Context, containerID int64, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	return d.queryEntries(ctx, "list_entries",
		"WHERE e.container_id = ? ORDER BY e.position, e.title COLLATE NOCASE, e.id LIMIT ? OFFSET ?",
		containerID, limit, offset)
}

// EntriesForObject returns every placement of an object.
func (d *Database) EntriesForObject(ctx context.Context, objectID int64) ([]Entry, error) {
	return d.queryEntries(ctx, "list_entries", "WHERE e.object_id = ? ORDER BY e.id", objectID)
}

// EntriesByOrigin returns the entries created by importing originID, in
// insertion order.
func (d *Database) EntriesByOrigin(ctx context.Context, originID int64) ([]Entry, error) {
	return d.queryEntries(ctx, "list_entries", "WHERE e.origin_id = ? ORDER BY e.id", originID)
}
