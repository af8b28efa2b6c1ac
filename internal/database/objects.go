package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const objectColumns = `id, path, name, parent_path, type, COALESCE(mime_type, ''), size, mod_time,
	COALESCE(file_hash, ''), COALESCE(metadata, ''), updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*Object, error) {
	var (
		obj      Object
		modTime  int64
		updated  int64
		metaJSON string
	)
	err := row.Scan(&obj.ID, &obj.Path, &obj.Name, &obj.ParentPath, &obj.Type, &obj.MimeType,
		&obj.Size, &modTime, &obj.FileHash, &metaJSON, &updated)
	if err != nil {
		return nil, err
	}
	obj.ModTime = time.Unix(modTime, 0)
	obj.UpdatedAt = time.Unix(updated, 0)
	if obj.Metadata, err = decodeMeta(metaJSON); err != nil {
		return nil, fmt.Errorf("object %d metadata: %w", obj.ID, err)
	}
	return &obj, nil
}

func encodeMeta(meta map[string]string) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeMeta(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// FindByPath returns the object stored for path, or ErrNotFound.
func (d *Database) FindByPath(ctx context.Context, path string) (*Object, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_by_path", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var obj *Object
	obj, err = scanObject(d.db.QueryRowContext(ctx,
		"SELECT "+objectColumns+" FROM objects WHERE path = ?", filepath.Clean(path)))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// GetObject returns the object with id, or ErrNotFound.
func (d *Database) GetObject(ctx context.Context, id int64) (*Object, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_object", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var obj *Object
	obj, err = scanObject(d.db.QueryRowContext(ctx,
		"SELECT "+objectColumns+" FROM objects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// UpsertObject inserts or updates obj by path and sets obj.ID. It reports
// whether the stored content changed (new object, or different size,
// modification time, hash or type).
func (d *Database) UpsertObject(ctx context.Context, obj *Object) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_object", start, err) }()

	obj.Path = filepath.Clean(obj.Path)
	if obj.Name == "" {
		obj.Name = filepath.Base(obj.Path)
	}
	if obj.ParentPath == "" {
		obj.ParentPath = filepath.Dir(obj.Path)
	}

	var meta sql.NullString
	if meta, err = encodeMeta(obj.Metadata); err != nil {
		return false, fmt.Errorf("encode metadata for %s: %w", obj.Path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tx *sql.Tx
	if tx, err = d.db.BeginTx(ctx, nil); err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		prevSize, prevMod int64
		prevHash, prevTyp string
	)
	changed := false
	err = tx.QueryRowContext(ctx,
		"SELECT size, mod_time, COALESCE(file_hash, ''), type FROM objects WHERE path = ?", obj.Path,
	).Scan(&prevSize, &prevMod, &prevHash, &prevTyp)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		changed = true
	case err != nil:
		return false, err
	default:
		changed = prevSize != obj.Size || prevMod != obj.ModTime.Unix() ||
			prevHash != obj.FileHash || prevTyp != string(obj.Type)
	}

	err = tx.QueryRowContext(ctx, `
	INSERT INTO objects (path, name, parent_path, type, mime_type, size, mod_time, file_hash, metadata, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(path) DO UPDATE SET
		name = excluded.name,
		parent_path = excluded.parent_path,
		type = excluded.type,
		mime_type = excluded.mime_type,
		size = excluded.size,
		mod_time = excluded.mod_time,
		file_hash = excluded.file_hash,
		metadata = excluded.metadata,
		updated_at = strftime('%s', 'now')
	RETURNING id
	`, obj.Path, obj.Name, obj.ParentPath, obj.Type, obj.MimeType, obj.Size, obj.ModTime.Unix(),
		obj.FileHash, meta).Scan(&obj.ID)
	if err != nil {
		return false, err
	}

	err = tx.Commit()
	return changed, err
}

// TouchObject marks an unchanged object as seen by the current index run.
func (d *Database) TouchObject(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_object", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "UPDATE objects SET updated_at = strftime('%s', 'now') WHERE id = ?", id)
	return err
}

// ClearFileHash drops the stored hash of an object, so that the next
// UpsertObject reports it as changed.
func (d *Database) ClearFileHash(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_object", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "UPDATE objects SET file_hash = NULL WHERE id = ?", id)
	return err
}

// DeleteMissingObjects removes objects under root that were not seen since
// cutoff. Their entries go with them through the foreign keys. Must be
// called within a transaction.
func (d *Database) DeleteMissingObjects(tx *sql.Tx, root string, cutoff time.Time) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_missing", start, err) }()

	// Paths under root sort between "root/" and "root0" ('0' follows '/').
	base := strings.TrimSuffix(filepath.Clean(root), "/")
	var result sql.Result
	result, err = tx.ExecContext(context.Background(),
		"DELETE FROM objects WHERE updated_at < ? AND path >= ? AND path < ?",
		cutoff.Unix(), base+"/", base+"0",
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteObject removes one object and its entries.
func (d *Database) DeleteObject(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_missing", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM objects WHERE id = ?", id)
	return err
}
