package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

func chainKey(chain []string) string {
	return strings.Join(chain, "\x00")
}

// ResolveContainerChain returns the id of the last container of chain,
// creating any missing containers from the root down. The empty chain is
// the root. Calling it again with the same chain returns the same id.
func (d *Database) ResolveContainerChain(ctx context.Context, chain []string) (int64, error) {
	if len(chain) == 0 {
		return RootContainerID, nil
	}
	for i, name := range chain {
		if strings.TrimSpace(name) == "" {
			return 0, fmt.Errorf("segment %d of %q: %w", i, strings.Join(chain, "/"), ErrEmptySegment)
		}
	}

	key := chainKey(chain)
	d.mu.RLock()
	id, ok := d.chains[key]
	d.mu.RUnlock()
	if ok {
		return id, nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("resolve_chain", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another writer may have resolved it while we waited.
	if id, ok := d.chains[key]; ok {
		return id, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tx *sql.Tx
	if tx, err = d.db.BeginTx(ctx, nil); err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	parent := RootContainerID
	for _, name := range chain {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO containers (parent_id, name) VALUES (?, ?) ON CONFLICT(parent_id, name) DO NOTHING",
			parent, name); err != nil {
			return 0, err
		}
		if err = tx.QueryRowContext(ctx,
			"SELECT id FROM containers WHERE parent_id = ? AND name = ?", parent, name,
		).Scan(&parent); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	d.chains[key] = parent
	return parent, nil
}

// GetContainer returns a container with its child and entry counts.
func (d *Database) GetContainer(ctx context.Context, id int64) (*Container, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_children", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c Container
	var parent sql.NullInt64
	err = d.db.QueryRowContext(ctx, `
	SELECT c.id, c.parent_id, c.name,
		(SELECT COUNT(*) FROM containers WHERE parent_id = c.id),
		(SELECT COUNT(*) FROM entries WHERE container_id = c.id)
	FROM containers c WHERE c.id = ?
	`, id).Scan(&c.ID, &parent, &c.Name, &c.ChildCount, &c.EntryCount)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ParentID = parent.Int64
	return &c, nil
}

// ListChildren returns the child containers of id ordered by name.
func (d *Database) ListChildren(ctx context.Context, id int64) ([]Container, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_children", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
	SELECT c.id, c.name,
		(SELECT COUNT(*) FROM containers WHERE parent_id = c.id),
		(SELECT COUNT(*) FROM entries WHERE container_id = c.id)
	FROM containers c WHERE c.parent_id = ?
	ORDER BY c.name COLLATE NOCASE
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Container
	for rows.Next() {
		c := Container{ParentID: id}
		if err = rows.Scan(&c.ID, &c.Name, &c.ChildCount, &c.EntryCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	err = rows.Err()
	return out, err
}

// ContainerPath returns the names from the root down to id.
func (d *Database) ContainerPath(ctx context.Context, id int64) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
	WITH RECURSIVE up(id, parent_id, name, depth) AS (
		SELECT id, parent_id, name, 0 FROM containers WHERE id = ?
		UNION ALL
		SELECT c.id, c.parent_id, c.name, up.depth + 1
		FROM containers c JOIN up ON c.id = up.parent_id
	)
	SELECT name FROM up WHERE id != 0 ORDER BY depth DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PruneEmptyContainers deletes containers without entries or children,
// repeating until the tree has no empty leaves. The root is kept.
func (d *Database) PruneEmptyContainers(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune_containers", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	var total int64
	for {
		var result sql.Result
		result, err = d.db.ExecContext(ctx, `
		DELETE FROM containers
		WHERE id != 0
		  AND NOT EXISTS (SELECT 1 FROM entries e WHERE e.container_id = containers.id)
		  AND NOT EXISTS (SELECT 1 FROM containers c WHERE c.parent_id = containers.id)
		`)
		if err != nil {
			return total, err
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			break
		}
		total += n
	}

	if total > 0 {
		d.chains = make(map[string]int64)
	}
	return total, nil
}
