// Package db persists the sync cache in an embedded SQLite database.
//
// The database is the durable side of the cache: the in-memory store is
// loaded from it at startup and written back after every reconciled command
// or refresh. View state lives in the same file so that a view's sort, group
// and order survive restarts.
//
// Architecture:
//   - Database file: cache_path from the config (default ~/.cache/todosync/cache.db)
//   - WAL mode: the daemon and one-shot CLI commands share the file
//   - Schema: entities, sync_state, view_state tables
//
// Entities are stored as their JSON wire bodies keyed by (kind, id), with a
// position column preserving the snapshot's collection order.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mschirtzinger/todosync/internal/schema"
	"github.com/mschirtzinger/todosync/internal/view"
)

const cursorKey = "cursor"

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path, creating the
// parent directory if needed. The schema is created by InitSchema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	database, err := db.Open(cfg.CachePath)
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	// WAL lets the daemon write while CLI invocations read.
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist. It is
// idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		body TEXT NOT NULL,  -- JSON wire body
		PRIMARY KEY (kind, id)
	);

	CREATE TABLE IF NOT EXISTS sync_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS view_state (
		view TEXT PRIMARY KEY,  -- namespaced "view:<id>"
		sort_key TEXT NOT NULL,
		group_key TEXT NOT NULL,
		order_dir TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_position ON entities(kind, position);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// SaveSnapshot replaces the persisted snapshot in one transaction.
func (db *DB) SaveSnapshot(ctx context.Context, snap schema.Snapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entities"); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entities (kind, id, position, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	err = snap.Each(func(kind schema.Kind, pos int, e schema.Entity) error {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", kind, e.EntityID(), err)
		}
		if _, err := stmt.ExecContext(ctx, string(kind), e.EntityID(), pos, string(body)); err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", kind, e.EntityID(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := setState(ctx, tx, cursorKey, snap.Cursor); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadSnapshot reads the persisted snapshot. It reports false when nothing
// was ever saved.
func (db *DB) LoadSnapshot(ctx context.Context) (schema.Snapshot, bool, error) {
	cursor, ok, err := db.CursorContext(ctx)
	if err != nil || !ok {
		return schema.Snapshot{}, false, err
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT kind, body FROM entities ORDER BY kind, position`)
	if err != nil {
		return schema.Snapshot{}, false, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	snap := schema.Snapshot{Cursor: cursor}
	for rows.Next() {
		var kind, body string
		if err := rows.Scan(&kind, &body); err != nil {
			return schema.Snapshot{}, false, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := snap.AppendJSON(schema.Kind(kind), []byte(body)); err != nil {
			return schema.Snapshot{}, false, err
		}
	}
	if err := rows.Err(); err != nil {
		return schema.Snapshot{}, false, fmt.Errorf("error iterating entities: %w", err)
	}
	return snap, true, nil
}

// Cursor returns the persisted sync cursor.
func (db *DB) Cursor() (string, bool, error) {
	return db.CursorContext(context.Background())
}

// CursorContext returns the persisted sync cursor with context support.
func (db *DB) CursorContext(ctx context.Context) (string, bool, error) {
	var cursor string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, cursorKey).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cursor: %w", err)
	}
	return cursor, true, nil
}

// LastSaved returns when the cursor was last written.
func (db *DB) LastSaved(ctx context.Context) (time.Time, bool, error) {
	var updated string
	err := db.conn.QueryRowContext(ctx, `SELECT updated_at FROM sync_state WHERE key = ?`, cursorKey).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read sync state: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid sync state timestamp %q: %w", updated, err)
	}
	return t, true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setState(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, `
	INSERT INTO sync_state (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// EntityCounts returns the number of persisted entities per kind.
func (db *DB) EntityCounts() (map[schema.Kind]int, error) {
	return db.EntityCountsContext(context.Background())
}

// EntityCountsContext returns the number of persisted entities per kind with
// context support.
func (db *DB) EntityCountsContext(ctx context.Context) (map[schema.Kind]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, COUNT(*) FROM entities GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	defer rows.Close()

	counts := make(map[schema.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[schema.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// LoadViewState implements view.StateStore.
func (db *DB) LoadViewState(ctx context.Context, id view.ViewID) (view.State, bool, error) {
	var s view.State
	var sortKey, groupKey, orderDir string
	err := db.conn.QueryRowContext(ctx,
		`SELECT sort_key, group_key, order_dir FROM view_state WHERE view = ?`, id.Key(),
	).Scan(&sortKey, &groupKey, &orderDir)
	if errors.Is(err, sql.ErrNoRows) {
		return s, false, nil
	}
	if err != nil {
		return s, false, fmt.Errorf("failed to read view state: %w", err)
	}
	s = view.State{Sort: view.SortKey(sortKey), Group: view.GroupKey(groupKey), Order: view.Order(orderDir)}
	return s, true, nil
}

// SaveViewState implements view.StateStore.
func (db *DB) SaveViewState(ctx context.Context, id view.ViewID, s view.State) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO view_state (view, sort_key, group_key, order_dir, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(view) DO UPDATE SET
		sort_key = excluded.sort_key,
		group_key = excluded.group_key,
		order_dir = excluded.order_dir,
		updated_at = excluded.updated_at
	`, id.Key(), string(s.Sort), string(s.Group), string(s.Order), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

// ViewStates returns every persisted view state keyed by view id.
func (db *DB) ViewStates(ctx context.Context) (map[view.ViewID]view.State, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT view, sort_key, group_key, order_dir FROM view_state ORDER BY view`)
	if err != nil {
		return nil, fmt.Errorf("failed to query view states: %w", err)
	}
	defer rows.Close()

	states := make(map[view.ViewID]view.State)
	for rows.Next() {
		var key, sortKey, groupKey, orderDir string
		if err := rows.Scan(&key, &sortKey, &groupKey, &orderDir); err != nil {
			return nil, fmt.Errorf("failed to scan view state: %w", err)
		}
		id, err := view.ParseViewID(key)
		if err != nil {
			continue
		}
		states[id] = view.State{Sort: view.SortKey(sortKey), Group: view.GroupKey(groupKey), Order: view.Order(orderDir)}
	}
	return states, rows.Err()
}
