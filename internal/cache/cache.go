// Package cache provides the local SQLite store for synced work items.
//
// The cache is a single work_items table keyed by the remote work-item ID.
// It is the read side of the dashboard: the reconciler writes to it after
// each sync pass and the CLI/dashboard read from it directly.
//
// The database runs in embedded mode using ncruces/go-sqlite3 with WAL
// enabled. Batched writes (upserts and deletes) run inside a single
// transaction so a sync pass is durable as a unit.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"workdash/internal/workitem"
)

// Cache wraps the SQLite connection holding cached work items.
type Cache struct {
	conn *sql.DB
	path string
}

// Open creates a new cache connection at the specified path.
//
// If the database doesn't exist, it is created; InitSchema must still be
// called before first use. The caller MUST call Close() when done.
//
// Example:
//
//	store, err := cache.Open("work_items.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	// Single-user dashboard, but the serve command reads while a manual
	// sync writes, so keep WAL on.
	c := &Cache{conn: conn, path: path}

	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := c.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return c, nil
}

// Path returns the filesystem location of the cache database.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}

	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}

	c.conn = nil
	return nil
}

// InitSchema creates the work_items table if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (c *Cache) InitSchema() error {
	return c.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (c *Cache) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_items (
		id          INTEGER PRIMARY KEY,
		item_type   TEXT,
		title       TEXT,
		assigned_to TEXT,
		state       TEXT,
		tags        TEXT,
		start_date  TEXT,
		target_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_work_items_state ON work_items(state);
	CREATE INDEX IF NOT EXISTS idx_work_items_assigned ON work_items(assigned_to);
	`

	if _, err := c.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// UpsertItems inserts or replaces a batch of work items keyed by ID.
//
// The whole batch runs in one transaction: either every record lands or
// none do. Records that collide with existing rows replace them entirely
// (no field-level merge).
func (c *Cache) UpsertItems(items []*workitem.WorkItem) error {
	return c.UpsertItemsContext(context.Background(), items)
}

// UpsertItemsContext inserts or replaces a batch with context support.
func (c *Cache) UpsertItemsContext(ctx context.Context, items []*workitem.WorkItem) error {
	if len(items) == 0 {
		return nil
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid work item: %w", err)
		}
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO work_items (
		id, item_type, title, assigned_to, state, tags, start_date, target_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		item_type = excluded.item_type,
		title = excluded.title,
		assigned_to = excluded.assigned_to,
		state = excluded.state,
		tags = excluded.tags,
		start_date = excluded.start_date,
		target_date = excluded.target_date
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			item.ID,
			nullString(item.Type),
			nullString(item.Title),
			nullString(item.AssignedTo),
			nullString(item.State),
			nullString(item.Tags),
			timeToNullString(item.StartDate),
			timeToNullString(item.TargetDate),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert work item %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert batch: %w", err)
	}

	return nil
}

// DeleteItems removes a batch of work items by ID.
//
// The batch runs in one transaction. IDs that don't exist are ignored
// (idempotent).
func (c *Cache) DeleteItems(ids []int) error {
	return c.DeleteItemsContext(context.Background(), ids)
}

// DeleteItemsContext removes a batch with context support.
func (c *Cache) DeleteItemsContext(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM work_items WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete work item %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete batch: %w", err)
	}

	return nil
}

// ListIDs returns the IDs of all cached work items.
func (c *Cache) ListIDs() ([]int, error) {
	return c.ListIDsContext(context.Background())
}

// ListIDsContext returns all cached IDs with context support.
func (c *Cache) ListIDsContext(ctx context.Context) ([]int, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT id FROM work_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached IDs: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating IDs: %w", err)
	}

	return ids, nil
}

// ListItems returns all cached work items ordered by ID.
func (c *Cache) ListItems() ([]*workitem.WorkItem, error) {
	return c.ListItemsContext(context.Background())
}

// ListItemsContext returns all cached work items with context support.
func (c *Cache) ListItemsContext(ctx context.Context) ([]*workitem.WorkItem, error) {
	query := `
	SELECT id, item_type, title, assigned_to, state, tags, start_date, target_date
	FROM work_items
	ORDER BY id
	`

	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItem retrieves a single cached work item by ID.
// Returns sql.ErrNoRows if the item is not cached.
func (c *Cache) GetItem(id int) (*workitem.WorkItem, error) {
	return c.GetItemContext(context.Background(), id)
}

// GetItemContext retrieves a single item with context support.
func (c *Cache) GetItemContext(ctx context.Context, id int) (*workitem.WorkItem, error) {
	query := `
	SELECT id, item_type, title, assigned_to, state, tags, start_date, target_date
	FROM work_items
	WHERE id = ?
	`

	row := c.conn.QueryRowContext(ctx, query, id)

	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CountItems returns the total number of cached work items.
func (c *Cache) CountItems() (int, error) {
	return c.CountItemsContext(context.Background())
}

// CountItemsContext returns the total count with context support.
func (c *Cache) CountItemsContext(ctx context.Context) (int, error) {
	var count int
	err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count work items: %w", err)
	}
	return count, nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*workitem.WorkItem, error) {
	var item workitem.WorkItem
	var itemType, title, assignedTo, state, tags sql.NullString
	var startDate, targetDate sql.NullString

	err := row.Scan(
		&item.ID,
		&itemType,
		&title,
		&assignedTo,
		&state,
		&tags,
		&startDate,
		&targetDate,
	)
	if err != nil {
		return nil, err
	}

	item.Type = itemType.String
	item.Title = title.String
	item.AssignedTo = assignedTo.String
	item.State = state.String
	item.Tags = tags.String
	item.StartDate = nullStringToTime(startDate)
	item.TargetDate = nullStringToTime(targetDate)

	return &item, nil
}

// scanItems is a helper to scan multiple work items from query results.
func scanItems(rows *sql.Rows) ([]*workitem.WorkItem, error) {
	var items []*workitem.WorkItem

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work items: %w", err)
	}

	return items, nil
}

// nullString converts an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
