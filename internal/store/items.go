package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/engram/internal/item"
)

// SaveItem upserts a context item and appends the corresponding change
// row (CREATE on first write of the key, UPDATE afterwards) in one
// transaction. Either both writes commit or neither does.
//
// The item's key is NFC-normalized before storage. Empty priority and
// channel fall back to their defaults. Returns the appended change with
// its assigned sequence number.
func (s *Store) SaveItem(ctx context.Context, it item.Item) (item.Change, error) {
	if err := it.Validate(); err != nil {
		return item.Change{}, fmt.Errorf("save item: %w", err)
	}

	it.Key = item.NormalizeKey(it.Key)
	if it.Priority == "" {
		it.Priority = item.PriorityNormal
	}
	if it.Channel == "" {
		it.Channel = item.DefaultChannel
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return item.Change{}, fmt.Errorf("save item: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Determine CREATE vs UPDATE before the upsert.
	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM context_items
		WHERE session_id = ? AND key = ?
	`, it.SessionID, it.Key).Scan(&exists)
	if err != nil {
		return item.Change{}, fmt.Errorf("save item: check existing: %w", err)
	}

	changeType := item.ChangeCreate
	if exists > 0 {
		changeType = item.ChangeUpdate
	}

	ts := s.timestamp()

	// created_at is preserved across updates; everything else follows
	// the incoming item.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO context_items
		(session_id, key, value, category, priority, channel, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value      = excluded.value,
			category   = excluded.category,
			priority   = excluded.priority,
			channel    = excluded.channel,
			updated_at = excluded.updated_at
	`,
		it.SessionID,
		it.Key,
		it.Value,
		it.Category,
		string(it.Priority),
		it.Channel,
		ts,
		ts,
	)
	if err != nil {
		return item.Change{}, fmt.Errorf("save item: upsert: %w", err)
	}

	change := item.Change{
		SessionID: it.SessionID,
		Key:       it.Key,
		Type:      changeType,
		Category:  it.Category,
		Priority:  it.Priority,
		Channel:   it.Channel,
	}

	seq, err := appendChange(ctx, tx, change, ts)
	if err != nil {
		return item.Change{}, fmt.Errorf("save item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return item.Change{}, fmt.Errorf("save item: commit: %w", err)
	}

	change.Seq = seq
	change.CreatedAt = parseTimestamp(ts)
	return change, nil
}

// DeleteItem removes a context item and appends a DELETE change carrying
// the item's last known classification fields, in one transaction.
//
// Returns found=false (and writes nothing) when no item exists for the
// key; deleting a missing item is not an error and produces no change.
func (s *Store) DeleteItem(ctx context.Context, sessionID, key string) (change item.Change, found bool, err error) {
	key = item.NormalizeKey(key)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return item.Change{}, false, fmt.Errorf("delete item: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Capture the classification fields before the row disappears; the
	// DELETE change must stay filterable without the item.
	var category, priority, channel string
	err = tx.QueryRowContext(ctx, `
		SELECT category, priority, channel FROM context_items
		WHERE session_id = ? AND key = ?
	`, sessionID, key).Scan(&category, &priority, &channel)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Change{}, false, nil
	}
	if err != nil {
		return item.Change{}, false, fmt.Errorf("delete item: read existing: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM context_items
		WHERE session_id = ? AND key = ?
	`, sessionID, key)
	if err != nil {
		return item.Change{}, false, fmt.Errorf("delete item: delete: %w", err)
	}

	ts := s.timestamp()
	change = item.Change{
		SessionID: sessionID,
		Key:       key,
		Type:      item.ChangeDelete,
		Category:  category,
		Priority:  item.Priority(priority),
		Channel:   channel,
	}

	seq, err := appendChange(ctx, tx, change, ts)
	if err != nil {
		return item.Change{}, false, fmt.Errorf("delete item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return item.Change{}, false, fmt.Errorf("delete item: commit: %w", err)
	}

	change.Seq = seq
	change.CreatedAt = parseTimestamp(ts)
	return change, true, nil
}

// GetItem returns the item for (sessionID, key), if present.
func (s *Store) GetItem(ctx context.Context, sessionID, key string) (item.Item, bool, error) {
	key = item.NormalizeKey(key)

	var it item.Item
	var priority, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, key, value, category, priority, channel, created_at, updated_at
		FROM context_items
		WHERE session_id = ? AND key = ?
	`, sessionID, key).Scan(
		&it.SessionID,
		&it.Key,
		&it.Value,
		&it.Category,
		&priority,
		&it.Channel,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, false, nil
	}
	if err != nil {
		return item.Item{}, false, fmt.Errorf("get item: %w", err)
	}

	it.Priority = item.Priority(priority)
	it.CreatedAt = parseTimestamp(createdAt)
	it.UpdatedAt = parseTimestamp(updatedAt)
	return it, true, nil
}

// ListItems returns all items for a session ordered by key.
// Returns an empty slice (not nil) when the session has no items.
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]item.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, key, value, category, priority, channel, created_at, updated_at
		FROM context_items
		WHERE session_id = ?
		ORDER BY key ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []item.Item{}
	for rows.Next() {
		var it item.Item
		var priority, createdAt, updatedAt string
		if err := rows.Scan(
			&it.SessionID,
			&it.Key,
			&it.Value,
			&it.Category,
			&priority,
			&it.Channel,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("list items: scan: %w", err)
		}
		it.Priority = item.Priority(priority)
		it.CreatedAt = parseTimestamp(createdAt)
		it.UpdatedAt = parseTimestamp(updatedAt)
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: iterate: %w", err)
	}

	return items, nil
}

// appendChange inserts one change row inside the caller's transaction
// and returns the assigned sequence number.
func appendChange(ctx context.Context, tx *sql.Tx, c item.Change, ts string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO context_changes
		(session_id, key, change_type, category, priority, channel, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		c.SessionID,
		c.Key,
		string(c.Type),
		c.Category,
		string(c.Priority),
		c.Channel,
		ts,
	)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append change: last insert id: %w", err)
	}
	return seq, nil
}
