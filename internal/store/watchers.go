package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/engram/internal/item"
)

// WatcherRecord is the durable state of one watcher subscription.
// Filters is the watcher's filter spec as JSON; the store treats it as
// an opaque blob, the watch package owns its shape.
type WatcherRecord struct {
	ID        string
	SessionID string
	Filters   string
	Cursor    int64
	Active    bool
	CreatedAt time.Time
}

// CreateWatcher inserts a watcher row with its cursor initialized to
// the log's current maximum sequence number, in one transaction. The
// watcher therefore never observes history predating its creation.
func (s *Store) CreateWatcher(ctx context.Context, id, sessionID, filtersJSON string) (WatcherRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WatcherRecord{}, fmt.Errorf("create watcher: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var cursor int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM context_changes`,
	).Scan(&cursor)
	if err != nil {
		return WatcherRecord{}, fmt.Errorf("create watcher: watermark: %w", err)
	}

	ts := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO watchers (id, session_id, filters, cursor, active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, id, sessionID, filtersJSON, cursor, ts)
	if err != nil {
		return WatcherRecord{}, fmt.Errorf("create watcher: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return WatcherRecord{}, fmt.Errorf("create watcher: commit: %w", err)
	}

	return WatcherRecord{
		ID:        id,
		SessionID: sessionID,
		Filters:   filtersJSON,
		Cursor:    cursor,
		Active:    true,
		CreatedAt: parseTimestamp(ts),
	}, nil
}

// GetWatcher returns the watcher row for id.
// Returns ErrWatcherNotFound when no such watcher exists.
func (s *Store) GetWatcher(ctx context.Context, id string) (WatcherRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, filters, cursor, active, created_at
		FROM watchers
		WHERE id = ?
	`, id)

	rec, err := scanWatcher(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return WatcherRecord{}, ErrWatcherNotFound
	}
	if err != nil {
		return WatcherRecord{}, fmt.Errorf("get watcher: %w", err)
	}
	return rec, nil
}

// ListWatchers returns all watchers for a session in insertion order
// (created_at ASC, id ASC tiebreak for a stable order within a call).
// Returns an empty slice (not nil) when the session has none.
func (s *Store) ListWatchers(ctx context.Context, sessionID string) ([]WatcherRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, filters, cursor, active, created_at
		FROM watchers
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()

	records := []WatcherRecord{}
	for rows.Next() {
		rec, err := scanWatcher(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list watchers: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list watchers: iterate: %w", err)
	}

	return records, nil
}

// StopWatcher sets active=false for the watcher.
// One-way: there is no operation that sets active back to true.
// Stopping an already-stopped watcher is a no-op, not an error.
// Returns ErrWatcherNotFound when no such watcher exists.
func (s *Store) StopWatcher(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE watchers SET active = 0 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("stop watcher: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("stop watcher: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrWatcherNotFound
	}
	return nil
}

// PollWatcher reads the watcher's unread change range and advances its
// cursor, as one transaction:
//
//  1. Load the watcher row (ErrWatcherNotFound if absent).
//  2. If the watcher is stopped, return its record with no changes and
//     no cursor movement; the caller maps this to its stopped error.
//  3. Read all changes for the watcher's session with seq > cursor,
//     ascending.
//  4. Advance the cursor to the highest seq read. If nothing was read,
//     the cursor is untouched.
//
// The returned record carries the pre-poll cursor. Because the read and
// the advance share a transaction, two concurrent polls of the same
// watcher can never both claim the same unread range.
func (s *Store) PollWatcher(ctx context.Context, id string) (WatcherRecord, []item.Change, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WatcherRecord{}, nil, fmt.Errorf("poll watcher: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, session_id, filters, cursor, active, created_at
		FROM watchers
		WHERE id = ?
	`, id)

	rec, err := scanWatcher(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return WatcherRecord{}, nil, ErrWatcherNotFound
	}
	if err != nil {
		return WatcherRecord{}, nil, fmt.Errorf("poll watcher: %w", err)
	}

	if !rec.Active {
		// Stopped watchers never advance.
		return rec, nil, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM context_changes
		WHERE session_id = ? AND seq > ?
		ORDER BY seq ASC
	`, rec.SessionID, rec.Cursor)
	if err != nil {
		return WatcherRecord{}, nil, fmt.Errorf("poll watcher: read changes: %w", err)
	}

	changes, err := scanChanges(rows)
	if err != nil {
		return WatcherRecord{}, nil, fmt.Errorf("poll watcher: %w", err)
	}

	if len(changes) > 0 {
		// Advance past everything read, matching or not; rows are seq
		// ascending so the last one holds the maximum.
		next := changes[len(changes)-1].Seq
		if _, err := tx.ExecContext(ctx, `
			UPDATE watchers SET cursor = ? WHERE id = ?
		`, next, rec.ID); err != nil {
			return WatcherRecord{}, nil, fmt.Errorf("poll watcher: advance cursor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return WatcherRecord{}, nil, fmt.Errorf("poll watcher: commit: %w", err)
	}

	return rec, changes, nil
}

// scanWatcher decodes one watcher row via the given Scan function.
func scanWatcher(scan func(...any) error) (WatcherRecord, error) {
	var rec WatcherRecord
	var active int
	var createdAt string
	if err := scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Filters,
		&rec.Cursor,
		&active,
		&createdAt,
	); err != nil {
		return WatcherRecord{}, err
	}
	rec.Active = active != 0
	rec.CreatedAt = parseTimestamp(createdAt)
	return rec, nil
}
