package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/engram/internal/item"
)

// changeColumns is the canonical column list for change queries; every
// reader goes through scanChanges so rows always decode the same way.
const changeColumns = `seq, session_id, key, change_type, category, priority, channel, created_at`

// MaxSeq returns the highest sequence number in the change log, or 0
// when the log is empty. New watchers start from this watermark.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM context_changes`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

// ChangesSince returns all changes for a session with seq > after, in
// ascending seq order. Returns an empty slice (not nil) when there is
// nothing unread.
func (s *Store) ChangesSince(ctx context.Context, sessionID string, after int64) ([]item.Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM context_changes
		WHERE session_id = ? AND seq > ?
		ORDER BY seq ASC
	`, sessionID, after)
	if err != nil {
		return nil, fmt.Errorf("changes since: %w", err)
	}
	return scanChanges(rows)
}

// scanChanges drains rows into a slice of changes. Closes rows.
func scanChanges(rows *sql.Rows) ([]item.Change, error) {
	defer rows.Close()

	changes := []item.Change{}
	for rows.Next() {
		var c item.Change
		var changeType, priority, createdAt string
		if err := rows.Scan(
			&c.Seq,
			&c.SessionID,
			&c.Key,
			&changeType,
			&c.Category,
			&priority,
			&c.Channel,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Type = item.ChangeType(changeType)
		c.Priority = item.Priority(priority)
		c.CreatedAt = parseTimestamp(createdAt)
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	return changes, nil
}
