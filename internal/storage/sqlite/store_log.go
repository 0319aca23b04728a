package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// AppendLog appends one entry to the session history. Entries are immutable
// once written.
func (s *Store) AppendLog(ctx context.Context, entry storage.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("log entry id is required")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO log_entries (id, session_id, message, type, character_id, details, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Message, entry.Type, entry.CharacterID,
		entry.DetailsJSON, toMillis(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}

	s.publish(watch.CollectionLog, watch.OpPut, entry.ID)
	return nil
}

// ListLog returns a session's history ordered by recorded timestamp, oldest
// first. The recorded timestamp is authoritative, not arrival order.
func (s *Store) ListLog(ctx context.Context, sessionID string) ([]storage.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, session_id, message, type, character_id, details, ts
		FROM log_entries WHERE session_id = ? ORDER BY ts, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	var entries []storage.LogEntry
	for rows.Next() {
		var (
			entry storage.LogEntry
			ts    int64
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Message, &entry.Type,
			&entry.CharacterID, &entry.DetailsJSON, &ts); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry.Timestamp = fromMillis(ts)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	return entries, nil
}
