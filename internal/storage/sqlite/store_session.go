package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/domain/table"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// PutSession upserts the session record and replaces its seat bindings.
func (s *Store) PutSession(ctx context.Context, sess table.GameSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, gm_user_id, gm_fate_pool)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			gm_user_id = excluded.gm_user_id,
			gm_fate_pool = excluded.gm_fate_pool`,
		sess.ID, sess.GMUserID, sess.GMFatePool,
	); err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear seats: %w", err)
	}
	for characterID, userID := range sess.Seats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO seats (session_id, character_id, user_id) VALUES (?, ?, ?)`,
			sess.ID, characterID, userID); err != nil {
			return fmt.Errorf("put seat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionSessions, watch.OpPut, sess.ID)
	return nil
}

// GetSession loads the session with its seat bindings.
func (s *Store) GetSession(ctx context.Context, id string) (table.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return table.GameSession{}, err
	}

	var sess table.GameSession
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, gm_user_id, gm_fate_pool FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.GMUserID, &sess.GMFatePool)
	if errors.Is(err, sql.ErrNoRows) {
		return table.GameSession{}, storage.ErrNotFound
	}
	if err != nil {
		return table.GameSession{}, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT character_id, user_id FROM seats WHERE session_id = ?`, id)
	if err != nil {
		return table.GameSession{}, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	sess.Seats = make(map[string]string)
	for rows.Next() {
		var characterID, userID string
		if err := rows.Scan(&characterID, &userID); err != nil {
			return table.GameSession{}, fmt.Errorf("scan seat: %w", err)
		}
		sess.Seats[characterID] = userID
	}
	if err := rows.Err(); err != nil {
		return table.GameSession{}, fmt.Errorf("list seats: %w", err)
	}
	return sess, nil
}

// ClaimGM binds the GM seat, first writer wins. The current holder is read
// inside the transaction, so two concurrent claims cannot both succeed.
func (s *Store) ClaimGM(ctx context.Context, sessionID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT gm_user_id FROM sessions WHERE id = ?`, sessionID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read gm seat: %w", err)
	}
	if err := table.CheckGMClaim(current, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET gm_user_id = ? WHERE id = ?`, userID, sessionID); err != nil {
		return fmt.Errorf("claim gm: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	return nil
}

// ResignGM clears the GM seat if held by the given user; otherwise a no-op.
func (s *Store) ResignGM(ctx context.Context, sessionID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET gm_user_id = '' WHERE id = ? AND gm_user_id = ?`,
		sessionID, userID)
	if err != nil {
		return fmt.Errorf("resign gm: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	}
	return nil
}

// ClaimSeat binds a character to a player, first writer wins.
func (s *Store) ClaimSeat(ctx context.Context, sessionID, characterID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seats := map[string]string{}
	var holder string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM seats WHERE session_id = ? AND character_id = ?`,
		sessionID, characterID).Scan(&holder)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read seat: %w", err)
	}
	if err == nil {
		seats[characterID] = holder
	}
	if err := table.CheckSeatClaim(seats, characterID, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO seats (session_id, character_id, user_id) VALUES (?, ?, ?)
		ON CONFLICT(session_id, character_id) DO UPDATE SET user_id = excluded.user_id`,
		sessionID, characterID, userID); err != nil {
		return fmt.Errorf("claim seat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	return nil
}

// ReleaseSeat unbinds a character. Releasing an unheld seat is a no-op.
func (s *Store) ReleaseSeat(ctx context.Context, sessionID, characterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM seats WHERE session_id = ? AND character_id = ?`,
		sessionID, characterID)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	}
	return nil
}

// IncrementGMFatePool applies a field-level atomic increment to the GM pool.
func (s *Store) IncrementGMFatePool(ctx context.Context, sessionID string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET gm_fate_pool = gm_fate_pool + ? WHERE id = ?`,
		delta, sessionID)
	if err != nil {
		return fmt.Errorf("increment gm fate pool: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	return nil
}

// SetThemes stores the campaign theme aspects on the session record.
func (s *Store) SetThemes(ctx context.Context, sessionID string, themes []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(themes)
	if err != nil {
		return fmt.Errorf("encode themes: %w", err)
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET themes = ? WHERE id = ?`, string(raw), sessionID)
	if err != nil {
		return fmt.Errorf("set themes: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionSessions, watch.OpPut, sessionID)
	return nil
}

// GetThemes loads the campaign theme aspects.
func (s *Store) GetThemes(ctx context.Context, sessionID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT themes FROM sessions WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get themes: %w", err)
	}

	var themes []string
	if err := json.Unmarshal([]byte(raw), &themes); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}
	return themes, nil
}
