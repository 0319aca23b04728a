package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// PutPoolAspect upserts a free-invoke pool aspect.
func (s *Store) PutPoolAspect(ctx context.Context, a storage.PoolAspect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("aspect id is required")
	}
	if a.FreeInvokes < 0 {
		return fmt.Errorf("free invokes cannot be negative")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO pool_aspects (id, owner_type, owner_id, name, free_invokes, created_by, is_temporary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			free_invokes = excluded.free_invokes,
			is_temporary = excluded.is_temporary`,
		a.ID, string(a.OwnerType), a.OwnerID, a.Name, a.FreeInvokes, a.CreatedBy, boolToInt(a.IsTemporary),
	)
	if err != nil {
		return fmt.Errorf("put pool aspect: %w", err)
	}

	s.publish(watch.CollectionAspects, watch.OpPut, a.ID)
	return nil
}

// GetPoolAspect loads one pool aspect.
func (s *Store) GetPoolAspect(ctx context.Context, id string) (storage.PoolAspect, error) {
	if err := ctx.Err(); err != nil {
		return storage.PoolAspect{}, err
	}
	var (
		a         storage.PoolAspect
		ownerType string
		temporary int
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, owner_type, owner_id, name, free_invokes, created_by, is_temporary
		FROM pool_aspects WHERE id = ?`, id).
		Scan(&a.ID, &ownerType, &a.OwnerID, &a.Name, &a.FreeInvokes, &a.CreatedBy, &temporary)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.PoolAspect{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.PoolAspect{}, fmt.Errorf("get pool aspect: %w", err)
	}
	a.OwnerType = storage.PoolOwner(ownerType)
	a.IsTemporary = temporary != 0
	return a, nil
}

// ListPoolAspects returns an owner's pool aspects in insertion order.
func (s *Store) ListPoolAspects(ctx context.Context, owner storage.PoolOwner, ownerID string) ([]storage.PoolAspect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, owner_type, owner_id, name, free_invokes, created_by, is_temporary
		FROM pool_aspects WHERE owner_type = ? AND owner_id = ? ORDER BY rowid`,
		string(owner), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pool aspects: %w", err)
	}
	defer rows.Close()

	var aspects []storage.PoolAspect
	for rows.Next() {
		var (
			a         storage.PoolAspect
			ownerType string
			temporary int
		)
		if err := rows.Scan(&a.ID, &ownerType, &a.OwnerID, &a.Name, &a.FreeInvokes, &a.CreatedBy, &temporary); err != nil {
			return nil, fmt.Errorf("scan pool aspect: %w", err)
		}
		a.OwnerType = storage.PoolOwner(ownerType)
		a.IsTemporary = temporary != 0
		aspects = append(aspects, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pool aspects: %w", err)
	}
	return aspects, nil
}

// DeletePoolAspect removes a pool aspect.
func (s *Store) DeletePoolAspect(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pool_aspects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pool aspect: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionAspects, watch.OpDelete, id)
	return nil
}

// AddFreeInvokes atomically adjusts a pool, floored at zero. Consumption of
// the last free invoke leaves the pool at zero; further consumption is a
// no-op on the stored value.
func (s *Store) AddFreeInvokes(ctx context.Context, id string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE pool_aspects SET free_invokes = MAX(free_invokes + ?, 0) WHERE id = ?`,
		delta, id)
	if err != nil {
		return fmt.Errorf("add free invokes: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionAspects, watch.OpPut, id)
	return nil
}

// listCharacterSituational maps a character's pool aspects into the domain
// shape embedded on the character record.
func (s *Store) listCharacterSituational(ctx context.Context, characterID string) ([]character.SituationalAspect, error) {
	aspects, err := s.ListPoolAspects(ctx, storage.PoolOwnerCharacter, characterID)
	if err != nil {
		return nil, err
	}
	if len(aspects) == 0 {
		return nil, nil
	}
	out := make([]character.SituationalAspect, 0, len(aspects))
	for _, a := range aspects {
		out = append(out, character.SituationalAspect{
			ID:          a.ID,
			Name:        a.Name,
			FreeInvokes: a.FreeInvokes,
			CreatedBy:   a.CreatedBy,
			IsTemporary: a.IsTemporary,
		})
	}
	return out, nil
}
