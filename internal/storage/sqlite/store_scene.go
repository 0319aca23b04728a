package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/domain/scene"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// PutScene upserts a scene and replaces its aspect rows in one transaction.
func (s *Store) PutScene(ctx context.Context, sc scene.Scene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sc.ID) == "" {
		return fmt.Errorf("scene id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scenes (id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		sc.ID, sc.Name, sc.Status.String(), toMillis(sc.CreatedAt), toMillis(sc.UpdatedAt),
	); err != nil {
		return fmt.Errorf("put scene: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pool_aspects WHERE owner_type = ? AND owner_id = ?`,
		string(storage.PoolOwnerScene), sc.ID); err != nil {
		return fmt.Errorf("clear scene aspects: %w", err)
	}
	for _, a := range sc.Aspects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pool_aspects (id, owner_type, owner_id, name, free_invokes, created_by, is_temporary)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, string(storage.PoolOwnerScene), sc.ID, a.Name, a.FreeInvokes, a.CreatedBy, boolToInt(a.IsTemporary),
		); err != nil {
			return fmt.Errorf("put scene aspect: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionScenes, watch.OpPut, sc.ID)
	return nil
}

func (s *Store) loadSceneAspects(ctx context.Context, sceneID string) ([]scene.Aspect, error) {
	pool, err := s.ListPoolAspects(ctx, storage.PoolOwnerScene, sceneID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}
	aspects := make([]scene.Aspect, 0, len(pool))
	for _, a := range pool {
		aspects = append(aspects, scene.Aspect{
			ID:          a.ID,
			Name:        a.Name,
			FreeInvokes: a.FreeInvokes,
			CreatedBy:   a.CreatedBy,
			IsTemporary: a.IsTemporary,
		})
	}
	return aspects, nil
}

func (s *Store) getSceneRow(ctx context.Context, query string, args ...any) (scene.Scene, error) {
	var (
		sc                   scene.Scene
		status               string
		createdAt, updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, query, args...).
		Scan(&sc.ID, &sc.Name, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Scene{}, storage.ErrNotFound
	}
	if err != nil {
		return scene.Scene{}, fmt.Errorf("scan scene: %w", err)
	}

	parsed, ok := scene.ParseStatus(status)
	if !ok {
		return scene.Scene{}, fmt.Errorf("unknown scene status %q", status)
	}
	sc.Status = parsed
	sc.CreatedAt = fromMillis(createdAt)
	sc.UpdatedAt = fromMillis(updatedAt)

	aspects, err := s.loadSceneAspects(ctx, sc.ID)
	if err != nil {
		return scene.Scene{}, err
	}
	sc.Aspects = aspects
	return sc, nil
}

// GetScene loads a scene and its aspects.
func (s *Store) GetScene(ctx context.Context, id string) (scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return scene.Scene{}, err
	}
	return s.getSceneRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM scenes WHERE id = ?`, id)
}

// GetActiveScene returns the single active scene, or ErrNotFound.
func (s *Store) GetActiveScene(ctx context.Context) (scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return scene.Scene{}, err
	}
	return s.getSceneRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM scenes WHERE status = 'active'`)
}

// ListScenes returns every scene, archived included.
func (s *Store) ListScenes(ctx context.Context) ([]scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM scenes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan scene id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	scenes := make([]scene.Scene, 0, len(ids))
	for _, id := range ids {
		sc, err := s.GetScene(ctx, id)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

// ActivateScene atomically deactivates every other non-archived scene and
// activates the target. A concurrent reader never observes two active scenes
// or none during a switch.
func (s *Store) ActivateScene(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM scenes WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read scene status: %w", err)
	}
	current, _ := scene.ParseStatus(status)
	if err := scene.CanTransition(current, scene.StatusActive); err != nil {
		return err
	}

	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx,
		`UPDATE scenes SET status = 'draft', updated_at = ? WHERE status = 'active' AND id != ?`,
		now, id); err != nil {
		return fmt.Errorf("deactivate scenes: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE scenes SET status = 'active', updated_at = ? WHERE id = ?`,
		now, id); err != nil {
		return fmt.Errorf("activate scene: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionScenes, watch.OpPut, id)
	return nil
}

// ArchiveScene archives a scene; the active scene must be deactivated first.
func (s *Store) ArchiveScene(ctx context.Context, id string) error {
	return s.transitionScene(ctx, id, scene.StatusArchived)
}

// RestoreScene returns an archived scene to draft.
func (s *Store) RestoreScene(ctx context.Context, id string) error {
	return s.transitionScene(ctx, id, scene.StatusDraft)
}

func (s *Store) transitionScene(ctx context.Context, id string, to scene.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM scenes WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read scene status: %w", err)
	}
	current, _ := scene.ParseStatus(status)
	if err := scene.CanTransition(current, to); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE scenes SET status = ?, updated_at = ? WHERE id = ?`,
		to.String(), toMillis(s.now()), id); err != nil {
		return fmt.Errorf("transition scene: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionScenes, watch.OpPut, id)
	return nil
}
