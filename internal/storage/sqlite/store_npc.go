package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// npcDoc is the JSON blob for nested NPC fields.
type npcDoc struct {
	Aspects           []string       `json:"aspects,omitempty"`
	Skills            map[string]int `json:"skills,omitempty"`
	Stress            []bool         `json:"stress,omitempty"`
	ConsequenceMild   *string        `json:"consequenceMild,omitempty"`
	ConsequenceMod    *string        `json:"consequenceModerate,omitempty"`
	ConsequenceSevere *string        `json:"consequenceSevere,omitempty"`
}

// archetypeDoc is the JSON blob for archetype templates.
type archetypeDoc struct {
	Aspects []string       `json:"aspects,omitempty"`
	Skills  map[string]int `json:"skills,omitempty"`
}

// PutNPC upserts a live NPC.
func (s *Store) PutNPC(ctx context.Context, n npc.ActiveNPC) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("npc id is required")
	}
	if _, ok := npc.ParseKind(string(n.Kind)); !ok {
		return npc.ErrInvalidKind
	}

	raw, err := json.Marshal(npcDoc{
		Aspects:           n.Aspects,
		Skills:            n.Skills,
		Stress:            n.Stress,
		ConsequenceMild:   n.Consequences.Mild,
		ConsequenceMod:    n.Consequences.Moderate,
		ConsequenceSevere: n.Consequences.Severe,
	})
	if err != nil {
		return fmt.Errorf("encode npc doc: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO npcs (id, archetype_id, name, kind, scene_id, has_token, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			archetype_id = excluded.archetype_id,
			name = excluded.name,
			kind = excluded.kind,
			scene_id = excluded.scene_id,
			has_token = excluded.has_token,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		n.ID, n.ArchetypeID, n.Name, string(n.Kind), n.SceneID, boolToInt(n.HasToken),
		string(raw), toMillis(n.CreatedAt), toMillis(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put npc: %w", err)
	}

	s.publish(watch.CollectionNPCs, watch.OpPut, n.ID)
	return nil
}

// GetNPC loads a live NPC.
func (s *Store) GetNPC(ctx context.Context, id string) (npc.ActiveNPC, error) {
	if err := ctx.Err(); err != nil {
		return npc.ActiveNPC{}, err
	}
	var (
		n                    npc.ActiveNPC
		kind, data           string
		hasToken             int
		createdAt, updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, archetype_id, name, kind, scene_id, has_token, data, created_at, updated_at
		FROM npcs WHERE id = ?`, id).
		Scan(&n.ID, &n.ArchetypeID, &n.Name, &kind, &n.SceneID, &hasToken, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return npc.ActiveNPC{}, storage.ErrNotFound
	}
	if err != nil {
		return npc.ActiveNPC{}, fmt.Errorf("get npc: %w", err)
	}

	var doc npcDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return npc.ActiveNPC{}, fmt.Errorf("decode npc doc: %w", err)
	}
	n.Kind = npc.Kind(kind)
	n.HasToken = hasToken != 0
	n.Aspects = doc.Aspects
	n.Skills = doc.Skills
	n.Stress = doc.Stress
	n.Consequences = character.Consequences{Mild: doc.ConsequenceMild, Moderate: doc.ConsequenceMod, Severe: doc.ConsequenceSevere}
	n.CreatedAt = fromMillis(createdAt)
	n.UpdatedAt = fromMillis(updatedAt)
	return n, nil
}

// ListNPCs returns every live NPC.
func (s *Store) ListNPCs(ctx context.Context) ([]npc.ActiveNPC, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM npcs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan npc id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}

	npcs := make([]npc.ActiveNPC, 0, len(ids))
	for _, id := range ids {
		n, err := s.GetNPC(ctx, id)
		if err != nil {
			return nil, err
		}
		npcs = append(npcs, n)
	}
	return npcs, nil
}

// DeleteNPC removes a live NPC (after archiving back to a template, or when
// the GM discards it).
func (s *Store) DeleteNPC(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM npcs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete npc: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionNPCs, watch.OpDelete, id)
	return nil
}

// PlaceNPC sets scene placement; empty sceneID returns the NPC to storage.
func (s *Store) PlaceNPC(ctx context.Context, id, sceneID string) error {
	return s.updateNPCField(ctx, id,
		`UPDATE npcs SET scene_id = ?, updated_at = ? WHERE id = ?`, sceneID)
}

// SetToken toggles presence on the visual canvas, independent of placement.
func (s *Store) SetToken(ctx context.Context, id string, hasToken bool) error {
	return s.updateNPCField(ctx, id,
		`UPDATE npcs SET has_token = ?, updated_at = ? WHERE id = ?`, boolToInt(hasToken))
}

func (s *Store) updateNPCField(ctx context.Context, id, query string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, query, value, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("update npc: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionNPCs, watch.OpPut, id)
	return nil
}

// PutArchetype upserts a template.
func (s *Store) PutArchetype(ctx context.Context, a npc.Archetype) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("archetype id is required")
	}

	raw, err := json.Marshal(archetypeDoc{Aspects: a.Aspects, Skills: a.Skills})
	if err != nil {
		return fmt.Errorf("encode archetype doc: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO archetypes (id, name, kind, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			data = excluded.data`,
		a.ID, a.Name, string(a.Kind), string(raw),
	)
	if err != nil {
		return fmt.Errorf("put archetype: %w", err)
	}

	s.publish(watch.CollectionNPCs, watch.OpPut, a.ID)
	return nil
}

// GetArchetype loads a template.
func (s *Store) GetArchetype(ctx context.Context, id string) (npc.Archetype, error) {
	if err := ctx.Err(); err != nil {
		return npc.Archetype{}, err
	}
	var (
		a          npc.Archetype
		kind, data string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, kind, data FROM archetypes WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &kind, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return npc.Archetype{}, storage.ErrNotFound
	}
	if err != nil {
		return npc.Archetype{}, fmt.Errorf("get archetype: %w", err)
	}

	var doc archetypeDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return npc.Archetype{}, fmt.Errorf("decode archetype doc: %w", err)
	}
	a.Kind = npc.Kind(kind)
	a.Aspects = doc.Aspects
	a.Skills = doc.Skills
	return a, nil
}

// ListArchetypes returns every template.
func (s *Store) ListArchetypes(ctx context.Context) ([]npc.Archetype, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM archetypes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list archetypes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan archetype id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archetypes: %w", err)
	}

	archetypes := make([]npc.Archetype, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetArchetype(ctx, id)
		if err != nil {
			return nil, err
		}
		archetypes = append(archetypes, a)
	}
	return archetypes, nil
}
