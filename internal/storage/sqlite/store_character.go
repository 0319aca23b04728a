package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/drive"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// characterDoc is the JSON blob for the nested character fields that never
// need field-level SQL access.
type characterDoc struct {
	Skills            map[string]int     `json:"skills,omitempty"`
	StressPhysical    []bool             `json:"stressPhysical,omitempty"`
	StressMental      []bool             `json:"stressMental,omitempty"`
	ConsequenceMild   *string            `json:"consequenceMild,omitempty"`
	ConsequenceMod    *string            `json:"consequenceModerate,omitempty"`
	ConsequenceSevere *string            `json:"consequenceSevere,omitempty"`
	HighConcept       string             `json:"highConcept,omitempty"`
	Drama             string             `json:"drama,omitempty"`
	Job               string             `json:"job,omitempty"`
	DreamBoard        string             `json:"dreamBoard,omitempty"`
	FreeAspects       []string           `json:"freeAspects,omitempty"`
	Drive             string             `json:"drive,omitempty"`
	Maneuvers         []drive.ManeuverID `json:"maneuvers,omitempty"`
}

func encodeCharacterDoc(c character.Character) (string, error) {
	doc := characterDoc{
		Skills:            c.Skills,
		StressPhysical:    c.Stress.Physical,
		StressMental:      c.Stress.Mental,
		ConsequenceMild:   c.Consequences.Mild,
		ConsequenceMod:    c.Consequences.Moderate,
		ConsequenceSevere: c.Consequences.Severe,
		HighConcept:       c.Aspects.HighConcept,
		Drama:             c.Aspects.Drama,
		Job:               c.Aspects.Job,
		DreamBoard:        c.Aspects.DreamBoard,
		FreeAspects:       c.Aspects.Free,
		Drive:             string(c.Drive),
		Maneuvers:         c.Maneuvers,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode character doc: %w", err)
	}
	return string(raw), nil
}

func decodeCharacterDoc(raw string, c *character.Character) error {
	var doc characterDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decode character doc: %w", err)
	}
	c.Skills = doc.Skills
	if c.Skills == nil {
		c.Skills = map[string]int{}
	}
	c.Stress = character.Stress{Physical: doc.StressPhysical, Mental: doc.StressMental}
	c.Consequences = character.Consequences{Mild: doc.ConsequenceMild, Moderate: doc.ConsequenceMod, Severe: doc.ConsequenceSevere}
	c.Aspects = character.Aspects{
		HighConcept: doc.HighConcept,
		Drama:       doc.Drama,
		Job:         doc.Job,
		DreamBoard:  doc.DreamBoard,
		Free:        doc.FreeAspects,
	}
	c.Drive = drive.ID(doc.Drive)
	c.Maneuvers = doc.Maneuvers
	return nil
}

// PutCharacter upserts a character record.
func (s *Store) PutCharacter(ctx context.Context, c character.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("character id is required")
	}

	data, err := encodeCharacterDoc(c)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO characters (id, name, owner_user_id, fate_points, refresh, archived, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_user_id = excluded.owner_user_id,
			fate_points = excluded.fate_points,
			refresh = excluded.refresh,
			archived = excluded.archived,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.OwnerUserID, c.FatePoints, c.Refresh, boolToInt(c.Archived),
		data, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put character: %w", err)
	}

	s.publish(watch.CollectionCharacters, watch.OpPut, c.ID)
	return nil
}

func (s *Store) scanCharacter(ctx context.Context, row *sql.Row) (character.Character, error) {
	var (
		c                    character.Character
		archived             int
		data                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&c.ID, &c.Name, &c.OwnerUserID, &c.FatePoints, &c.Refresh, &archived, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return character.Character{}, storage.ErrNotFound
	}
	if err != nil {
		return character.Character{}, fmt.Errorf("scan character: %w", err)
	}
	if err := decodeCharacterDoc(data, &c); err != nil {
		return character.Character{}, err
	}
	c.Archived = archived != 0
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)

	situational, err := s.listCharacterSituational(ctx, c.ID)
	if err != nil {
		return character.Character{}, err
	}
	c.SituationalAspects = situational
	return c, nil
}

// GetCharacter loads a character with its situational aspects.
func (s *Store) GetCharacter(ctx context.Context, id string) (character.Character, error) {
	if err := ctx.Err(); err != nil {
		return character.Character{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, name, owner_user_id, fate_points, refresh, archived, data, created_at, updated_at
		FROM characters WHERE id = ?`, id)
	return s.scanCharacter(ctx, row)
}

// ListCharacters returns all non-archived characters.
func (s *Store) ListCharacters(ctx context.Context) ([]character.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id FROM characters WHERE archived = 0 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan character id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	characters := make([]character.Character, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		characters = append(characters, c)
	}
	return characters, nil
}

// ArchiveCharacter soft-deletes a character.
func (s *Store) ArchiveCharacter(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET archived = 1, updated_at = ? WHERE id = ?`,
		toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("archive character: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionCharacters, watch.OpPut, id)
	return nil
}

// IncrementFatePoints applies a field-level atomic increment to fate points.
// No floor: a spend can drive the balance negative (rule-level bounds are a
// table judgment call, not engine-enforced).
func (s *Store) IncrementFatePoints(ctx context.Context, id string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET fate_points = fate_points + ?, updated_at = ? WHERE id = ?`,
		delta, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("increment fate points: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	s.publish(watch.CollectionCharacters, watch.OpPut, id)
	return nil
}

// PatchConsequence sets or clears one severity slot. This is a last-writer-
// wins field edit on the document blob, acceptable for human-paced free text.
func (s *Store) PatchConsequence(ctx context.Context, id, severity string, text *string) error {
	return s.patchDoc(ctx, id, func(doc *characterDoc) error {
		switch severity {
		case "mild":
			doc.ConsequenceMild = text
		case "moderate":
			doc.ConsequenceMod = text
		case "severe":
			doc.ConsequenceSevere = text
		default:
			return fmt.Errorf("unknown consequence severity %q", severity)
		}
		return nil
	})
}

// PatchStress overwrites the persisted stress marks.
func (s *Store) PatchStress(ctx context.Context, id string, stress character.Stress) error {
	return s.patchDoc(ctx, id, func(doc *characterDoc) error {
		doc.StressPhysical = stress.Physical
		doc.StressMental = stress.Mental
		return nil
	})
}

// PatchSkills overwrites the skill allocation.
func (s *Store) PatchSkills(ctx context.Context, id string, skills map[string]int) error {
	return s.patchDoc(ctx, id, func(doc *characterDoc) error {
		doc.Skills = skills
		return nil
	})
}

// patchDoc applies an edit to the character document blob inside one
// transaction so the blob stays self-consistent.
func (s *Store) patchDoc(ctx context.Context, id string, edit func(*characterDoc) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM characters WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read character doc: %w", err)
	}

	var doc characterDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("decode character doc: %w", err)
	}
	if err := edit(&doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode character doc: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE characters SET data = ?, updated_at = ? WHERE id = ?`,
		string(raw), toMillis(s.now()), id); err != nil {
		return fmt.Errorf("write character doc: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.publish(watch.CollectionCharacters, watch.OpPut, id)
	return nil
}
