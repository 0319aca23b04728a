// Package table runs the shared-table flows: scene lifecycle, seat claims,
// NPC placement, skill rolls, and advancement.
//
// Conflicting writes (two activations, two seat claims) are settled by the
// store's transactions; this layer validates inputs, derives the domain
// values, and narrates outcomes into the session log.
package table

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/domain/scene"
	"github.com/ashfall-games/fatetable/internal/engine/dice"
	"github.com/ashfall-games/fatetable/internal/engine/pyramid"
	"github.com/ashfall-games/fatetable/internal/platform/id"
	"github.com/ashfall-games/fatetable/internal/storage"
)

// Log entry types emitted by the table service.
const (
	LogTypeScene       = "scene"
	LogTypeSeat        = "seat"
	LogTypeNPC         = "npc"
	LogTypeCharacter   = "character"
	LogTypeDiceResult  = "dice_result"
	LogTypeAdvancement = "advancement"
)

// Service coordinates the shared-table flows against the store.
type Service struct {
	store     storage.Store
	sessionID string
	clock     func() time.Time
	newID     func() (string, error)
	seed      func() int64
	tracer    trace.Tracer
}

// New creates a table service bound to one game session.
func New(store storage.Store, sessionID string) *Service {
	return &Service{
		store:     store,
		sessionID: sessionID,
		clock:     time.Now,
		newID:     id.NewID,
		seed:      func() int64 { return time.Now().UnixNano() },
		tracer:    otel.Tracer("fatetable/table"),
	}
}

// CreateScene validates and persists a draft scene, minting ids for the scene
// and any aspect that arrives without one.
func (s *Service) CreateScene(ctx context.Context, name string, aspects []scene.Aspect) (scene.Scene, error) {
	ctx, span := s.tracer.Start(ctx, "table.CreateScene")
	defer span.End()

	sceneID, err := s.newID()
	if err != nil {
		return scene.Scene{}, err
	}
	withIDs := make([]scene.Aspect, len(aspects))
	copy(withIDs, aspects)
	for i := range withIDs {
		if withIDs[i].ID == "" {
			aspectID, err := s.newID()
			if err != nil {
				return scene.Scene{}, err
			}
			withIDs[i].ID = aspectID
		}
	}

	created, err := scene.Create(scene.CreateInput{
		ID:      sceneID,
		Name:    name,
		Aspects: withIDs,
		Now:     s.clock(),
	})
	if err != nil {
		return scene.Scene{}, err
	}
	if err := s.store.PutScene(ctx, created); err != nil {
		span.RecordError(err)
		return scene.Scene{}, err
	}

	s.appendLog(ctx, LogTypeScene, "", "scene created: "+created.Name, map[string]any{
		"scene_id": created.ID,
	})
	return created, nil
}

// CreateCharacter validates and persists a new player character. Creation
// finishes only with the exact pyramid shape: every skill level filled to
// capacity. A minted id overrides whatever the caller supplied.
func (s *Service) CreateCharacter(ctx context.Context, input character.CreateInput) (character.Character, error) {
	ctx, span := s.tracer.Start(ctx, "table.CreateCharacter")
	defer span.End()

	if result := pyramid.ValidateComplete(input.Skills); !result.Valid {
		return character.Character{}, result.Err
	}

	characterID, err := s.newID()
	if err != nil {
		return character.Character{}, err
	}
	input.ID = characterID
	input.Now = s.clock()

	created, err := character.Create(input)
	if err != nil {
		return character.Character{}, err
	}
	if err := s.store.PutCharacter(ctx, created); err != nil {
		span.RecordError(err)
		return character.Character{}, err
	}

	s.appendLog(ctx, LogTypeCharacter, created.ID, "character created: "+created.Name, map[string]any{
		"character_id": created.ID,
	})
	return created, nil
}

// ActivateScene makes the target the single active scene. The store runs the
// switch transactionally; a concurrent activation resolves to exactly one
// winner with the loser's scene left deactivated.
func (s *Service) ActivateScene(ctx context.Context, sceneID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ActivateScene",
		trace.WithAttributes(attribute.String("scene", sceneID)))
	defer span.End()

	if err := s.store.ActivateScene(ctx, sceneID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeScene, "", "scene activated", map[string]any{"scene_id": sceneID})
	return nil
}

// ArchiveScene retires a scene. The active scene is rejected; deactivate it
// first by activating another.
func (s *Service) ArchiveScene(ctx context.Context, sceneID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ArchiveScene",
		trace.WithAttributes(attribute.String("scene", sceneID)))
	defer span.End()

	if err := s.store.ArchiveScene(ctx, sceneID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeScene, "", "scene archived", map[string]any{"scene_id": sceneID})
	return nil
}

// RestoreScene returns an archived scene to draft.
func (s *Service) RestoreScene(ctx context.Context, sceneID string) error {
	ctx, span := s.tracer.Start(ctx, "table.RestoreScene",
		trace.WithAttributes(attribute.String("scene", sceneID)))
	defer span.End()

	if err := s.store.RestoreScene(ctx, sceneID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeScene, "", "scene restored", map[string]any{"scene_id": sceneID})
	return nil
}

// ClaimGM takes the GM seat, first writer wins.
func (s *Service) ClaimGM(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ClaimGM")
	defer span.End()

	if err := s.store.ClaimGM(ctx, s.sessionID, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeSeat, "", "gm seat claimed", map[string]any{"user_id": userID})
	return nil
}

// ResignGM vacates the GM seat if userID holds it; otherwise a no-op.
func (s *Service) ResignGM(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ResignGM")
	defer span.End()

	if err := s.store.ResignGM(ctx, s.sessionID, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeSeat, "", "gm seat resigned", map[string]any{"user_id": userID})
	return nil
}

// ClaimCharacter binds a character to a player, first writer wins.
func (s *Service) ClaimCharacter(ctx context.Context, characterID, userID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ClaimCharacter",
		trace.WithAttributes(attribute.String("character", characterID)))
	defer span.End()

	if err := s.store.ClaimSeat(ctx, s.sessionID, characterID, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeSeat, characterID, "character claimed", map[string]any{
		"character_id": characterID,
		"user_id":      userID,
	})
	return nil
}

// ReleaseCharacter frees a character's seat.
func (s *Service) ReleaseCharacter(ctx context.Context, characterID string) error {
	ctx, span := s.tracer.Start(ctx, "table.ReleaseCharacter",
		trace.WithAttributes(attribute.String("character", characterID)))
	defer span.End()

	if err := s.store.ReleaseSeat(ctx, s.sessionID, characterID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeSeat, characterID, "character released", map[string]any{
		"character_id": characterID,
	})
	return nil
}

// PlaceNPC moves a live NPC into a scene.
func (s *Service) PlaceNPC(ctx context.Context, npcID, sceneID string) error {
	ctx, span := s.tracer.Start(ctx, "table.PlaceNPC",
		trace.WithAttributes(attribute.String("npc", npcID), attribute.String("scene", sceneID)))
	defer span.End()

	if err := s.store.PlaceNPC(ctx, npcID, sceneID); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeNPC, "", "npc placed", map[string]any{"npc_id": npcID, "scene_id": sceneID})
	return nil
}

// StoreNPC removes a live NPC from its scene without discarding it.
func (s *Service) StoreNPC(ctx context.Context, npcID string) error {
	ctx, span := s.tracer.Start(ctx, "table.StoreNPC",
		trace.WithAttributes(attribute.String("npc", npcID)))
	defer span.End()

	if err := s.store.PlaceNPC(ctx, npcID, ""); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeNPC, "", "npc stored", map[string]any{"npc_id": npcID})
	return nil
}

// SetToken toggles an NPC's presence on the visual canvas.
func (s *Service) SetToken(ctx context.Context, npcID string, hasToken bool) error {
	ctx, span := s.tracer.Start(ctx, "table.SetToken",
		trace.WithAttributes(attribute.String("npc", npcID)))
	defer span.End()

	if err := s.store.SetToken(ctx, npcID, hasToken); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// SpawnFromArchetype mints a live NPC from a stored template. The instance
// starts stored with clean stress and consequences.
func (s *Service) SpawnFromArchetype(ctx context.Context, archetypeID string) (npc.ActiveNPC, error) {
	ctx, span := s.tracer.Start(ctx, "table.SpawnFromArchetype",
		trace.WithAttributes(attribute.String("archetype", archetypeID)))
	defer span.End()

	template, err := s.store.GetArchetype(ctx, archetypeID)
	if err != nil {
		span.RecordError(err)
		return npc.ActiveNPC{}, err
	}
	instanceID, err := s.newID()
	if err != nil {
		return npc.ActiveNPC{}, err
	}
	live, err := npc.FromArchetype(instanceID, template, s.clock())
	if err != nil {
		return npc.ActiveNPC{}, err
	}
	if err := s.store.PutNPC(ctx, live); err != nil {
		span.RecordError(err)
		return npc.ActiveNPC{}, err
	}

	s.appendLog(ctx, LogTypeNPC, "", "npc spawned: "+live.Name, map[string]any{
		"npc_id":       live.ID,
		"archetype_id": archetypeID,
	})
	return live, nil
}

// ArchiveToArchetype folds a live NPC back into a reusable template and
// removes the instance. Session-scoped state (stress, consequences, placement)
// is dropped with it.
func (s *Service) ArchiveToArchetype(ctx context.Context, npcID string) (npc.Archetype, error) {
	ctx, span := s.tracer.Start(ctx, "table.ArchiveToArchetype",
		trace.WithAttributes(attribute.String("npc", npcID)))
	defer span.End()

	live, err := s.store.GetNPC(ctx, npcID)
	if err != nil {
		span.RecordError(err)
		return npc.Archetype{}, err
	}
	templateID, err := s.newID()
	if err != nil {
		return npc.Archetype{}, err
	}
	template, err := npc.ToArchetype(templateID, live)
	if err != nil {
		return npc.Archetype{}, err
	}
	if err := s.store.PutArchetype(ctx, template); err != nil {
		span.RecordError(err)
		return npc.Archetype{}, err
	}
	if err := s.store.DeleteNPC(ctx, npcID); err != nil {
		span.RecordError(err)
		return npc.Archetype{}, err
	}

	s.appendLog(ctx, LogTypeNPC, "", "npc archived: "+template.Name, map[string]any{
		"npc_id":       npcID,
		"archetype_id": template.ID,
	})
	return template, nil
}

// RollSkill resolves a skill check for a character: the modifier comes from
// the character's skill map (untrained skills roll at +0), the dice engine
// draws and classifies, and the full result lands in the session log.
func (s *Service) RollSkill(ctx context.Context, characterID, skill string, mode dice.Mode, opposition *int) (dice.RollResult, error) {
	ctx, span := s.tracer.Start(ctx, "table.RollSkill",
		trace.WithAttributes(attribute.String("character", characterID), attribute.String("skill", skill)))
	defer span.End()

	c, err := s.store.GetCharacter(ctx, characterID)
	if err != nil {
		span.RecordError(err)
		return dice.RollResult{}, err
	}

	result, err := dice.Roll(dice.RollRequest{
		Modifier:   c.Skills[skill],
		Mode:       mode,
		Opposition: opposition,
		Seed:       s.seed(),
	})
	if err != nil {
		return dice.RollResult{}, err
	}

	details := map[string]any{
		"skill":    skill,
		"mode":     mode.String(),
		"faces":    result.Faces,
		"modifier": result.Modifier,
		"total":    result.Total,
		"outcome":  result.Outcome.String(),
	}
	if result.Bonus != 0 {
		details["bonus"] = result.Bonus
	}
	if result.Shifts != nil {
		details["shifts"] = *result.Shifts
	}
	s.appendLog(ctx, LogTypeDiceResult, characterID, c.Name+" rolled "+skill, details)
	return result, nil
}

// AdvanceSkill raises one skill by a single point, gated by the pyramid shape.
func (s *Service) AdvanceSkill(ctx context.Context, characterID, skill string) error {
	ctx, span := s.tracer.Start(ctx, "table.AdvanceSkill",
		trace.WithAttributes(attribute.String("character", characterID), attribute.String("skill", skill)))
	defer span.End()

	c, err := s.store.GetCharacter(ctx, characterID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if result := pyramid.CheckIncrement(c.Skills, skill); !result.Valid {
		return result.Err
	}

	skills := make(map[string]int, len(c.Skills)+1)
	for name, level := range c.Skills {
		skills[name] = level
	}
	skills[skill]++
	if err := s.store.PatchSkills(ctx, characterID, skills); err != nil {
		span.RecordError(err)
		return err
	}

	s.appendLog(ctx, LogTypeAdvancement, characterID, c.Name+" advanced "+skill, map[string]any{
		"skill": skill,
		"level": skills[skill],
	})
	return nil
}

// appendLog records a history entry, best effort.
func (s *Service) appendLog(ctx context.Context, logType, characterID, message string, details map[string]any) {
	entryID, err := s.newID()
	if err != nil {
		log.Printf("table: log id: %v", err)
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("table: encode log details: %v", err)
		detailsJSON = nil
	}

	err = s.store.AppendLog(ctx, storage.LogEntry{
		ID:          entryID,
		SessionID:   s.sessionID,
		Message:     message,
		Type:        logType,
		CharacterID: characterID,
		DetailsJSON: string(detailsJSON),
		Timestamp:   s.clock().UTC(),
	})
	if err != nil {
		log.Printf("table: append %s log: %v", logType, err)
	}
}
