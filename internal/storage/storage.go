// Package storage defines the persistence boundary for the tabletop core.
//
// The remote store is the single source of truth. Mutators never read-modify-
// write whole records: fate points and free invokes change through field-level
// atomic increments, and scene activation and seat claims run as all-or-
// nothing transactions. Plain field updates are last-writer-wins.
package storage

import (
	"context"
	"time"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/domain/scene"
	"github.com/ashfall-games/fatetable/internal/domain/table"
	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing. Callers use it to
// distinguish "no such entity" from transport failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// PoolOwner identifies which entity a free-invoke pool aspect is attached to.
type PoolOwner string

const (
	PoolOwnerCharacter PoolOwner = "character"
	PoolOwnerScene     PoolOwner = "scene"
)

// PoolAspect is a persisted aspect with a free-invoke pool: character
// situational aspects and scene aspects share this shape.
type PoolAspect struct {
	ID          string
	OwnerType   PoolOwner
	OwnerID     string
	Name        string
	FreeInvokes int
	CreatedBy   string
	IsTemporary bool
}

// LogEntry is one append-only record in the per-episode session history.
type LogEntry struct {
	ID          string
	SessionID   string
	Message     string
	Type        string
	CharacterID string
	DetailsJSON string
	Timestamp   time.Time
}

// CharacterStore persists player characters.
type CharacterStore interface {
	PutCharacter(ctx context.Context, c character.Character) error
	GetCharacter(ctx context.Context, id string) (character.Character, error)
	ListCharacters(ctx context.Context) ([]character.Character, error)
	// ArchiveCharacter soft-deletes; the record survives while referenced.
	ArchiveCharacter(ctx context.Context, id string) error
	// IncrementFatePoints applies a field-level atomic increment; delta may be
	// negative. Never a read-modify-write.
	IncrementFatePoints(ctx context.Context, id string, delta int) error
	// PatchConsequence sets or clears (text == nil) one severity slot.
	PatchConsequence(ctx context.Context, id, severity string, text *string) error
	// PatchStress overwrites the persisted stress marks.
	PatchStress(ctx context.Context, id string, stress character.Stress) error
	// PatchSkills overwrites the skill allocation.
	PatchSkills(ctx context.Context, id string, skills map[string]int) error
}

// AspectStore persists free-invoke pool aspects.
type AspectStore interface {
	PutPoolAspect(ctx context.Context, a PoolAspect) error
	GetPoolAspect(ctx context.Context, id string) (PoolAspect, error)
	ListPoolAspects(ctx context.Context, owner PoolOwner, ownerID string) ([]PoolAspect, error)
	DeletePoolAspect(ctx context.Context, id string) error
	// AddFreeInvokes atomically adds delta to the pool, floored at zero.
	AddFreeInvokes(ctx context.Context, id string, delta int) error
}

// SceneStore persists scenes and enforces the single-active-scene invariant.
type SceneStore interface {
	PutScene(ctx context.Context, s scene.Scene) error
	GetScene(ctx context.Context, id string) (scene.Scene, error)
	ListScenes(ctx context.Context) ([]scene.Scene, error)
	// GetActiveScene returns ErrNotFound when no scene is active.
	GetActiveScene(ctx context.Context) (scene.Scene, error)
	// ActivateScene deactivates every other non-archived scene and activates
	// the target in one transaction. Archived targets are rejected.
	ActivateScene(ctx context.Context, id string) error
	// ArchiveScene rejects the currently active scene.
	ArchiveScene(ctx context.Context, id string) error
	// RestoreScene returns an archived scene to draft.
	RestoreScene(ctx context.Context, id string) error
}

// NPCStore persists live NPCs and their archetype templates.
type NPCStore interface {
	PutNPC(ctx context.Context, n npc.ActiveNPC) error
	GetNPC(ctx context.Context, id string) (npc.ActiveNPC, error)
	ListNPCs(ctx context.Context) ([]npc.ActiveNPC, error)
	DeleteNPC(ctx context.Context, id string) error
	// PlaceNPC sets the scene placement; empty sceneID stores the NPC.
	PlaceNPC(ctx context.Context, id, sceneID string) error
	SetToken(ctx context.Context, id string, hasToken bool) error
	PutArchetype(ctx context.Context, a npc.Archetype) error
	GetArchetype(ctx context.Context, id string) (npc.Archetype, error)
	ListArchetypes(ctx context.Context) ([]npc.Archetype, error)
}

// SessionStore persists the shared game session and its seat bindings.
type SessionStore interface {
	PutSession(ctx context.Context, s table.GameSession) error
	GetSession(ctx context.Context, id string) (table.GameSession, error)
	// ClaimGM is first-writer-wins: it reads the current holder inside the
	// transaction and aborts with ErrGMSeatTaken if held by someone else.
	ClaimGM(ctx context.Context, sessionID, userID string) error
	ResignGM(ctx context.Context, sessionID, userID string) error
	// ClaimSeat binds a character to a player, first writer wins.
	ClaimSeat(ctx context.Context, sessionID, characterID, userID string) error
	ReleaseSeat(ctx context.Context, sessionID, characterID string) error
	// IncrementGMFatePool applies a field-level atomic increment.
	IncrementGMFatePool(ctx context.Context, sessionID string, delta int) error
	SetThemes(ctx context.Context, sessionID string, themes []string) error
	GetThemes(ctx context.Context, sessionID string) ([]string, error)
}

// LogStore is the append-only session history.
type LogStore interface {
	AppendLog(ctx context.Context, entry LogEntry) error
	// ListLog returns entries sorted by recorded timestamp, oldest first.
	// Arrival order is not trusted (no cross-document ordering guarantee).
	ListLog(ctx context.Context, sessionID string) ([]LogEntry, error)
}

// Store is the full persistence surface the services are wired against.
type Store interface {
	CharacterStore
	AspectStore
	SceneStore
	NPCStore
	SessionStore
	LogStore
}
