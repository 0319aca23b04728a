// Package aspect unifies every invocable fact in play into one collection.
//
// Aspects come from five heterogeneous sources: campaign themes, character
// aspects, consequences, situational/boost aspects, and scene (location)
// aspects. Aggregate flattens them into UnifiedAspect values with stable
// content-derived ids; a single dispatch table captures per-source behavior.
package aspect

import (
	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/domain/scene"
)

// Source tags where an aspect came from.
type Source string

const (
	SourceTheme       Source = "theme"
	SourceCharacter   Source = "character"
	SourceConsequence Source = "consequence"
	SourceSituational Source = "situational"
	SourceLocation    Source = "location"
)

// OwnerType tags what kind of entity owns the aspect.
type OwnerType string

const (
	OwnerCampaign  OwnerType = "campaign"
	OwnerCharacter OwnerType = "character"
	OwnerNPC       OwnerType = "npc"
	OwnerScene     OwnerType = "scene"
)

// UnifiedAspect is an ephemeral, recomputed view of one invocable fact. It is
// never persisted; the ledger re-aggregates after every cache update.
type UnifiedAspect struct {
	ID          string
	Name        string
	Source      Source
	OwnerType   OwnerType
	OwnerID     string
	FreeInvokes int
}

// Behavior captures the per-source capabilities consulted by the ledger.
type Behavior struct {
	// HasFreePool reports whether the source has a backing free-invoke pool
	// that consumption can decrement.
	HasFreePool bool
	// Label is the rendering category shown alongside the aspect name.
	Label string
}

// behaviors is the single dispatch table over aspect sources.
var behaviors = map[Source]Behavior{
	SourceTheme:       {HasFreePool: false, Label: "Theme"},
	SourceCharacter:   {HasFreePool: false, Label: "Aspect"},
	SourceConsequence: {HasFreePool: false, Label: "Consequence"},
	SourceSituational: {HasFreePool: true, Label: "Situational"},
	SourceLocation:    {HasFreePool: true, Label: "Scene"},
}

// BehaviorFor returns the dispatch entry for a source. Unknown sources get the
// zero behavior: no pool, empty label.
func BehaviorFor(source Source) Behavior {
	return behaviors[source]
}

// syntheticID derives a stable id from owner and name so that re-aggregation
// after any single mutation is idempotent and stable for list diffing. Sources
// without a persisted record (themes, character aspects, consequences) have no
// id of their own; pool-backed sources keep their stored id so the ledger can
// address the pool directly.
func syntheticID(ownerID, name string) string {
	return ownerID + "/" + name
}

// poolID prefers the stored pool-aspect id, falling back to a synthetic one.
func poolID(stored, ownerID, name string) string {
	if stored != "" {
		return stored
	}
	return syntheticID(ownerID, name)
}

// Themes carries campaign theme aspects into aggregation.
type Themes struct {
	CampaignID string
	Names      []string
}

// npcConsequenceInvokes is the free-invoke seed on each NPC consequence: a
// foe's wounds are findable weaknesses.
const npcConsequenceInvokes = 1

// Aggregate flattens all sources into a deterministic union, in stable
// source order: themes, character aspects, character consequences, character
// situational aspects, NPC aspects, NPC consequences, scene aspects.
func Aggregate(themes Themes, characters []character.Character, npcs []npc.ActiveNPC, active *scene.Scene) []UnifiedAspect {
	var out []UnifiedAspect

	for _, name := range themes.Names {
		out = append(out, UnifiedAspect{
			ID:        syntheticID(themes.CampaignID, name),
			Name:      name,
			Source:    SourceTheme,
			OwnerType: OwnerCampaign,
			OwnerID:   themes.CampaignID,
		})
	}

	for _, c := range characters {
		for _, name := range c.Aspects.All() {
			out = append(out, UnifiedAspect{
				ID:        syntheticID(c.ID, name),
				Name:      name,
				Source:    SourceCharacter,
				OwnerType: OwnerCharacter,
				OwnerID:   c.ID,
			})
		}
	}
	for _, c := range characters {
		for _, name := range c.Consequences.Active() {
			out = append(out, UnifiedAspect{
				ID:        syntheticID(c.ID, name),
				Name:      name,
				Source:    SourceConsequence,
				OwnerType: OwnerCharacter,
				OwnerID:   c.ID,
			})
		}
	}
	for _, c := range characters {
		for _, sa := range c.SituationalAspects {
			out = append(out, UnifiedAspect{
				ID:          poolID(sa.ID, c.ID, sa.Name),
				Name:        sa.Name,
				Source:      SourceSituational,
				OwnerType:   OwnerCharacter,
				OwnerID:     c.ID,
				FreeInvokes: sa.FreeInvokes,
			})
		}
	}

	for _, n := range npcs {
		for _, name := range n.Aspects {
			out = append(out, UnifiedAspect{
				ID:        syntheticID(n.ID, name),
				Name:      name,
				Source:    SourceCharacter,
				OwnerType: OwnerNPC,
				OwnerID:   n.ID,
			})
		}
	}
	for _, n := range npcs {
		for _, name := range n.Consequences.Active() {
			out = append(out, UnifiedAspect{
				ID:          syntheticID(n.ID, name),
				Name:        name,
				Source:      SourceConsequence,
				OwnerType:   OwnerNPC,
				OwnerID:     n.ID,
				FreeInvokes: npcConsequenceInvokes,
			})
		}
	}

	if active != nil {
		for _, sa := range active.Aspects {
			out = append(out, UnifiedAspect{
				ID:          poolID(sa.ID, active.ID, sa.Name),
				Name:        sa.Name,
				Source:      SourceLocation,
				OwnerType:   OwnerScene,
				OwnerID:     active.ID,
				FreeInvokes: sa.FreeInvokes,
			})
		}
	}

	return out
}
