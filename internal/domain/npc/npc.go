// Package npc defines live non-player characters and the archetype templates
// they are spawned from.
package npc

import (
	"strings"
	"time"

	"github.com/ashfall-games/fatetable/internal/domain/character"
	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// Kind is the closed set of NPC variants.
type Kind string

const (
	KindMonstro Kind = "monstro"
	KindPessoa  Kind = "pessoa"
)

// ParseKind validates a persisted kind string.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindMonstro:
		return KindMonstro, true
	case KindPessoa:
		return KindPessoa, true
	default:
		return "", false
	}
}

var (
	// ErrInvalidKind indicates an unknown NPC kind.
	ErrInvalidKind = apperrors.New(apperrors.CodeNPCInvalidKind, "npc kind must be monstro or pessoa")
	// ErrEmptyName indicates an NPC without a name.
	ErrEmptyName = apperrors.New(apperrors.CodeNPCEmptyName, "npc name is required")
)

// Archetype is a reusable template from which live NPCs are spawned.
type Archetype struct {
	ID      string
	Name    string
	Kind    Kind
	Aspects []string
	Skills  map[string]int
}

// ActiveNPC is a session-scoped NPC instance.
//
// SceneID empty means the NPC is stored but not placed. HasToken tracks
// presence on the visual canvas independently of placement.
type ActiveNPC struct {
	ID           string
	ArchetypeID  string
	Name         string
	Kind         Kind
	Aspects      []string
	Skills       map[string]int
	Stress       []bool
	Consequences character.Consequences
	SceneID      string
	HasToken     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks archetype invariants.
func (a Archetype) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if _, ok := ParseKind(string(a.Kind)); !ok {
		return ErrInvalidKind
	}
	return nil
}

// FromArchetype spawns a live NPC from a template. The instance starts stored
// (no scene, no token) with clean stress and consequences.
func FromArchetype(instanceID string, template Archetype, now time.Time) (ActiveNPC, error) {
	if err := template.Validate(); err != nil {
		return ActiveNPC{}, err
	}

	skills := make(map[string]int, len(template.Skills))
	for name, level := range template.Skills {
		skills[name] = level
	}

	return ActiveNPC{
		ID:          instanceID,
		ArchetypeID: template.ID,
		Name:        template.Name,
		Kind:        template.Kind,
		Aspects:     append([]string(nil), template.Aspects...),
		Skills:      skills,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// ToArchetype archives a live NPC back into a reusable template, dropping the
// session-scoped state (stress, consequences, placement).
func ToArchetype(templateID string, live ActiveNPC) (Archetype, error) {
	if strings.TrimSpace(live.Name) == "" {
		return Archetype{}, ErrEmptyName
	}
	if _, ok := ParseKind(string(live.Kind)); !ok {
		return Archetype{}, ErrInvalidKind
	}

	skills := make(map[string]int, len(live.Skills))
	for name, level := range live.Skills {
		skills[name] = level
	}

	return Archetype{
		ID:      templateID,
		Name:    live.Name,
		Kind:    live.Kind,
		Aspects: append([]string(nil), live.Aspects...),
		Skills:  skills,
	}, nil
}
