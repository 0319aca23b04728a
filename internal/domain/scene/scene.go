// Package scene defines scenes, their aspects, and the activation lifecycle.
package scene

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// MinAspects is the minimum number of aspects a scene is created with.
const MinAspects = 1

// Status is the scene lifecycle state.
type Status int

const (
	StatusDraft Status = iota
	StatusActive
	StatusArchived
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// ParseStatus converts a persisted status string back to a Status.
func ParseStatus(value string) (Status, bool) {
	switch value {
	case "draft":
		return StatusDraft, true
	case "active":
		return StatusActive, true
	case "archived":
		return StatusArchived, true
	default:
		return StatusDraft, false
	}
}

var (
	// ErrEmptyName indicates a scene was created without a name.
	ErrEmptyName = apperrors.New(apperrors.CodeSceneEmptyName, "scene name is required")
	// ErrTooFewAspects indicates a scene with fewer than MinAspects aspects.
	ErrTooFewAspects = apperrors.New(apperrors.CodeSceneTooFewAspects, "scene needs at least one aspect")
	// ErrIsActive indicates an archive attempt against the active scene.
	ErrIsActive = apperrors.New(apperrors.CodeSceneIsActive, "scene is active; deactivate it first")
	// ErrArchived indicates an activation attempt against an archived scene.
	ErrArchived = apperrors.New(apperrors.CodeSceneArchived, "archived scenes cannot be activated")
	// ErrInvalidTransition indicates a lifecycle transition outside the state machine.
	ErrInvalidTransition = apperrors.New(apperrors.CodeSceneInvalidTransition, "invalid scene status transition")
)

// Aspect is an invocable fact attached to a scene.
type Aspect struct {
	ID          string
	Name        string
	FreeInvokes int
	CreatedBy   string
	IsTemporary bool
}

// Scene is a framed location or situation in an episode.
type Scene struct {
	ID        string
	Name      string
	Aspects   []Aspect
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes the input for creating a scene.
type CreateInput struct {
	ID      string
	Name    string
	Aspects []Aspect
	Now     time.Time
}

// Create builds a validated draft scene.
func Create(input CreateInput) (Scene, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Scene{}, ErrEmptyName
	}
	if len(input.Aspects) < MinAspects {
		return Scene{}, apperrors.WithMetadata(
			apperrors.CodeSceneTooFewAspects,
			"scene needs at least "+strconv.Itoa(MinAspects)+" aspect",
			map[string]string{"have": strconv.Itoa(len(input.Aspects)), "min": strconv.Itoa(MinAspects)},
		)
	}
	for _, a := range input.Aspects {
		if a.FreeInvokes < 0 {
			return Scene{}, apperrors.New(apperrors.CodeSceneTooFewAspects, "aspect free invokes cannot be negative")
		}
	}

	return Scene{
		ID:        input.ID,
		Name:      input.Name,
		Aspects:   append([]Aspect(nil), input.Aspects...),
		Status:    StatusDraft,
		CreatedAt: input.Now.UTC(),
		UpdatedAt: input.Now.UTC(),
	}, nil
}

// CanTransition reports whether a lifecycle transition is legal, returning the
// typed rejection when it is not.
//
//	draft → active        activate
//	active → active       switch (handled transactionally by the store)
//	active → draft        deactivate
//	draft → archived      archive
//	archived → draft      restore
//
// Archiving an active scene and activating an archived scene are rejected.
func CanTransition(from, to Status) error {
	switch {
	case from == StatusActive && to == StatusArchived:
		return ErrIsActive
	case from == StatusArchived && to == StatusActive:
		return ErrArchived
	case from == StatusArchived && to == StatusDraft,
		from == StatusDraft && to == StatusActive,
		from == StatusDraft && to == StatusArchived,
		from == StatusActive && to == StatusDraft,
		from == StatusActive && to == StatusActive:
		return nil
	case from == to:
		return nil
	default:
		return ErrInvalidTransition
	}
}
