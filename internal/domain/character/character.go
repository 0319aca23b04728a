// Package character defines the player-character record and its validation.
package character

import (
	"strings"
	"time"

	"github.com/ashfall-games/fatetable/internal/domain/drive"
	"github.com/ashfall-games/fatetable/internal/engine/stresstrack"
	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

var (
	// ErrEmptyName indicates a character was created without a name.
	ErrEmptyName = apperrors.New(apperrors.CodeCharacterEmptyName, "character name is required")
	// ErrEmptyOwner indicates a character has no owning user.
	ErrEmptyOwner = apperrors.New(apperrors.CodeCharacterEmptyOwner, "character owner is required")
	// ErrNegativeFate indicates a negative fate-point or refresh value at creation.
	ErrNegativeFate = apperrors.New(apperrors.CodeCharacterNegativeFate, "fate points and refresh must be non-negative")
	// ErrArchived indicates a mutation against an archived character.
	ErrArchived = apperrors.New(apperrors.CodeCharacterArchived, "character is archived")
)

// Aspects holds the fixed aspect slots plus free-form extras.
type Aspects struct {
	HighConcept string
	Drama       string
	Job         string
	DreamBoard  string
	Free        []string
}

// All returns every non-empty aspect phrase in slot order.
func (a Aspects) All() []string {
	out := make([]string, 0, 4+len(a.Free))
	for _, phrase := range []string{a.HighConcept, a.Drama, a.Job, a.DreamBoard} {
		if strings.TrimSpace(phrase) != "" {
			out = append(out, phrase)
		}
	}
	for _, phrase := range a.Free {
		if strings.TrimSpace(phrase) != "" {
			out = append(out, phrase)
		}
	}
	return out
}

// Consequences are the three fixed-severity complication slots. Nil means the
// slot is open.
type Consequences struct {
	Mild     *string
	Moderate *string
	Severe   *string
}

// Active returns the filled consequence texts in severity order.
func (c Consequences) Active() []string {
	out := make([]string, 0, 3)
	for _, slot := range []*string{c.Mild, c.Moderate, c.Severe} {
		if slot != nil && strings.TrimSpace(*slot) != "" {
			out = append(out, *slot)
		}
	}
	return out
}

// Stress records which boxes are currently marked. Lengths here are history,
// not authority; DeriveTracks computes the expected shape.
type Stress struct {
	Physical []bool
	Mental   []bool
}

// SituationalAspect is a transient invocable fact attached to a character.
type SituationalAspect struct {
	ID          string
	Name        string
	FreeInvokes int
	CreatedBy   string
	IsTemporary bool
}

// Character is the full player-character record.
type Character struct {
	ID                 string
	Name               string
	OwnerUserID        string
	Skills             map[string]int
	Stress             Stress
	Consequences       Consequences
	FatePoints         int
	Refresh            int
	Aspects            Aspects
	SituationalAspects []SituationalAspect
	Drive              drive.ID
	Maneuvers          []drive.ManeuverID
	Archived           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateInput describes the input for creating a character.
type CreateInput struct {
	ID          string
	Name        string
	OwnerUserID string
	Skills      map[string]int
	FatePoints  int
	Refresh     int
	Aspects     Aspects
	Drive       drive.ID
	Now         time.Time
}

// Create builds a validated character record.
func Create(input CreateInput) (Character, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Character{}, ErrEmptyName
	}
	if strings.TrimSpace(input.OwnerUserID) == "" {
		return Character{}, ErrEmptyOwner
	}
	if input.FatePoints < 0 || input.Refresh < 0 {
		return Character{}, ErrNegativeFate
	}

	skills := make(map[string]int, len(input.Skills))
	for name, level := range input.Skills {
		skills[name] = level
	}

	return Character{
		ID:          input.ID,
		Name:        input.Name,
		OwnerUserID: input.OwnerUserID,
		Skills:      skills,
		FatePoints:  input.FatePoints,
		Refresh:     input.Refresh,
		Aspects:     input.Aspects,
		Drive:       input.Drive,
		CreatedAt:   input.Now.UTC(),
		UpdatedAt:   input.Now.UTC(),
	}, nil
}

// DeriveTracks computes the expected stress-track shape from skills and drive.
func (c Character) DeriveTracks() stresstrack.Tracks {
	physical, mental := drive.TrackBonus(c.Drive)
	return stresstrack.Derive(stresstrack.DeriveInput{
		Physique:      c.Skills["Physique"],
		Will:          c.Skills["Will"],
		ExtraPhysical: physical,
		ExtraMental:   mental,
	})
}

// ReconciledStress aligns the persisted marks with the derived track shape.
func (c Character) ReconciledStress() Stress {
	tracks := c.DeriveTracks()
	return Stress{
		Physical: stresstrack.Reconcile(tracks.Physical, c.Stress.Physical),
		Mental:   stresstrack.Reconcile(tracks.Mental, c.Stress.Mental),
	}
}
