// Package table defines the shared game-session record: who runs the table,
// which characters are seated, and the GM's fate-point pool.
package table

import (
	"strings"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

var (
	// ErrGMSeatTaken indicates the GM seat is already held by another user.
	ErrGMSeatTaken = apperrors.New(apperrors.CodeGMSeatTaken, "gm seat is already taken")
	// ErrCharacterTaken indicates the character is already bound to another player.
	ErrCharacterTaken = apperrors.New(apperrors.CodeCharacterTaken, "character is already occupied")
	// ErrEmptyUser indicates a claim without a user id.
	ErrEmptyUser = apperrors.New(apperrors.CodeSeatEmptyUser, "user id is required")
)

// GameSession is the singleton shared state for one episode. It is always
// passed explicitly; nothing in the engine holds it as a process global.
type GameSession struct {
	ID         string
	GMUserID   string
	Seats      map[string]string // characterID -> occupying userID
	GMFatePool int
}

// CharacterIDs returns the seated character ids. Each id appears at most once
// because Seats is keyed by character.
func (s GameSession) CharacterIDs() []string {
	ids := make([]string, 0, len(s.Seats))
	for characterID := range s.Seats {
		ids = append(ids, characterID)
	}
	return ids
}

// CheckGMClaim validates a GM claim against the current holder. Claiming a
// seat already held by the same user is an idempotent success.
func CheckGMClaim(current, claimant string) error {
	if strings.TrimSpace(claimant) == "" {
		return ErrEmptyUser
	}
	if current != "" && current != claimant {
		return apperrors.WithMetadata(
			apperrors.CodeGMSeatTaken,
			"gm seat is already taken",
			map[string]string{"holder": current},
		)
	}
	return nil
}

// CheckSeatClaim validates binding a character to a player.
func CheckSeatClaim(seats map[string]string, characterID, claimant string) error {
	if strings.TrimSpace(claimant) == "" {
		return ErrEmptyUser
	}
	if holder, ok := seats[characterID]; ok && holder != claimant {
		return apperrors.WithMetadata(
			apperrors.CodeCharacterTaken,
			"character is already occupied",
			map[string]string{"character_id": characterID, "holder": holder},
		)
	}
	return nil
}
