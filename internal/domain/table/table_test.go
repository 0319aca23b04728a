package table

import (
	"errors"
	"testing"
)

func TestCheckGMClaim(t *testing.T) {
	if err := CheckGMClaim("", "user-1"); err != nil {
		t.Fatalf("expected vacant seat claim to succeed, got %v", err)
	}
	if err := CheckGMClaim("user-1", "user-1"); err != nil {
		t.Fatalf("expected re-claim by holder to succeed, got %v", err)
	}
	if err := CheckGMClaim("user-1", "user-2"); !errors.Is(err, ErrGMSeatTaken) {
		t.Fatalf("expected ErrGMSeatTaken, got %v", err)
	}
	if err := CheckGMClaim("", "  "); !errors.Is(err, ErrEmptyUser) {
		t.Fatalf("expected ErrEmptyUser, got %v", err)
	}
}

func TestCheckSeatClaim(t *testing.T) {
	seats := map[string]string{"char-1": "user-1"}

	if err := CheckSeatClaim(seats, "char-2", "user-2"); err != nil {
		t.Fatalf("expected free seat claim to succeed, got %v", err)
	}
	if err := CheckSeatClaim(seats, "char-1", "user-1"); err != nil {
		t.Fatalf("expected holder re-claim to succeed, got %v", err)
	}
	if err := CheckSeatClaim(seats, "char-1", "user-2"); !errors.Is(err, ErrCharacterTaken) {
		t.Fatalf("expected ErrCharacterTaken, got %v", err)
	}
	if err := CheckSeatClaim(seats, "char-1", ""); !errors.Is(err, ErrEmptyUser) {
		t.Fatalf("expected ErrEmptyUser, got %v", err)
	}
}

func TestCharacterIDsUnique(t *testing.T) {
	session := GameSession{Seats: map[string]string{"char-1": "user-1", "char-2": "user-2"}}
	ids := session.CharacterIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate character id %s", id)
		}
		seen[id] = true
	}
}
