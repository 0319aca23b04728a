package pyramid

import (
	"strings"
	"testing"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

func completePyramid() map[string]int {
	return map[string]int{
		"Fight": 4,
		"Drive": 3, "Lore": 3,
		"Rapport": 2, "Stealth": 2, "Will": 2,
		"Athletics": 1, "Contacts": 1, "Empathy": 1, "Physique": 1,
	}
}

func TestValidateCompleteAcceptsExactShape(t *testing.T) {
	result := ValidateComplete(completePyramid())
	if !result.Valid {
		t.Fatalf("expected valid pyramid, got %v", result.Err)
	}
}

func TestValidateCompleteRejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name     string
		skills   map[string]int
		wantCode apperrors.Code
		wantText string
	}{
		{
			name:     "two skills at level four",
			skills:   map[string]int{"A": 4, "B": 4, "C": 3},
			wantCode: apperrors.CodePyramidLevelOverflow,
			wantText: "level 4",
		},
		{
			name: "missing a level one skill",
			skills: map[string]int{
				"A": 4, "B": 3, "C": 3,
				"D": 2, "E": 2, "F": 2,
				"G": 1, "H": 1, "I": 1,
			},
			wantCode: apperrors.CodePyramidIncomplete,
			wantText: "level 1",
		},
		{
			name:     "level out of range",
			skills:   map[string]int{"A": 5},
			wantCode: apperrors.CodePyramidLevelRange,
			wantText: "A",
		},
		{
			name:     "empty allocation",
			skills:   map[string]int{},
			wantCode: apperrors.CodePyramidIncomplete,
			wantText: "level 4",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateComplete(tc.skills)
			if result.Valid {
				t.Fatal("expected invalid result")
			}
			if result.Err == nil {
				t.Fatal("expected an error describing the failure")
			}
			if result.Err.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, result.Err.Code)
			}
			if !strings.Contains(result.Err.Message, tc.wantText) {
				t.Fatalf("expected error naming %q, got %q", tc.wantText, result.Err.Message)
			}
		})
	}
}

func TestValidateAllowsPartialAllocations(t *testing.T) {
	result := Validate(map[string]int{"Fight": 4, "Lore": 2})
	if !result.Valid {
		t.Fatalf("expected partial allocation to be valid, got %v", result.Err)
	}
}

func TestCheckIncrement(t *testing.T) {
	skills := completePyramid()

	// Raising a level-1 skill to level 2 would put four skills at level 2.
	result := CheckIncrement(skills, "Athletics")
	if result.Valid {
		t.Fatal("expected overflow at level 2")
	}
	if result.Err.Code != apperrors.CodePyramidLevelOverflow {
		t.Fatalf("expected overflow code, got %s", result.Err.Code)
	}

	// With a vacancy at level 3, raising a level-2 skill is legal.
	partial := map[string]int{
		"Fight": 4,
		"Drive": 3,
		"Will":  2, "Stealth": 2,
	}
	result = CheckIncrement(partial, "Will")
	if !result.Valid {
		t.Fatalf("expected legal increment, got %v", result.Err)
	}

	// A brand-new skill enters at level 1.
	result = CheckIncrement(partial, "Empathy")
	if !result.Valid {
		t.Fatalf("expected new skill at level 1 to be legal, got %v", result.Err)
	}
}

func TestCheckIncrementCapsAtMaxLevel(t *testing.T) {
	result := CheckIncrement(map[string]int{"Fight": 4}, "Fight")
	if result.Valid {
		t.Fatal("expected increment past level 4 to be rejected")
	}
	if result.Err.Code != apperrors.CodePyramidLevelRange {
		t.Fatalf("expected range code, got %s", result.Err.Code)
	}
}

func TestValidateNeverMutates(t *testing.T) {
	skills := completePyramid()
	Validate(skills)
	ValidateComplete(skills)
	CheckIncrement(skills, "Fight")
	if len(skills) != 10 || skills["Fight"] != 4 {
		t.Fatal("validator mutated the skill map")
	}
}
