package dice

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

// TestRollDeterministic ensures the same seed always produces the same result.
func TestRollDeterministic(t *testing.T) {
	first, err := Roll(RollRequest{Modifier: 2, Mode: ModeStandard, Seed: 7})
	if err != nil {
		t.Fatalf("Roll returned error: %v", err)
	}
	second, err := Roll(RollRequest{Modifier: 2, Mode: ModeStandard, Seed: 7})
	if err != nil {
		t.Fatalf("Roll returned error: %v", err)
	}
	if first.Total != second.Total || first.DiceTotal != second.DiceTotal {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	for i := range first.Faces {
		if first.Faces[i] != second.Faces[i] {
			t.Fatalf("face %d differs: %d vs %d", i, first.Faces[i], second.Faces[i])
		}
	}
}

// TestRollStandardBounds checks diceTotal stays within [-4, 4] for many seeds.
func TestRollStandardBounds(t *testing.T) {
	for seed := int64(0); seed < 500; seed++ {
		result, err := Roll(RollRequest{Modifier: 3, Mode: ModeStandard, Seed: seed})
		if err != nil {
			t.Fatalf("Roll returned error: %v", err)
		}
		if result.DiceTotal < -4 || result.DiceTotal > 4 {
			t.Fatalf("seed %d: dice total %d out of [-4,4]", seed, result.DiceTotal)
		}
		if result.Total-result.Modifier != result.DiceTotal {
			t.Fatalf("seed %d: total %d minus modifier %d != dice total %d", seed, result.Total, result.Modifier, result.DiceTotal)
		}
		if result.Bonus != 0 {
			t.Fatalf("seed %d: standard mode rolled a bonus die", seed)
		}
		if result.Outcome != OutcomeNone {
			t.Fatalf("seed %d: outcome computed without opposition", seed)
		}
	}
}

// TestRollAdvantageBounds checks diceTotal stays within [-3, 9] for many seeds.
func TestRollAdvantageBounds(t *testing.T) {
	for seed := int64(0); seed < 500; seed++ {
		result, err := Roll(RollRequest{Mode: ModeAdvantage, Seed: seed})
		if err != nil {
			t.Fatalf("Roll returned error: %v", err)
		}
		if result.DiceTotal < -3 || result.DiceTotal > 9 {
			t.Fatalf("seed %d: dice total %d out of [-3,9]", seed, result.DiceTotal)
		}
		if result.Bonus < 1 || result.Bonus > 6 {
			t.Fatalf("seed %d: bonus die %d out of 1..6", seed, result.Bonus)
		}
		if len(result.Faces) != 3 {
			t.Fatalf("seed %d: expected 3 fate faces, got %d", seed, len(result.Faces))
		}
	}
}

func TestRollInvalidMode(t *testing.T) {
	if _, err := Roll(RollRequest{Mode: ModeUnspecified}); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

// TestEvaluateScenario covers a worked example: faces [+1,+1,0,-1] with
// modifier 2 against opposition 1 is a 2-shift success.
func TestEvaluateScenario(t *testing.T) {
	result, err := Evaluate(EvaluateRequest{
		Faces:      []int{1, 1, 0, -1},
		Mode:       ModeStandard,
		Modifier:   2,
		Opposition: intPtr(1),
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if result.DiceTotal != 1 {
		t.Fatalf("expected dice total 1, got %d", result.DiceTotal)
	}
	if result.Total != 3 {
		t.Fatalf("expected total 3, got %d", result.Total)
	}
	if result.Shifts == nil || *result.Shifts != 2 {
		t.Fatalf("expected 2 shifts, got %v", result.Shifts)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", result.Outcome)
	}
}

// TestOutcomeTiers verifies tier boundaries are exclusive and exhaustive.
func TestOutcomeTiers(t *testing.T) {
	tests := []struct {
		shifts int
		want   Outcome
	}{
		{-5, OutcomeFailure},
		{-1, OutcomeFailure},
		{0, OutcomeTie},
		{1, OutcomeSuccess},
		{2, OutcomeSuccess},
		{3, OutcomeSuccessWithStyle},
		{7, OutcomeSuccessWithStyle},
	}
	for _, tc := range tests {
		opposition := 0
		result, err := Evaluate(EvaluateRequest{
			Faces:      []int{0, 0, 0, 0},
			Mode:       ModeStandard,
			Modifier:   tc.shifts,
			Opposition: &opposition,
		})
		if err != nil {
			t.Fatalf("Evaluate returned error: %v", err)
		}
		if result.Outcome != tc.want {
			t.Errorf("shifts %d: got %s, want %s", tc.shifts, result.Outcome, tc.want)
		}
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		request EvaluateRequest
		want    error
	}{
		{
			name:    "too few faces",
			request: EvaluateRequest{Faces: []int{1, 0}, Mode: ModeStandard},
			want:    ErrInvalidFaceCount,
		},
		{
			name:    "face out of range",
			request: EvaluateRequest{Faces: []int{2, 0, 0, 0}, Mode: ModeStandard},
			want:    ErrInvalidFace,
		},
		{
			name:    "bonus in standard mode",
			request: EvaluateRequest{Faces: []int{0, 0, 0, 0}, Bonus: 4, Mode: ModeStandard},
			want:    ErrInvalidFace,
		},
		{
			name:    "bonus out of range in advantage mode",
			request: EvaluateRequest{Faces: []int{0, 0, 0}, Bonus: 7, Mode: ModeAdvantage},
			want:    ErrInvalidFace,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Evaluate(tc.request); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRollResultFacesAreCopies(t *testing.T) {
	faces := []int{1, 0, -1, 0}
	result, err := Evaluate(EvaluateRequest{Faces: faces, Mode: ModeStandard})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	faces[0] = -1
	if result.Faces[0] != 1 {
		t.Fatal("result faces alias the caller's slice")
	}
}
