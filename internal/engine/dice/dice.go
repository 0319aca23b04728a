// Package dice implements fate-dice resolution for the tabletop core.
package dice

import (
	"math/rand"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// Mode selects how the dice pool is drawn.
type Mode int

const (
	ModeUnspecified Mode = iota
	// ModeStandard draws four fate dice.
	ModeStandard
	// ModeAdvantage draws three fate dice plus one d6. The d6 strictly raises
	// both the expected value and the ceiling versus standard mode.
	ModeAdvantage
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeAdvantage:
		return "advantage"
	default:
		return "unspecified"
	}
}

// Outcome classifies a resolved roll against its opposition.
type Outcome int

const (
	// OutcomeNone marks a free-standing roll with no opposition.
	OutcomeNone Outcome = iota
	OutcomeFailure
	OutcomeTie
	OutcomeSuccess
	OutcomeSuccessWithStyle
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeFailure:
		return "failure"
	case OutcomeTie:
		return "tie"
	case OutcomeSuccess:
		return "success"
	case OutcomeSuccessWithStyle:
		return "success with style"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidMode indicates an unrecognized roll mode.
	ErrInvalidMode = apperrors.New(apperrors.CodeDiceInvalidMode, "invalid roll mode")
	// ErrInvalidFace indicates a fate face outside {-1, 0, +1} or a d6 outside 1..6.
	ErrInvalidFace = apperrors.New(apperrors.CodeDiceInvalidFace, "die face out of range")
	// ErrInvalidFaceCount indicates the wrong number of fate faces for the mode.
	ErrInvalidFaceCount = apperrors.New(apperrors.CodeDiceInvalidCount, "wrong number of fate faces for mode")
)

const (
	standardFateDice  = 4
	advantageFateDice = 3
)

// RollRequest describes a resolution request.
type RollRequest struct {
	Modifier   int
	Mode       Mode
	Opposition *int
	Seed       int64
}

// RollResult is the immutable record of one resolution. Callers append it to
// the session log; it is never mutated after creation.
type RollResult struct {
	Faces      []int // fate faces in draw order
	Bonus      int   // d6 value in advantage mode, 0 otherwise
	Modifier   int
	DiceTotal  int
	Total      int
	Opposition *int
	Shifts     *int
	Outcome    Outcome
}

// Roll resolves a request by drawing dice and classifying the outcome.
//
// Roll is deterministic with respect to the Seed field: the same seed, mode,
// modifier, and opposition always produce the same result.
func Roll(request RollRequest) (RollResult, error) {
	rng := rand.New(rand.NewSource(request.Seed))

	var faces []int
	bonus := 0
	switch request.Mode {
	case ModeStandard:
		faces = drawFate(rng, standardFateDice)
	case ModeAdvantage:
		faces = drawFate(rng, advantageFateDice)
		bonus = rng.Intn(6) + 1
	default:
		return RollResult{}, ErrInvalidMode
	}

	return Evaluate(EvaluateRequest{
		Faces:      faces,
		Bonus:      bonus,
		Mode:       request.Mode,
		Modifier:   request.Modifier,
		Opposition: request.Opposition,
	})
}

// EvaluateRequest describes a deterministic evaluation over already-drawn dice.
type EvaluateRequest struct {
	Faces      []int
	Bonus      int
	Mode       Mode
	Modifier   int
	Opposition *int
}

// Evaluate classifies already-drawn dice without any randomness, so outcome
// boundaries are testable in isolation from the draw.
func Evaluate(request EvaluateRequest) (RollResult, error) {
	wantFaces := 0
	switch request.Mode {
	case ModeStandard:
		wantFaces = standardFateDice
		if request.Bonus != 0 {
			return RollResult{}, ErrInvalidFace
		}
	case ModeAdvantage:
		wantFaces = advantageFateDice
		if request.Bonus < 1 || request.Bonus > 6 {
			return RollResult{}, ErrInvalidFace
		}
	default:
		return RollResult{}, ErrInvalidMode
	}
	if len(request.Faces) != wantFaces {
		return RollResult{}, ErrInvalidFaceCount
	}

	diceTotal := request.Bonus
	for _, face := range request.Faces {
		if face < -1 || face > 1 {
			return RollResult{}, ErrInvalidFace
		}
		diceTotal += face
	}

	total := diceTotal + request.Modifier
	result := RollResult{
		Faces:      append([]int(nil), request.Faces...),
		Bonus:      request.Bonus,
		Modifier:   request.Modifier,
		DiceTotal:  diceTotal,
		Total:      total,
		Opposition: request.Opposition,
		Outcome:    OutcomeNone,
	}

	if request.Opposition != nil {
		shifts := total - *request.Opposition
		result.Shifts = &shifts
		result.Outcome = classify(shifts)
	}

	return result, nil
}

// classify maps shifts onto the outcome tiers.
func classify(shifts int) Outcome {
	switch {
	case shifts < 0:
		return OutcomeFailure
	case shifts == 0:
		return OutcomeTie
	case shifts < 3:
		return OutcomeSuccess
	default:
		return OutcomeSuccessWithStyle
	}
}

// drawFate draws n independent fate faces uniformly from {-1, 0, +1}.
func drawFate(rng *rand.Rand, n int) []int {
	faces := make([]int, n)
	for i := range faces {
		faces[i] = rng.Intn(3) - 1
	}
	return faces
}
