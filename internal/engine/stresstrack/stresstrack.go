// Package stresstrack derives stress-track shapes and consequence capacity.
//
// Track lengths are a pure function of a character's skills and drive. The
// persisted stress arrays only record which boxes are currently marked; they
// are never the authority on how many boxes exist.
package stresstrack

// Baseline number of boxes per track before skill bonuses.
const Baseline = 3

// Consequence absorption values by severity. These are fixed slots, not
// derived from skills.
const (
	MildAbsorption     = 2
	ModerateAbsorption = 4
	SevereAbsorption   = 6
)

// DeriveInput carries the skill ratings and drive bonuses that shape the
// tracks. Extra boxes granted by a drive arrive pre-resolved so this package
// stays independent of the drive catalog.
type DeriveInput struct {
	Physique      int
	Will          int
	ExtraPhysical int
	ExtraMental   int
}

// Tracks is the derived shape of both stress tracks.
type Tracks struct {
	Physical int
	Mental   int
}

// Derive computes track lengths from skills and drive bonuses. A rating of 1
// or higher adds one box; a rating of 3 or higher adds a second.
func Derive(input DeriveInput) Tracks {
	return Tracks{
		Physical: Baseline + skillBonus(input.Physique) + input.ExtraPhysical,
		Mental:   Baseline + skillBonus(input.Will) + input.ExtraMental,
	}
}

func skillBonus(rating int) int {
	bonus := 0
	if rating >= 1 {
		bonus++
	}
	if rating >= 3 {
		bonus++
	}
	return bonus
}

// Reconcile aligns persisted box marks with a derived track length.
//
// New boxes default to unmarked. Persisted marks beyond the derived length are
// retained in the returned slice so that a shrinking track never destructively
// truncates state another client may still rely on; renderers ignore the
// trailing entries.
func Reconcile(derived int, persisted []bool) []bool {
	if derived <= len(persisted) {
		return append([]bool(nil), persisted...)
	}
	boxes := make([]bool, derived)
	copy(boxes, persisted)
	return boxes
}
