// Package pyramid validates skill allocations against the pyramid shape.
//
// The allowed shape is one skill at level 4, two at level 3, three at level 2,
// and four at level 1. Level 0 means untrained and is absent from the map.
package pyramid

import (
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// MinLevel and MaxLevel bound trained skill levels.
const (
	MinLevel = 1
	MaxLevel = 4
)

// capacity is the number of skills allowed at each level.
var capacity = map[int]int{4: 1, 3: 2, 2: 3, 1: 4}

// Result reports whether an allocation is valid. The validator only advises;
// it never mutates the skill map.
type Result struct {
	Valid bool
	Err   *apperrors.Error
}

func ok() Result {
	return Result{Valid: true}
}

func invalid(err *apperrors.Error) Result {
	return Result{Valid: false, Err: err}
}

// Validate checks that no level exceeds its capacity and every level is in
// range. Partial allocations (under capacity) are allowed, so advancement can
// proceed one point at a time.
func Validate(skills map[string]int) Result {
	counts := make(map[int]int, len(skills))
	for name, level := range skills {
		if level < MinLevel || level > MaxLevel {
			return invalid(apperrors.WithMetadata(
				apperrors.CodePyramidLevelRange,
				fmt.Sprintf("skill %q has level %d outside %d..%d", name, level, MinLevel, MaxLevel),
				map[string]string{"skill": name, "level": strconv.Itoa(level)},
			))
		}
		counts[level]++
	}

	levels := make([]int, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))

	for _, level := range levels {
		if counts[level] > capacity[level] {
			return invalid(overflow(level, counts[level]))
		}
	}
	return ok()
}

// ValidateComplete checks the exact pyramid shape required to finish character
// creation: each level filled to capacity, nothing more and nothing less.
func ValidateComplete(skills map[string]int) Result {
	if result := Validate(skills); !result.Valid {
		return result
	}

	counts := make(map[int]int, len(skills))
	for _, level := range skills {
		counts[level]++
	}
	for level := MaxLevel; level >= MinLevel; level-- {
		if counts[level] != capacity[level] {
			return invalid(apperrors.WithMetadata(
				apperrors.CodePyramidIncomplete,
				fmt.Sprintf("level %d has %d skills, needs exactly %d", level, counts[level], capacity[level]),
				map[string]string{"level": strconv.Itoa(level), "have": strconv.Itoa(counts[level]), "want": strconv.Itoa(capacity[level])},
			))
		}
	}
	return ok()
}

// CheckIncrement validates raising the named skill by one point. The change is
// legal only if the occupancy of the resulting level stays within capacity.
func CheckIncrement(skills map[string]int, name string) Result {
	next := skills[name] + 1
	if next > MaxLevel {
		return invalid(apperrors.WithMetadata(
			apperrors.CodePyramidLevelRange,
			fmt.Sprintf("skill %q cannot be raised past level %d", name, MaxLevel),
			map[string]string{"skill": name, "level": strconv.Itoa(next)},
		))
	}

	occupancy := 1 // the raised skill itself
	for other, level := range skills {
		if other != name && level == next {
			occupancy++
		}
	}
	if occupancy > capacity[next] {
		return invalid(overflow(next, occupancy))
	}
	return ok()
}

func overflow(level, count int) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodePyramidLevelOverflow,
		fmt.Sprintf("level %d has %d skills, capacity is %d", level, count, capacity[level]),
		map[string]string{"level": strconv.Itoa(level), "have": strconv.Itoa(count), "capacity": strconv.Itoa(capacity[level])},
	)
}
