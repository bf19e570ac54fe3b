// Package dice rolls seeded batches of polyhedral dice.
//
// It is the deterministic randomness primitive underneath the notation
// engine: every face value the engine consumes from a seeded roller is drawn
// here.
package dice

import apperrors "github.com/louisbranch/dicetray/internal/platform/errors"

// Spec describes one batch of identical dice.
type Spec struct {
	Sides int
	Count int
}

// Request is a seeded roll of one or more dice batches.
type Request struct {
	Dice []Spec
	Seed int64
}

// Roll is the outcome of a single Spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Result is the outcome of a Request.
type Result struct {
	Rolls []Roll
	Total int
}

var (
	// ErrMissingDice indicates a request without any dice.
	ErrMissingDice = apperrors.New(apperrors.CodeDiceMissing, "at least one die is required")
	// ErrInvalidDiceSpec indicates a Spec with non-positive sides or count.
	ErrInvalidDiceSpec = apperrors.New(apperrors.CodeDiceInvalidSpec, "dice must have positive sides and count")
)
