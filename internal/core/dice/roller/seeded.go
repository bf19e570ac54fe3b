// Package roller provides notation.Roller implementations.
package roller

import (
	"context"

	"github.com/louisbranch/dicetray/internal/core/dice"
	"github.com/louisbranch/dicetray/internal/core/dice/notation"
)

// Seeded rolls dice from a base seed. Each request draws from a seed derived
// from (seed, group, pass, index), so a resolution is reproducible no matter how
// concurrent rolls are scheduled.
type Seeded struct {
	seed int64
}

// NewSeeded returns a seeded roller.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{seed: seed}
}

// Seed returns the base seed.
func (s *Seeded) Seed() int64 {
	return s.seed
}

// Roll implements notation.Roller.
func (s *Seeded) Roll(ctx context.Context, req notation.Request) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := dice.RollDice(dice.Request{
		Dice: []dice.Spec{{Sides: req.Die.Faces(), Count: req.Amount}},
		Seed: dice.DeriveSeed(s.seed, req.Group, req.Pass, req.Index),
	})
	if err != nil {
		return nil, err
	}
	return result.Rolls[0].Results, nil
}
