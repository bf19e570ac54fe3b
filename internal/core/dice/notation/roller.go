package notation

import "context"

// Request asks a Roller for the face values of one die group.
type Request struct {
	// Group is the position of the expression within multi-group notation.
	Group int
	// Index is the position of the segment in the sequence being resolved.
	Index int
	// Pass is the resolution pass, starting at 0. Rerolled and exploded
	// dice are requested on later passes.
	Pass   int
	Die    DieType
	Amount int
	Hint   Hint
}

// Roller produces natural face values: exactly Amount values in
// [1, Die.Faces()], in die order. For a d100, 100 is the "00" face.
type Roller interface {
	Roll(ctx context.Context, req Request) ([]int, error)
}

// RollerFunc adapts a function to Roller.
type RollerFunc func(ctx context.Context, req Request) ([]int, error)

// Roll calls f.
func (f RollerFunc) Roll(ctx context.Context, req Request) ([]int, error) {
	return f(ctx, req)
}
