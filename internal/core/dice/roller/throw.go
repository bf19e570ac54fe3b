package roller

import (
	"context"
	"fmt"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
)

// ThrowDie is one physical die to throw.
type ThrowDie struct {
	// Faces is the die shape. A d100 is never thrown directly: it is a
	// tens die (Faces 100, reporting 10..100 where 100 is "00") plus a
	// units d10.
	Faces int
	Tens  bool
	Hint  notation.Hint
}

// Thrower throws physical or simulated dice and reports the face that came
// up for each requested die, in request order.
type Thrower interface {
	Throw(ctx context.Context, dice []ThrowDie) ([]int, error)
}

// ThrowerFunc adapts a function to Thrower.
type ThrowerFunc func(ctx context.Context, dice []ThrowDie) ([]int, error)

// Throw calls f.
func (f ThrowerFunc) Throw(ctx context.Context, dice []ThrowDie) ([]int, error) {
	return f(ctx, dice)
}

// Throw adapts a Thrower to notation.Roller.
type Throw struct {
	thrower Thrower
}

// NewThrow returns a roller backed by t.
func NewThrow(t Thrower) *Throw {
	return &Throw{thrower: t}
}

// Roll implements notation.Roller.
func (t *Throw) Roll(ctx context.Context, req notation.Request) ([]int, error) {
	faces := req.Die.Faces()
	throws := make([]ThrowDie, 0, req.Amount*2)
	for i := 0; i < req.Amount; i++ {
		if req.Die == notation.D100 {
			throws = append(throws,
				ThrowDie{Faces: 100, Tens: true, Hint: req.Hint},
				ThrowDie{Faces: 10, Hint: req.Hint},
			)
			continue
		}
		throws = append(throws, ThrowDie{Faces: faces, Hint: req.Hint})
	}

	faceValues, err := t.thrower.Throw(ctx, throws)
	if err != nil {
		return nil, err
	}
	if len(faceValues) != len(throws) {
		return nil, fmt.Errorf("thrower returned %d faces for %d dice", len(faceValues), len(throws))
	}
	if req.Die != notation.D100 {
		return faceValues, nil
	}

	values := make([]int, req.Amount)
	for i := range values {
		v, err := CombineD100(faceValues[2*i], faceValues[2*i+1])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// CombineD100 joins a tens face (10..100, 100 meaning "00") and a units
// face (1..10, 10 meaning "0") into a natural d100 value in 1..100. Both
// zero faces together read as 100.
func CombineD100(tens, units int) (int, error) {
	if tens < 10 || tens > 100 || tens%10 != 0 {
		return 0, fmt.Errorf("invalid tens face %d", tens)
	}
	if units < 1 || units > 10 {
		return 0, fmt.Errorf("invalid units face %d", units)
	}
	tens %= 100
	units %= 10
	if tens == 0 && units == 0 {
		return 100, nil
	}
	return tens + units, nil
}
