package dice

import "math/rand/v2"

// Stream draws die faces from a PCG generator. A Stream is not safe for
// concurrent use; derive one per coordinate with DeriveSeed instead.
type Stream struct {
	rng *rand.Rand
}

// NewStream returns the stream for seed. Equal seeds yield equal faces.
func NewStream(seed int64) *Stream {
	s := uint64(seed)
	return &Stream{rng: rand.New(rand.NewPCG(s, splitmix64(s)))}
}

// Roll validates every spec before drawing any face, then rolls them in
// order. Result.Rolls follows the order of specs.
func (s *Stream) Roll(specs ...Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}
	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}
	}

	out := Result{Rolls: make([]Roll, len(specs))}
	for i, spec := range specs {
		roll := Roll{Sides: spec.Sides, Results: make([]int, spec.Count)}
		for j := range roll.Results {
			roll.Results[j] = s.rng.IntN(spec.Sides) + 1
			roll.Total += roll.Results[j]
		}
		out.Rolls[i] = roll
		out.Total += roll.Total
	}
	return out, nil
}

// RollDice rolls request.Dice from a fresh stream seeded with request.Seed.
//
//	result, err := RollDice(Request{
//	    Dice: []Spec{{Sides: 20, Count: 2}},
//	    Seed: DeriveSeed(seed, group, pass, index),
//	})
func RollDice(request Request) (Result, error) {
	return NewStream(request.Seed).Roll(request.Dice...)
}

// DeriveSeed mixes coordinates such as a group, pass and segment index into
// base. Equal inputs give equal seeds, so rolls keyed by coordinates replay
// identically however they are scheduled.
func DeriveSeed(base int64, coords ...int) int64 {
	state := uint64(base)
	for _, coord := range coords {
		state = splitmix64(state ^ uint64(int64(coord)))
	}
	return int64(splitmix64(state))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
