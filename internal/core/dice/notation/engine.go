package notation

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	"golang.org/x/sync/errgroup"
)

// D100Mode decides how the "00" face of a d100 is scored.
type D100Mode int

const (
	// D100Zero scores the "00" face as 0.
	D100Zero D100Mode = iota
	// D100Hundred scores the "00" face as 100.
	D100Hundred
)

// Valid reports whether the mode is known.
func (m D100Mode) Valid() bool {
	return m == D100Zero || m == D100Hundred
}

// Options tune a single resolution.
type Options struct {
	D100Mode D100Mode
	// Hints maps a segment index of the parsed sequence to the hint
	// forwarded to the roller for that die. Derived dice inherit it.
	Hints map[int]Hint
}

// Engine drives segments from parse output to a Result.
type Engine struct {
	roller Roller
}

// NewEngine returns an engine rolling dice with r.
func NewEngine(r Roller) *Engine {
	return &Engine{roller: r}
}

// Roll parses a single expression and resolves it.
func (e *Engine) Roll(ctx context.Context, input string, opts Options) (Result, error) {
	segments, err := Parse(input)
	if err != nil {
		return Result{}, err
	}
	return e.RollSegments(ctx, segments, opts)
}

// ParseAndRoll resolves every whitespace-separated group of input in order
// and returns one result per group.
func (e *Engine) ParseAndRoll(ctx context.Context, input string, opts Options) ([]Result, error) {
	groups, err := ParseGroups(input)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(groups))
	for group, segments := range groups {
		result, err := e.rollSegments(ctx, group, segments, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// RollSegments resolves a parsed sequence. The input slice is not modified.
//
// # Passes
//
// Each pass rolls every die pending a roll concurrently and waits for all of
// them; values are written back by segment index so completion order never
// matters. Rolled dice are then evaluated and any derived dice are inserted
// right after their source for the next pass. A failed roll fails the whole
// resolution with ErrRollSourceFailure and no partial result.
func (e *Engine) RollSegments(ctx context.Context, segments []Segment, opts Options) (Result, error) {
	return e.rollSegments(ctx, 0, segments, opts)
}

func (e *Engine) rollSegments(ctx context.Context, group int, segments []Segment, opts Options) (Result, error) {
	if e == nil || e.roller == nil {
		return Result{}, apperrors.New(apperrors.CodeRollSourceFailure, "engine has no roller")
	}
	if !opts.D100Mode.Valid() {
		return Result{}, apperrors.WithMetadata(apperrors.CodeNotationD100ModeRange,
			fmt.Sprintf("unknown d100 mode %d", opts.D100Mode),
			map[string]string{"Mode": fmt.Sprint(int(opts.D100Mode))})
	}
	segs, err := prepare(segments, opts.Hints)
	if err != nil {
		return Result{}, err
	}

	for pass := 0; !allResolved(segs); pass++ {
		if pass > MaxRerollDepth+1 {
			return Result{}, unresolvable("resolution did not settle")
		}
		if err := ctx.Err(); err != nil {
			return Result{}, apperrors.Wrap(apperrors.CodeRollSourceFailure, "resolution canceled", err)
		}

		pending := pendingRolls(segs)
		if err := e.rollPending(ctx, segs, pending, group, pass, opts.D100Mode); err != nil {
			return Result{}, err
		}

		next, evaluated, err := evaluatePending(segs)
		if err != nil {
			return Result{}, err
		}
		if len(pending) == 0 && evaluated == 0 {
			return Result{}, unresolvable("no segment can advance")
		}
		segs = next
	}
	return collect(segs)
}

func (e *Engine) rollPending(ctx context.Context, segs []Segment, pending []int, group, pass int, mode D100Mode) error {
	if len(pending) == 0 {
		return nil
	}
	values := make([][]int, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for slot, index := range pending {
		d := segs[index].(*Die)
		req := Request{Group: group, Index: index, Pass: pass, Die: d.Type, Amount: d.Amount, Hint: d.Hint}
		g.Go(func() error {
			rolled, err := e.roller.Roll(gctx, req)
			if err != nil {
				return rollFailure(req, err)
			}
			if err := checkRolled(req, rolled); err != nil {
				return rollFailure(req, err)
			}
			values[slot] = rolled
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for slot, index := range pending {
		d := segs[index].(*Die)
		d.Rolls = applyD100Mode(d.Type, values[slot], mode)
		if err := d.advance(StatusPendingEvaluation); err != nil {
			return err
		}
	}
	return nil
}

// applyD100Mode is the single place the d100 scoring policy is applied.
func applyD100Mode(t DieType, natural []int, mode D100Mode) []int {
	out := append([]int(nil), natural...)
	if t != D100 || mode != D100Zero {
		return out
	}
	for i, v := range out {
		if v == 100 {
			out[i] = 0
		}
	}
	return out
}

func checkRolled(req Request, rolled []int) error {
	if len(rolled) != req.Amount {
		return fmt.Errorf("roller returned %d values for %d dice", len(rolled), req.Amount)
	}
	faces := req.Die.Faces()
	for i, v := range rolled {
		if v < 1 || v > faces {
			return fmt.Errorf("roller value %d at %d is outside 1..%d", v, i, faces)
		}
	}
	return nil
}

// evaluatePending evaluates every rolled die and splices derived dice after
// their source.
func evaluatePending(segs []Segment) ([]Segment, int, error) {
	next := make([]Segment, 0, len(segs))
	evaluated := 0
	for _, seg := range segs {
		next = append(next, seg)
		d, ok := seg.(*Die)
		if !ok || d.status != StatusPendingEvaluation {
			continue
		}
		derived, err := evaluate(d)
		if err != nil {
			return nil, 0, err
		}
		evaluated++
		for _, child := range derived {
			next = append(next, child)
		}
	}
	return next, evaluated, nil
}

func pendingRolls(segs []Segment) []int {
	var pending []int
	for i, seg := range segs {
		if d, ok := seg.(*Die); ok && d.status == StatusPendingRoll {
			pending = append(pending, i)
		}
	}
	return pending
}

func allResolved(segs []Segment) bool {
	for _, seg := range segs {
		if seg.Status() != StatusResolved {
			return false
		}
	}
	return true
}

// prepare copies the caller's segments and checks they can be resolved.
func prepare(segments []Segment, hints map[int]Hint) ([]Segment, error) {
	if len(segments) == 0 {
		return nil, unresolvable("sequence is empty")
	}
	segs := make([]Segment, len(segments))
	for i, seg := range segments {
		switch s := seg.(type) {
		case Literal, Operator:
			segs[i] = s
		case *Die:
			if s == nil {
				return nil, unresolvable(fmt.Sprintf("segment %d is a nil die", i))
			}
			if err := checkDie(s); err != nil {
				return nil, err
			}
			c := s.clone()
			if hint, ok := hints[i]; ok {
				c.Hint = hint
			}
			segs[i] = c
		default:
			return nil, unresolvable(fmt.Sprintf("segment %d has unknown kind %T", i, seg))
		}
	}
	return segs, nil
}

func checkDie(d *Die) error {
	if d.Type.Faces() == 0 || d.Amount <= 0 {
		return unresolvable(fmt.Sprintf("die %q has no valid type or amount", d.Input))
	}
	switch d.status {
	case StatusPendingRoll:
		if d.Rolls != nil || d.Results != nil {
			return unresolvable(fmt.Sprintf("die %s is pending a roll but has values", d.Notation()))
		}
	case StatusPendingEvaluation:
		if len(d.Rolls) != d.Amount {
			return unresolvable(fmt.Sprintf("die %s has %d rolls for %d dice", d.Notation(), len(d.Rolls), d.Amount))
		}
	case StatusResolved:
		if len(d.Results) != d.Amount {
			return unresolvable(fmt.Sprintf("die %s has %d results for %d dice", d.Notation(), len(d.Results), d.Amount))
		}
	default:
		return unresolvable(fmt.Sprintf("die %s has status %s", d.Notation(), d.status))
	}
	return nil
}
