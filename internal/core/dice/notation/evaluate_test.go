package notation

import (
	"errors"
	"reflect"
	"testing"
)

func rolledDie(t *testing.T, notation string, rolls ...int) *Die {
	t.Helper()
	segs, err := Parse(notation)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", notation, err)
	}
	d, ok := segs[0].(*Die)
	if !ok {
		t.Fatalf("Parse(%q) first segment is %T", notation, segs[0])
	}
	d.Rolls = rolls
	if err := d.advance(StatusPendingEvaluation); err != nil {
		t.Fatalf("advance: %v", err)
	}
	return d
}

func marks(results []Roll) []Mark {
	out := make([]Mark, len(results))
	for i, r := range results {
		out[i] = r.Mark
	}
	return out
}

func TestEvaluateSelection(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		rolls    []int
		want     []Mark
		subtotal int
	}{
		{
			name:     "no modifier",
			notation: "3d6",
			rolls:    []int{2, 5, 6},
			want:     []Mark{MarkNone, MarkNone, MarkNone},
			subtotal: 13,
		},
		{
			name:     "keep defaults to highest",
			notation: "2d20k1",
			rolls:    []int{14, 9},
			want:     []Mark{MarkKept, MarkNone},
			subtotal: 14,
		},
		{
			name:     "drop defaults to lowest",
			notation: "4d6p1",
			rolls:    []int{3, 1, 4, 2},
			want:     []Mark{MarkNone, MarkDropped, MarkNone, MarkNone},
			subtotal: 9,
		},
		{
			name:     "keep lowest",
			notation: "3d20kl1",
			rolls:    []int{12, 4, 19},
			want:     []Mark{MarkNone, MarkKept, MarkNone},
			subtotal: 4,
		},
		{
			name:     "keep highest ties break by index",
			notation: "4d6kh2",
			rolls:    []int{5, 6, 5, 6},
			want:     []Mark{MarkNone, MarkKept, MarkNone, MarkKept},
			subtotal: 12,
		},
		{
			name:     "drop lowest ties break by index",
			notation: "4d6pl1",
			rolls:    []int{2, 2, 6, 3},
			want:     []Mark{MarkDropped, MarkNone, MarkNone, MarkNone},
			subtotal: 11,
		},
		{
			name:     "keep more than rolled",
			notation: "2d6k5",
			rolls:    []int{3, 4},
			want:     []Mark{MarkKept, MarkKept},
			subtotal: 7,
		},
		{
			name:     "keep equal",
			notation: "4d6k=6",
			rolls:    []int{6, 1, 6, 3},
			want:     []Mark{MarkKept, MarkNone, MarkKept, MarkNone},
			subtotal: 12,
		},
		{
			name:     "drop greater than",
			notation: "3d8p>6",
			rolls:    []int{7, 2, 8},
			want:     []Mark{MarkDropped, MarkNone, MarkDropped},
			subtotal: 2,
		},
		{
			name:     "keep nothing",
			notation: "2d20k0",
			rolls:    []int{14, 9},
			want:     []Mark{MarkNone, MarkNone},
			subtotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rolledDie(t, tt.notation, tt.rolls...)
			derived, err := evaluate(d)
			if err != nil {
				t.Fatalf("evaluate() error = %v", err)
			}
			if len(derived) != 0 {
				t.Fatalf("evaluate() derived %d dice", len(derived))
			}
			if d.Status() != StatusResolved {
				t.Fatalf("status = %s", d.Status())
			}
			if len(d.Results) != d.Amount {
				t.Fatalf("len(Results) = %d, want %d", len(d.Results), d.Amount)
			}
			if got := marks(d.Results); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("marks = %v, want %v", got, tt.want)
			}
			if got := d.Subtotal(); got != tt.subtotal {
				t.Fatalf("Subtotal() = %d, want %d", got, tt.subtotal)
			}
		})
	}
}

func TestEvaluateHighestLowestMarksExactCount(t *testing.T) {
	rolls := []int{4, 4, 1, 6, 6, 2, 4}
	for n := 0; n <= 9; n++ {
		for _, sel := range []Selector{SelectHighest, SelectLowest} {
			results := make([]Roll, len(rolls))
			for i, v := range rolls {
				results[i] = Roll{Value: v, Original: v}
			}
			selected := selectRolls(results, sel, n)
			want := n
			if want > len(rolls) {
				want = len(rolls)
			}
			if len(selected) != want {
				t.Fatalf("selector %s n=%d selected %d, want %d", sel, n, len(selected), want)
			}
		}
	}
}

func TestEvaluateClamp(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		rolls    []int
		want     []Roll
	}{
		{
			name:     "min raises low roll",
			notation: "1d20mi10",
			rolls:    []int{4},
			want:     []Roll{{Value: 10, Original: 4, Mark: MarkOverridden}},
		},
		{
			name:     "min leaves in-bounds rolls",
			notation: "3d20mi10",
			rolls:    []int{10, 15, 9},
			want: []Roll{
				{Value: 10, Original: 10},
				{Value: 15, Original: 15},
				{Value: 10, Original: 9, Mark: MarkOverridden},
			},
		},
		{
			name:     "max lowers high roll",
			notation: "2d6ma4",
			rolls:    []int{6, 3},
			want: []Roll{
				{Value: 4, Original: 6, Mark: MarkOverridden},
				{Value: 3, Original: 3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rolledDie(t, tt.notation, tt.rolls...)
			if _, err := evaluate(d); err != nil {
				t.Fatalf("evaluate() error = %v", err)
			}
			if !reflect.DeepEqual(d.Results, tt.want) {
				t.Fatalf("Results = %+v, want %+v", d.Results, tt.want)
			}
		})
	}
}

func TestEvaluateRerollFamily(t *testing.T) {
	tests := []struct {
		name         string
		notation     string
		rolls        []int
		wantMarks    []Mark
		wantDerived  int
		wantModifier Modifier
	}{
		{
			name:         "reroll once drops matches",
			notation:     "3d6ro1",
			rolls:        []int{1, 4, 1},
			wantMarks:    []Mark{MarkDropped, MarkNone, MarkDropped},
			wantDerived:  2,
			wantModifier: ModNone,
		},
		{
			name:         "reroll infinite chains",
			notation:     "2d6rr<3",
			rolls:        []int{2, 5},
			wantMarks:    []Mark{MarkDropped, MarkNone},
			wantDerived:  1,
			wantModifier: ModRerollInfinite,
		},
		{
			name:         "reroll and add keeps matches",
			notation:     "2d10ra10",
			rolls:        []int{10, 3},
			wantMarks:    []Mark{MarkNone, MarkNone},
			wantDerived:  1,
			wantModifier: ModNone,
		},
		{
			name:         "explode chains",
			notation:     "3d6e6",
			rolls:        []int{6, 6, 2},
			wantMarks:    []Mark{MarkNone, MarkNone, MarkNone},
			wantDerived:  2,
			wantModifier: ModExplode,
		},
		{
			name:         "explode highest does not chain",
			notation:     "3d6eh1",
			rolls:        []int{3, 5, 2},
			wantMarks:    []Mark{MarkNone, MarkNone, MarkNone},
			wantDerived:  1,
			wantModifier: ModNone,
		},
		{
			name:        "no match derives nothing",
			notation:    "3d6ro1",
			rolls:       []int{2, 3, 4},
			wantMarks:   []Mark{MarkNone, MarkNone, MarkNone},
			wantDerived: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rolledDie(t, tt.notation, tt.rolls...)
			derived, err := evaluate(d)
			if err != nil {
				t.Fatalf("evaluate() error = %v", err)
			}
			if got := marks(d.Results); !reflect.DeepEqual(got, tt.wantMarks) {
				t.Fatalf("marks = %v, want %v", got, tt.wantMarks)
			}
			if tt.wantDerived == 0 {
				if len(derived) != 0 {
					t.Fatalf("derived = %d dice groups, want none", len(derived))
				}
				return
			}
			if len(derived) != 1 {
				t.Fatalf("derived = %d dice groups, want 1", len(derived))
			}
			child := derived[0]
			if child.Amount != tt.wantDerived || child.Modifier != tt.wantModifier || child.Type != d.Type {
				t.Fatalf("derived = %+v", child)
			}
			if !child.Derived || child.Depth != 1 || child.Status() != StatusPendingRoll {
				t.Fatalf("derived bookkeeping = %+v", child)
			}
		})
	}
}

func TestEvaluateChainStopsAtDepth(t *testing.T) {
	d := rolledDie(t, "1d6e6", 6)
	d.Depth = MaxRerollDepth - 1
	derived, err := evaluate(d)
	if err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	if len(derived) != 1 || derived[0].Modifier != ModNone {
		t.Fatalf("expected final unmodified derivation, got %+v", derived)
	}
}

func TestEvaluateRejectsInvalidState(t *testing.T) {
	pending := NewDie(D6, 2, ModNone, SelectNone, 0)
	if _, err := evaluate(pending); !errors.Is(err, ErrUnresolvableSegment) {
		t.Fatalf("expected ErrUnresolvableSegment for pending die, got %v", err)
	}

	short := rolledDie(t, "3d6", 1, 2)
	if _, err := evaluate(short); !errors.Is(err, ErrUnresolvableSegment) {
		t.Fatalf("expected ErrUnresolvableSegment for short rolls, got %v", err)
	}

	bad := NewDie(D6, 1, ModMin, SelectHighest, 3)
	bad.Rolls = []int{2}
	bad.status = StatusPendingEvaluation
	if _, err := evaluate(bad); !errors.Is(err, ErrUnresolvableSegment) {
		t.Fatalf("expected ErrUnresolvableSegment for min with selector, got %v", err)
	}
}

func TestDieAdvanceIsForwardOnly(t *testing.T) {
	d := NewDie(D6, 1, ModNone, SelectNone, 0)
	if err := d.advance(StatusResolved); !errors.Is(err, ErrUnresolvableSegment) {
		t.Fatalf("expected skip to be rejected, got %v", err)
	}
	if err := d.advance(StatusPendingEvaluation); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := d.advance(StatusPendingRoll); !errors.Is(err, ErrUnresolvableSegment) {
		t.Fatalf("expected backwards move to be rejected, got %v", err)
	}
}

func TestDefaultSelectors(t *testing.T) {
	tests := map[Modifier]Selector{
		ModKeep:           SelectHighest,
		ModDrop:           SelectLowest,
		ModRerollOnce:     SelectEquals,
		ModRerollInfinite: SelectEquals,
		ModRerollAdd:      SelectEquals,
		ModExplode:        SelectEquals,
		ModMin:            SelectNone,
		ModMax:            SelectNone,
		ModNone:           SelectNone,
	}
	for mod, want := range tests {
		if got := mod.DefaultSelector(); got != want {
			t.Errorf("%v.DefaultSelector() = %v, want %v", mod, got, want)
		}
	}

	d := rolledDie(t, "2d20kl1", 14, 9)
	if got := d.EffectiveSelector(); got != SelectLowest {
		t.Fatalf("explicit selector = %v, want lowest", got)
	}
}
