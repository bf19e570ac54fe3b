package notation

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one element of a parsed expression: a Literal, an Operator or
// a *Die. The set is closed.
type Segment interface {
	// Status returns the resolution stage of the segment.
	Status() Status
	// Notation renders the segment in canonical notation.
	Notation() string
	segment()
}

// Sign is the arithmetic sign carried by an Operator.
type Sign int

const (
	SignPlus Sign = iota
	SignMinus
)

// String returns "+" or "-".
func (s Sign) String() string {
	if s == SignMinus {
		return "-"
	}
	return "+"
}

func (s Sign) apply(v int) int {
	if s == SignMinus {
		return -v
	}
	return v
}

// Literal is a constant term.
type Literal struct {
	Input string
	Value int
}

// Status always reports Resolved.
func (Literal) Status() Status { return StatusResolved }

// Notation returns the decimal value.
func (l Literal) Notation() string { return strconv.Itoa(l.Value) }

func (Literal) segment() {}

// Operator changes the sign applied to every following term.
type Operator struct {
	Symbol Sign
}

// Status always reports Resolved.
func (Operator) Status() Status { return StatusResolved }

// Notation returns the operator symbol.
func (o Operator) Notation() string { return o.Symbol.String() }

func (Operator) segment() {}

// Hint carries presentation options forwarded to the roller untouched, for
// example the colour of a physically thrown die.
type Hint struct {
	Color string
	Scale float64
}

// Die is a group of identical dice with an optional modifier.
type Die struct {
	Input    string
	Type     DieType
	Amount   int
	Modifier Modifier
	Selector Selector
	Value    int
	HasValue bool
	Hint     Hint

	// Rolls holds the values reported by the roller, in die order.
	Rolls []int
	// Results holds the evaluated rolls, one per entry in Rolls.
	Results []Roll

	// Derived is set on dice added by a reroll or explosion; Depth counts
	// how many derivations separate the die from the parsed one.
	Derived bool
	Depth   int

	status Status
}

// NewDie returns a die group pending its roll.
func NewDie(t DieType, amount int, modifier Modifier, selector Selector, value int) *Die {
	d := &Die{
		Type:     t,
		Amount:   amount,
		Modifier: modifier,
		Selector: selector,
		Value:    value,
		HasValue: modifier != ModNone,
		status:   StatusPendingRoll,
	}
	d.Input = d.Notation()
	return d
}

// Status returns the resolution stage of the die.
func (d *Die) Status() Status { return d.status }

// Notation renders the die in canonical form, e.g. "2d20kh1".
func (d *Die) Notation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", d.Amount, d.Type.Faces())
	if d.Modifier != ModNone {
		b.WriteString(d.Modifier.String())
		b.WriteString(d.Selector.String())
		b.WriteString(strconv.Itoa(d.Value))
	}
	return b.String()
}

// EffectiveSelector returns the selector evaluation uses, applying the
// modifier default when the notation omitted one.
func (d *Die) EffectiveSelector() Selector {
	if d.Selector != SelectNone {
		return d.Selector
	}
	return d.Modifier.DefaultSelector()
}

// Subtotal returns the contribution of a resolved die before its sign: the
// sum of kept rolls under keep, otherwise every roll that was not dropped.
func (d *Die) Subtotal() int {
	total := 0
	for _, r := range d.Results {
		switch {
		case d.Modifier == ModKeep:
			if r.Mark == MarkKept {
				total += r.Value
			}
		case r.Mark != MarkDropped:
			total += r.Value
		}
	}
	return total
}

func (*Die) segment() {}

// advance moves the die to the next status. Transitions never go backwards
// or skip a stage.
func (d *Die) advance(to Status) error {
	if to != d.status+1 {
		return unresolvable(fmt.Sprintf("die %s cannot move from %s to %s", d.Notation(), d.status, to))
	}
	d.status = to
	return nil
}

func (d *Die) clone() *Die {
	c := *d
	if d.Rolls != nil {
		c.Rolls = append([]int(nil), d.Rolls...)
	}
	if d.Results != nil {
		c.Results = append([]Roll(nil), d.Results...)
	}
	return &c
}

// derive returns a die group pending its roll that rerolls or extends d.
func (d *Die) derive(amount int, modifier Modifier, selector Selector) *Die {
	c := &Die{
		Type:     d.Type,
		Amount:   amount,
		Modifier: modifier,
		Hint:     d.Hint,
		Derived:  true,
		Depth:    d.Depth + 1,
		status:   StatusPendingRoll,
	}
	if modifier != ModNone {
		c.Selector = selector
		c.Value = d.Value
		c.HasValue = true
	}
	c.Input = c.Notation()
	return c
}
