package notation

import "strconv"

// DieType is one of the supported polyhedral dice.
type DieType int

const (
	DieUnknown DieType = iota
	D4
	D6
	D8
	D10
	D12
	D20
	D100
)

var dieFaces = map[DieType]int{
	D4:   4,
	D6:   6,
	D8:   8,
	D10:  10,
	D12:  12,
	D20:  20,
	D100: 100,
}

// DieTypeForFaces returns the die type with the given number of faces.
func DieTypeForFaces(faces int) (DieType, bool) {
	for t, f := range dieFaces {
		if f == faces {
			return t, true
		}
	}
	return DieUnknown, false
}

// Faces returns the number of faces, or 0 for an unknown type.
func (t DieType) Faces() int {
	return dieFaces[t]
}

// String returns the conventional name, e.g. "d20".
func (t DieType) String() string {
	if f := t.Faces(); f > 0 {
		return "d" + strconv.Itoa(f)
	}
	return "d?"
}

// Modifier is the rule applied to a die group after it is rolled.
type Modifier int

const (
	ModNone Modifier = iota
	ModKeep
	ModDrop
	ModMin
	ModMax
	ModRerollInfinite
	ModRerollOnce
	ModRerollAdd
	ModExplode
)

var modifierTokens = map[Modifier]string{
	ModKeep:           "k",
	ModDrop:           "p",
	ModMin:            "mi",
	ModMax:            "ma",
	ModRerollInfinite: "rr",
	ModRerollOnce:     "ro",
	ModRerollAdd:      "ra",
	ModExplode:        "e",
}

// String returns the notation token for the modifier.
func (m Modifier) String() string {
	return modifierTokens[m]
}

// Selective reports whether the modifier accepts a selector.
func (m Modifier) Selective() bool {
	switch m {
	case ModKeep, ModDrop, ModRerollInfinite, ModRerollOnce, ModRerollAdd, ModExplode:
		return true
	default:
		return false
	}
}

// DefaultSelector is the selector applied when the notation omits one:
// keep selects the highest rolls, drop the lowest and the reroll family
// compares for equality.
func (m Modifier) DefaultSelector() Selector {
	switch m {
	case ModKeep:
		return SelectHighest
	case ModDrop:
		return SelectLowest
	case ModRerollInfinite, ModRerollOnce, ModRerollAdd, ModExplode:
		return SelectEquals
	default:
		return SelectNone
	}
}

// Selector chooses which rolls a modifier applies to.
type Selector int

const (
	SelectNone Selector = iota
	SelectEquals
	SelectLessThan
	SelectGreaterThan
	SelectHighest
	SelectLowest
)

var selectorTokens = map[Selector]string{
	SelectEquals:      "=",
	SelectLessThan:    "<",
	SelectGreaterThan: ">",
	SelectHighest:     "h",
	SelectLowest:      "l",
}

// String returns the notation token for the selector.
func (s Selector) String() string {
	return selectorTokens[s]
}

// Comparison reports whether the selector compares each roll with the
// modifier value instead of ranking the rolls.
func (s Selector) Comparison() bool {
	return s == SelectEquals || s == SelectLessThan || s == SelectGreaterThan
}

// Mark annotates a single roll after evaluation.
type Mark int

const (
	MarkNone Mark = iota
	MarkKept
	MarkDropped
	MarkOverridden
)

// String returns the mark name.
func (m Mark) String() string {
	switch m {
	case MarkKept:
		return "kept"
	case MarkDropped:
		return "dropped"
	case MarkOverridden:
		return "overridden"
	default:
		return ""
	}
}

// Roll is one evaluated die. Original differs from Value only when a
// min/max clamp overrode the rolled value.
type Roll struct {
	Value    int
	Original int
	Mark     Mark
}
