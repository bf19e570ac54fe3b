package notation

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDiceAmount bounds the dice count of a single term.
const MaxDiceAmount = 1000

// MaxNumber bounds every integer in an expression (2^53 - 1) so totals stay
// exact as JSON, protobuf Struct and Lua numbers.
const MaxNumber = 1<<53 - 1

// Parse compiles one expression into segments.
//
// Grammar (whitespace is allowed between terms and operators):
//
//	expr      := term (op term)*
//	op        := '+' | '-'
//	term      := count 'd' faces modifier? | integer
//	modifier  := ('k'|'p'|'e'|'rr'|'ro'|'ra') selector? integer
//	           | ('mi'|'ma') integer
//	selector  := 'h' | 'l' | '=' | '<' | '>'
//
// Faces must be one of 4, 6, 8, 10, 12, 20 or 100. Every failure is
// ErrMalformedNotation carrying the offending byte offset.
func Parse(input string) ([]Segment, error) {
	p := &parser{input: input}
	return p.parse()
}

type parser struct {
	input    string
	pos      int
	segments []Segment
}

func (p *parser) parse() ([]Segment, error) {
	p.skipSpace()
	if p.eof() {
		return nil, malformed(p.input, p.pos, "notation is empty")
	}

	expectTerm := true
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		c := p.peek()
		if expectTerm {
			switch {
			case isDigit(c):
				seg, err := p.term()
				if err != nil {
					return nil, err
				}
				p.segments = append(p.segments, seg)
				expectTerm = false
			case c == '+' || c == '-':
				if len(p.segments) == 0 {
					return nil, malformed(p.input, p.pos, "expression cannot start with an operator")
				}
				return nil, malformed(p.input, p.pos, "operator must be followed by a term")
			case c == 'd':
				return nil, malformed(p.input, p.pos, "dice count is required")
			default:
				return nil, p.unexpected()
			}
			continue
		}

		switch {
		case c == '+':
			p.segments = append(p.segments, Operator{Symbol: SignPlus})
		case c == '-':
			p.segments = append(p.segments, Operator{Symbol: SignMinus})
		case isDigit(c):
			return nil, malformed(p.input, p.pos, "terms must be joined by + or -")
		default:
			return nil, p.unexpected()
		}
		p.pos++
		expectTerm = true
	}

	if expectTerm {
		return nil, malformed(p.input, p.pos, "expression cannot end with an operator")
	}
	return p.segments, nil
}

func (p *parser) term() (Segment, error) {
	start := p.pos
	count, err := p.number()
	if err != nil {
		return nil, err
	}
	if p.eof() || p.peek() != 'd' {
		return Literal{Input: p.input[start:p.pos], Value: count}, nil
	}
	p.pos++

	if p.eof() || !isDigit(p.peek()) {
		return nil, malformed(p.input, p.pos, "die faces are required")
	}
	facesPos := p.pos
	faces, err := p.number()
	if err != nil {
		return nil, err
	}
	dieType, ok := DieTypeForFaces(faces)
	if !ok {
		return nil, malformed(p.input, facesPos, fmt.Sprintf("unsupported die d%d", faces))
	}
	switch {
	case count == 0:
		return nil, malformed(p.input, start, "dice count must be positive")
	case count > MaxDiceAmount:
		return nil, malformed(p.input, start, fmt.Sprintf("dice count exceeds %d", MaxDiceAmount))
	}

	d := &Die{Type: dieType, Amount: count, status: StatusPendingRoll}
	if err := p.modifier(d); err != nil {
		return nil, err
	}
	d.Input = p.input[start:p.pos]
	return d, nil
}

func (p *parser) modifier(d *Die) error {
	if p.eof() || !isLetter(p.peek()) {
		return nil
	}
	modPos := p.pos
	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "mi"):
		d.Modifier = ModMin
	case strings.HasPrefix(rest, "ma"):
		d.Modifier = ModMax
	case strings.HasPrefix(rest, "rr"):
		d.Modifier = ModRerollInfinite
	case strings.HasPrefix(rest, "ro"):
		d.Modifier = ModRerollOnce
	case strings.HasPrefix(rest, "ra"):
		d.Modifier = ModRerollAdd
	case rest[0] == 'k':
		d.Modifier = ModKeep
	case rest[0] == 'p':
		d.Modifier = ModDrop
	case rest[0] == 'e':
		d.Modifier = ModExplode
	default:
		return malformed(p.input, modPos, fmt.Sprintf("unknown modifier %q", rest[0]))
	}
	p.pos += len(d.Modifier.String())

	if !p.eof() {
		if sel, ok := selectorFor(p.peek()); ok {
			if !d.Modifier.Selective() {
				return malformed(p.input, p.pos, fmt.Sprintf("modifier %q does not take a selector", d.Modifier.String()))
			}
			d.Selector = sel
			p.pos++
		} else if isLetter(p.peek()) {
			return malformed(p.input, p.pos, fmt.Sprintf("unknown selector %q", p.peek()))
		}
	}

	if p.eof() || !isDigit(p.peek()) {
		return malformed(p.input, p.pos, fmt.Sprintf("modifier %q requires a value", d.Modifier.String()))
	}
	value, err := p.number()
	if err != nil {
		return err
	}
	d.Value = value
	d.HasValue = true
	return nil
}

func (p *parser) number() (int, error) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil || n > MaxNumber {
		return 0, malformed(p.input, start, fmt.Sprintf("number exceeds %d", MaxNumber))
	}
	return n, nil
}

func (p *parser) unexpected() error {
	return malformed(p.input, p.pos, fmt.Sprintf("unexpected character %q", p.peek()))
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.input) }
func (p *parser) peek() byte { return p.input[p.pos] }

func selectorFor(c byte) (Selector, bool) {
	switch c {
	case 'h':
		return SelectHighest, true
	case 'l':
		return SelectLowest, true
	case '=':
		return SelectEquals, true
	case '<':
		return SelectLessThan, true
	case '>':
		return SelectGreaterThan, true
	}
	return SelectNone, false
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
