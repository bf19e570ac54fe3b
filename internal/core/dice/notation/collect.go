package notation

import (
	"fmt"
	"strconv"
	"strings"
)

// Part is the rendered contribution of one segment.
type Part struct {
	Segment Segment
	// Short is the unsigned subtotal (or the operator symbol).
	Short string
	// Long lists the individual rolls of a die with their marks: kept *v*,
	// dropped ~v~ and overridden ~original~value.
	Long string
}

// Result is the outcome of one resolved expression.
type Result struct {
	Total int
	Parts []Part
}

// TotalText renders the total as text.
func (r Result) TotalText() string {
	return strconv.Itoa(r.Total)
}

// Notation renders the resolved expression in canonical notation.
func (r Result) Notation() string {
	var b strings.Builder
	for _, p := range r.Parts {
		if d, ok := p.Segment.(*Die); ok && d.Derived {
			continue
		}
		b.WriteString(p.Segment.Notation())
	}
	return b.String()
}

// Breakdown renders every term with its rolls, e.g.
// "3d6[2,5,6] + 2d20k1[*14*,9] = 27". Derived dice follow their source
// without an operator.
func (r Result) Breakdown() string {
	var b strings.Builder
	for i, p := range r.Parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch seg := p.Segment.(type) {
		case *Die:
			fmt.Fprintf(&b, "%s[%s]", seg.Notation(), p.Long)
		default:
			b.WriteString(p.Short)
		}
	}
	fmt.Fprintf(&b, " = %d", r.Total)
	return b.String()
}

// collect sums a fully resolved sequence left to right. The sign of each
// operator sticks until the next operator.
func collect(segments []Segment) (Result, error) {
	result := Result{Parts: make([]Part, 0, len(segments))}
	sign := SignPlus
	for i, seg := range segments {
		if seg == nil || seg.Status() != StatusResolved {
			return Result{}, unresolvable(fmt.Sprintf("segment %d is not resolved", i))
		}
		switch s := seg.(type) {
		case Operator:
			sign = s.Symbol
			result.Parts = append(result.Parts, Part{Segment: s, Short: s.Symbol.String(), Long: s.Symbol.String()})
		case Literal:
			total, ok := addTotal(result.Total, sign.apply(s.Value))
			if !ok {
				return Result{}, unresolvable(fmt.Sprintf("total exceeds %d at segment %d", MaxNumber, i))
			}
			result.Total = total
			text := strconv.Itoa(s.Value)
			result.Parts = append(result.Parts, Part{Segment: s, Short: text, Long: text})
		case *Die:
			if len(s.Results) != s.Amount {
				return Result{}, unresolvable(fmt.Sprintf("die %s has %d results for %d dice", s.Notation(), len(s.Results), s.Amount))
			}
			subtotal := s.Subtotal()
			total, ok := addTotal(result.Total, sign.apply(subtotal))
			if !ok {
				return Result{}, unresolvable(fmt.Sprintf("total exceeds %d at segment %d", MaxNumber, i))
			}
			result.Total = total
			result.Parts = append(result.Parts, Part{
				Segment: s,
				Short:   strconv.Itoa(subtotal),
				Long:    formatRolls(s.Results),
			})
		default:
			return Result{}, unresolvable(fmt.Sprintf("segment %d has unknown kind %T", i, seg))
		}
	}
	return result, nil
}

// addTotal adds v to total and reports false once the sum leaves
// [-MaxNumber, MaxNumber]. Both operands are within that range, so the sum
// cannot overflow int.
func addTotal(total, v int) (int, bool) {
	sum := total + v
	if sum > MaxNumber || sum < -MaxNumber {
		return 0, false
	}
	return sum, true
}

func formatRolls(rolls []Roll) string {
	parts := make([]string, len(rolls))
	for i, r := range rolls {
		switch r.Mark {
		case MarkKept:
			parts[i] = fmt.Sprintf("*%d*", r.Value)
		case MarkDropped:
			parts[i] = fmt.Sprintf("~%d~", r.Value)
		case MarkOverridden:
			parts[i] = fmt.Sprintf("~%d~%d", r.Original, r.Value)
		default:
			parts[i] = strconv.Itoa(r.Value)
		}
	}
	return strings.Join(parts, ",")
}
