package notation

import (
	"fmt"
	"sort"
)

// MaxRerollDepth bounds chained rerolls and explosions.
const MaxRerollDepth = 20

// evaluate resolves a rolled die and returns any derived dice that must be
// rolled next.
func evaluate(d *Die) ([]*Die, error) {
	if d.status != StatusPendingEvaluation {
		return nil, unresolvable(fmt.Sprintf("die %s is %s, want %s", d.Notation(), d.status, StatusPendingEvaluation))
	}
	if len(d.Rolls) != d.Amount {
		return nil, unresolvable(fmt.Sprintf("die %s has %d rolls for %d dice", d.Notation(), len(d.Rolls), d.Amount))
	}

	if err := checkModifier(d); err != nil {
		return nil, err
	}

	results := make([]Roll, len(d.Rolls))
	for i, v := range d.Rolls {
		results[i] = Roll{Value: v, Original: v}
	}

	var derived []*Die
	switch d.Modifier {
	case ModNone:
	case ModMin, ModMax:
		clamp(results, d.Modifier, d.Value)
	case ModKeep:
		for _, i := range selectRolls(results, d.EffectiveSelector(), d.Value) {
			results[i].Mark = MarkKept
		}
	case ModDrop:
		for _, i := range selectRolls(results, d.EffectiveSelector(), d.Value) {
			results[i].Mark = MarkDropped
		}
	case ModRerollOnce, ModRerollInfinite, ModRerollAdd, ModExplode:
		selected := selectRolls(results, d.EffectiveSelector(), d.Value)
		if d.Modifier == ModRerollOnce || d.Modifier == ModRerollInfinite {
			for _, i := range selected {
				results[i].Mark = MarkDropped
			}
		}
		if len(selected) > 0 {
			derived = append(derived, d.derive(len(selected), chainedModifier(d), d.Selector))
		}
	default:
		return nil, unresolvable(fmt.Sprintf("die %s has unknown modifier %d", d.Notation(), d.Modifier))
	}

	d.Results = results
	if err := d.advance(StatusResolved); err != nil {
		return nil, err
	}
	return derived, nil
}

// chainedModifier returns the modifier a derived die inherits. Infinite
// rerolls and explosions chain while the selector compares values and the
// depth bound allows; everything else stops after one derivation.
func chainedModifier(d *Die) Modifier {
	if d.Modifier != ModRerollInfinite && d.Modifier != ModExplode {
		return ModNone
	}
	if !d.EffectiveSelector().Comparison() || d.Depth+1 >= MaxRerollDepth {
		return ModNone
	}
	return d.Modifier
}

func clamp(results []Roll, modifier Modifier, bound int) {
	for i, r := range results {
		switch {
		case modifier == ModMin && r.Value < bound,
			modifier == ModMax && r.Value > bound:
			results[i] = Roll{Value: bound, Original: r.Value, Mark: MarkOverridden}
		}
	}
}

// selectRolls returns the indexes chosen by the selector, in roll order.
// Highest and lowest choose exactly min(n, len(results)) rolls and break
// ties by the lower index.
func selectRolls(results []Roll, selector Selector, n int) []int {
	var selected []int
	switch selector {
	case SelectEquals, SelectLessThan, SelectGreaterThan:
		for i, r := range results {
			if compare(selector, r.Value, n) {
				selected = append(selected, i)
			}
		}
	case SelectHighest, SelectLowest:
		order := make([]int, len(results))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			if selector == SelectHighest {
				return results[order[a]].Value > results[order[b]].Value
			}
			return results[order[a]].Value < results[order[b]].Value
		})
		if n > len(order) {
			n = len(order)
		}
		if n < 0 {
			n = 0
		}
		selected = append(selected, order[:n]...)
		sort.Ints(selected)
	}
	return selected
}

func compare(selector Selector, value, target int) bool {
	switch selector {
	case SelectEquals:
		return value == target
	case SelectLessThan:
		return value < target
	case SelectGreaterThan:
		return value > target
	}
	return false
}

func checkModifier(d *Die) error {
	switch {
	case d.Modifier == ModNone && d.Selector != SelectNone,
		d.Modifier != ModNone && !d.Modifier.Selective() && d.Selector != SelectNone:
		return unresolvable(fmt.Sprintf("die %s cannot combine modifier %q with selector %q", d.Notation(), d.Modifier, d.Selector))
	case d.Selector < SelectNone || d.Selector > SelectLowest:
		return unresolvable(fmt.Sprintf("die %s has unknown selector %d", d.Notation(), d.Selector))
	}
	return nil
}
