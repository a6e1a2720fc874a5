// Package grid binds per-step hyper-parameter candidates onto the flat
// "<step>__<option>" namespace of a pipeline and enumerates the result
package grid

import (
	"maps"
	"slices"
)

// Sep joins a step name and an option name in a bound key
const Sep = "__"

// Values is the ordered candidate collection for one option
type Values []any

// Grid maps a step name to its options and their candidates
type Grid map[string]map[string]Values

// Bound maps "<step>__<option>" to candidates
type Bound map[string]Values

// Key returns the bound key for a step option
func Key(step, option string) string { return step + Sep + option }

// Bind keeps the grid entries whose step is in steps and flattens them
// Entries for other steps are dropped
func Bind(steps []string, g Grid) Bound {
	b, _ := BindReport(steps, g)
	return b
}

// BindReport is Bind plus the sorted names of the steps it dropped
func BindReport(steps []string, g Grid) (Bound, []string) {
	out := Bound{}
	var dropped []string
	for step, opts := range g {
		if !slices.Contains(steps, step) {
			dropped = append(dropped, step)
			continue
		}
		for opt, vals := range opts {
			out[Key(step, opt)] = slices.Clone(vals)
		}
	}
	slices.Sort(dropped)
	return out, dropped
}

// Keys returns the bound keys in sorted order
func (b Bound) Keys() []string {
	return slices.Sorted(maps.Keys(b))
}
