// Package churntest builds synthetic customer tables for tests
package churntest

import (
	"math"
	"math/rand/v2"

	"churnlearn/internal/core/frame"
)

// Customers returns n synthetic customers with a plan, a login count and a
// churn label. Trial plans and low login counts raise churn risk; about one
// plan in twenty and one login count in ten are missing
func Customers(n int, seed uint64) (*frame.Frame, []float64) {
	r := rand.New(rand.NewPCG(seed, 2))
	plans := []string{"basic", "gold", "trial", "family"}
	plan := make([]string, n)
	null := make([]bool, n)
	logins := make([]float64, n)
	y := make([]float64, n)
	for i := range n {
		plan[i] = plans[r.IntN(len(plans))]
		null[i] = r.IntN(20) == 0
		logins[i] = float64(r.IntN(30))
		if r.IntN(10) == 0 {
			logins[i] = math.NaN()
		}
		risk := 0.1
		if plan[i] == "trial" {
			risk = 0.6
		}
		if logins[i] < 5 {
			risk += 0.3
		}
		if r.Float64() < risk {
			y[i] = 1
		}
	}
	return frame.MustNew(
		frame.CategoricalColumn("plan", plan, null),
		frame.NumericColumn("logins", logins),
	), y
}
