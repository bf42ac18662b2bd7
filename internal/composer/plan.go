package composer

import (
	"slices"

	"github.com/satindergrewal/wordrill/internal/catalog"
)

// Shuffler is the random source used to reorder later passes.
// *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Plan is the word order of every pass. Pass 0 is the canonical order.
type Plan [][]catalog.Word

// BuildPlan lays out passes over words. Pass 0 keeps the given order so the
// learner previews the words predictably; each later pass is an independent
// uniform permutation drawn from r.
func BuildPlan(words []catalog.Word, passes int, r Shuffler) Plan {
	plan := make(Plan, passes)
	for i := range plan {
		order := slices.Clone(words)
		if i > 0 {
			r.Shuffle(len(order), func(a, b int) {
				order[a], order[b] = order[b], order[a]
			})
		}
		plan[i] = order
	}
	return plan
}

// Steps returns the number of (pass, word) pairs in the plan.
func (p Plan) Steps() int {
	n := 0
	for _, pass := range p {
		n += len(pass)
	}
	return n
}
