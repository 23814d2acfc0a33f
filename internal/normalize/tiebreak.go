package normalize

import (
	"github.com/fincompare/fincompare/internal/catalog"
	"github.com/fincompare/fincompare/internal/filings"
)

// Rules reported on a Reconciliation.
const (
	RuleDivision  = "division"
	RuleMagnitude = "magnitude"
	RuleOrder     = "order"
)

// Candidate is a line competing for a category, with its position in the input.
type Candidate struct {
	Index int
	Item  filings.RawLineItem
}

// TieBreaker picks one of several candidates for the same category. It
// returns the position within candidates and the rule that decided.
type TieBreaker interface {
	Choose(category catalog.Category, candidates []Candidate) (int, string)
}

// TieBreakerFunc adapts a function to TieBreaker.
type TieBreakerFunc func(category catalog.Category, candidates []Candidate) (int, string)

func (f TieBreakerFunc) Choose(category catalog.Category, candidates []Candidate) (int, string) {
	return f(category, candidates)
}

// DefaultTieBreaker prefers the division the category belongs to, then the
// larger absolute current amount, then the earlier line.
type DefaultTieBreaker struct{}

func (DefaultTieBreaker) Choose(category catalog.Category, candidates []Candidate) (int, string) {
	want := category.Statement()
	pool := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Item.Division == want {
			pool = append(pool, i)
		}
	}
	if len(pool) == 1 {
		return pool[0], RuleDivision
	}
	if len(pool) == 0 {
		for i := range candidates {
			pool = append(pool, i)
		}
	}

	best := pool[0]
	for _, i := range pool[1:] {
		if compareMagnitude(candidates[i].Item, candidates[best].Item) > 0 {
			best = i
		}
	}
	// A top-magnitude tie falls back to input order.
	for _, i := range pool {
		if i != best && compareMagnitude(candidates[i].Item, candidates[best].Item) == 0 {
			return best, RuleOrder
		}
	}
	return best, RuleMagnitude
}

// compareMagnitude orders lines by |current|; an unreported amount ranks below zero.
func compareMagnitude(a, b filings.RawLineItem) int {
	switch {
	case !a.Current.Valid && !b.Current.Valid:
		return 0
	case !a.Current.Valid:
		return -1
	case !b.Current.Valid:
		return 1
	default:
		return a.Current.Decimal.Abs().Cmp(b.Current.Decimal.Abs())
	}
}
