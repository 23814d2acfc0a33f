package normalize

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fincompare/fincompare/internal/catalog"
	"github.com/fincompare/fincompare/internal/filings"
)

// ErrMissingVariant is returned when the filing lacks the requested statement variant.
var ErrMissingVariant = errors.New("normalize: statement variant not filed")

// Value is the amount resolved for one category.
type Value struct {
	Current    decimal.NullDecimal `json:"current"`
	Prior      decimal.NullDecimal `json:"prior"`
	Prior2     decimal.NullDecimal `json:"prior2"`
	AccountID  string              `json:"account_id"`
	Reconciled bool                `json:"reconciled,omitempty"`
	Candidates []string            `json:"candidates,omitempty"`
}

// Line is a reported line with its resolved category.
type Line struct {
	filings.RawLineItem
	Category catalog.Category `json:"category"`
	Label    string           `json:"label"`
}

// Reconciliation records how a category with several candidate lines was resolved.
type Reconciliation struct {
	Category   catalog.Category `json:"category"`
	Chosen     string           `json:"chosen"`
	Candidates []string         `json:"candidates"`
	Rule       string           `json:"rule"`
}

// Statement is the normalized view of one (company, year, variant).
type Statement struct {
	CorpCode        string                     `json:"corp_code"`
	Year            int                        `json:"year"`
	Variant         filings.Variant            `json:"variant"`
	Unit            string                     `json:"unit"`
	Values          map[catalog.Category]Value `json:"values"`
	Lines           []Line                     `json:"lines"`
	Reconciliations []Reconciliation           `json:"reconciliations,omitempty"`
}

// Current returns the current-period amount for cat.
func (s Statement) Current(cat catalog.Category) (float64, bool) {
	return amount(s.Values[cat].Current)
}

// Prior returns the prior-period amount for cat.
func (s Statement) Prior(cat catalog.Category) (float64, bool) {
	return amount(s.Values[cat].Prior)
}

func amount(d decimal.NullDecimal) (float64, bool) {
	if !d.Valid {
		return 0, false
	}
	return d.Decimal.InexactFloat64(), true
}

// Filter returns a copy restricted to the given account ids. Lines, Values
// and Reconciliations are all narrowed; a value or reconciliation is kept when
// any of its contributing accounts was selected.
func (s Statement) Filter(accountIDs map[string]struct{}) Statement {
	selected := func(ids ...string) bool {
		for _, id := range ids {
			if _, ok := accountIDs[id]; ok {
				return true
			}
		}
		return false
	}

	out := s
	out.Values = make(map[catalog.Category]Value)
	for k, v := range s.Values {
		if selected(v.AccountID) || selected(v.Candidates...) {
			out.Values[k] = v
		}
	}
	out.Reconciliations = nil
	for _, r := range s.Reconciliations {
		if selected(r.Chosen) || selected(r.Candidates...) {
			out.Reconciliations = append(out.Reconciliations, r)
		}
	}
	out.Lines = make([]Line, 0, len(accountIDs))
	for _, l := range s.Lines {
		if selected(l.AccountID) {
			out.Lines = append(out.Lines, l)
		}
	}
	return out
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTieBreaker replaces the default tie-breaking rule.
func WithTieBreaker(tb TieBreaker) Option {
	return func(n *Normalizer) { n.tie = tb }
}

// WithOverride installs a tie-breaker used only for one filer.
func WithOverride(corpCode string, tb TieBreaker) Option {
	return func(n *Normalizer) { n.overrides[corpCode] = tb }
}

// Normalizer maps filings onto catalog categories. It holds no mutable state.
type Normalizer struct {
	catalog   *catalog.Catalog
	tie       TieBreaker
	overrides map[string]TieBreaker
}

// New constructs a Normalizer over cat.
func New(cat *catalog.Catalog, opts ...Option) *Normalizer {
	n := &Normalizer{catalog: cat, tie: DefaultTieBreaker{}, overrides: make(map[string]TieBreaker)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves the requested variant of filing into a Statement.
func (n *Normalizer) Normalize(filing filings.Filing, variant filings.Variant) (Statement, error) {
	items, ok := filing.Lines(variant)
	if !ok {
		return Statement{}, fmt.Errorf("%w: %s %s/%d", ErrMissingVariant, variant, filing.CorpCode, filing.Year)
	}

	stmt := Statement{
		CorpCode: filing.CorpCode,
		Year:     filing.Year,
		Variant:  variant,
		Unit:     filings.DetectUnit(items),
		Values:   make(map[catalog.Category]Value),
		Lines:    make([]Line, 0, len(items)),
	}

	var order []catalog.Category
	grouped := make(map[catalog.Category][]Candidate)
	for i, item := range items {
		line := Line{RawLineItem: item, Category: catalog.Other, Label: item.AccountName}
		if entry, ok := n.catalog.Entry(item.AccountID); ok {
			line.Category = entry.Category
			if line.Label == "" {
				line.Label = entry.Label
			}
		}
		stmt.Lines = append(stmt.Lines, line)
		if line.Category == catalog.Other {
			continue
		}
		if _, seen := grouped[line.Category]; !seen {
			order = append(order, line.Category)
		}
		grouped[line.Category] = append(grouped[line.Category], Candidate{Index: i, Item: item})
	}

	tie := n.tieBreakerFor(filing.CorpCode)
	for _, cat := range order {
		candidates := grouped[cat]
		if len(candidates) == 1 {
			stmt.Values[cat] = valueOf(candidates[0].Item)
			continue
		}
		chosen, rule := tie.Choose(cat, candidates)
		if chosen < 0 || chosen >= len(candidates) {
			return Statement{}, fmt.Errorf("normalize: tie-breaker chose %d of %d candidates for %s", chosen, len(candidates), cat)
		}
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.Item.AccountID
		}
		v := valueOf(candidates[chosen].Item)
		v.Reconciled = true
		v.Candidates = ids
		stmt.Values[cat] = v
		stmt.Reconciliations = append(stmt.Reconciliations, Reconciliation{
			Category:   cat,
			Chosen:     v.AccountID,
			Candidates: append([]string(nil), ids...),
			Rule:       rule,
		})
	}
	return stmt, nil
}

func (n *Normalizer) tieBreakerFor(corpCode string) TieBreaker {
	if tb, ok := n.overrides[corpCode]; ok {
		return tb
	}
	return n.tie
}

func valueOf(item filings.RawLineItem) Value {
	return Value{
		Current:   item.Current,
		Prior:     item.Prior,
		Prior2:    item.Prior2,
		AccountID: item.AccountID,
	}
}
