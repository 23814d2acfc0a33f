package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/fincompare/fincompare/internal/filings"
)

//go:embed accounts.yaml
var defaultTable []byte

// ErrMalformedCatalog is returned when the reference table cannot be loaded.
var ErrMalformedCatalog = errors.New("catalog: malformed reference table")

// Category is the canonical role an account plays in ratio computation.
type Category string

const (
	CurrentAssets           Category = "current_assets"
	Assets                  Category = "assets"
	CurrentLiabilities      Category = "current_liabilities"
	Liabilities             Category = "liabilities"
	Equity                  Category = "equity"
	Revenue                 Category = "revenue"
	CostOfRevenue           Category = "cost_of_revenue"
	OperatingIncome         Category = "operating_income"
	NetIncome               Category = "net_income"
	TotalAssetsTurnoverBase Category = "total_assets_turnover_base"
	Other                   Category = "other"
)

var knownCategories = map[Category]filings.Division{
	CurrentAssets:           filings.DivisionBalanceSheet,
	Assets:                  filings.DivisionBalanceSheet,
	CurrentLiabilities:      filings.DivisionBalanceSheet,
	Liabilities:             filings.DivisionBalanceSheet,
	Equity:                  filings.DivisionBalanceSheet,
	TotalAssetsTurnoverBase: filings.DivisionBalanceSheet,
	Revenue:                 filings.DivisionIncomeStatement,
	CostOfRevenue:           filings.DivisionIncomeStatement,
	OperatingIncome:         filings.DivisionIncomeStatement,
	NetIncome:               filings.DivisionIncomeStatement,
	Other:                   filings.DivisionOther,
}

// Valid reports whether c is one of the canonical categories.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Statement is the division a line of this category is expected to be reported on.
func (c Category) Statement() filings.Division {
	if d, ok := knownCategories[c]; ok {
		return d
	}
	return filings.DivisionOther
}

// Entry is one row of the reference table.
type Entry struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Group    string   `json:"group"`
}

// Group is a statement section of the reference table.
type Group struct {
	Code     string  `json:"code"`
	Label    string  `json:"label"`
	Accounts []Entry `json:"accounts"`
}

// Catalog maps provider account ids to categories. It is immutable after
// Load and safe for concurrent use.
type Catalog struct {
	entries []Entry
	folded  []string
	byID    map[string]int
	groups  []Group
}

type tableFile struct {
	Groups []struct {
		Code     string `yaml:"code"`
		Label    string `yaml:"label"`
		Accounts []struct {
			ID       string `yaml:"id"`
			Label    string `yaml:"label"`
			Category string `yaml:"category"`
		} `yaml:"accounts"`
	} `yaml:"groups"`
}

// Load parses a YAML reference table.
func Load(r io.Reader) (*Catalog, error) {
	var table tableFile
	if err := yaml.NewDecoder(r).Decode(&table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}

	c := &Catalog{byID: make(map[string]int)}
	used := make(map[Category]struct{})
	for _, g := range table.Groups {
		group := Group{Code: strings.TrimSpace(g.Code), Label: strings.TrimSpace(g.Label)}
		for _, acc := range g.Accounts {
			id := strings.TrimSpace(acc.ID)
			if id == "" {
				return nil, fmt.Errorf("%w: empty account id in group %q", ErrMalformedCatalog, group.Code)
			}
			if _, dup := c.byID[id]; dup {
				return nil, fmt.Errorf("%w: duplicate account id %q", ErrMalformedCatalog, id)
			}
			cat := Category(strings.TrimSpace(acc.Category))
			if !cat.Valid() {
				return nil, fmt.Errorf("%w: account %q has unknown category %q", ErrMalformedCatalog, id, acc.Category)
			}
			if cat != Other {
				used[cat] = struct{}{}
			}
			entry := Entry{ID: id, Category: cat, Label: strings.TrimSpace(acc.Label), Group: group.Code}
			c.byID[id] = len(c.entries)
			c.entries = append(c.entries, entry)
			c.folded = append(c.folded, fold(entry.ID)+"\x00"+fold(entry.Label))
			group.Accounts = append(group.Accounts, entry)
		}
		c.groups = append(c.groups, group)
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("%w: empty category set", ErrMalformedCatalog)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded reference table.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(bytes.NewReader(defaultTable))
	})
	return defaultCatalog, defaultErr
}

// Lookup returns the category for an account id.
func (c *Catalog) Lookup(accountID string) (Category, bool) {
	e, ok := c.Entry(accountID)
	return e.Category, ok
}

// Entry returns the full reference row for an account id.
func (c *Catalog) Entry(accountID string) (Entry, bool) {
	idx, ok := c.byID[strings.TrimSpace(accountID)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// Search matches query as a case-insensitive substring of id or label. An
// empty query returns every entry. Results keep table order.
func (c *Catalog) Search(query string) []Entry {
	q := fold(query)
	out := make([]Entry, 0, len(c.entries))
	for i, e := range c.entries {
		if q == "" || strings.Contains(c.folded[i], q) {
			out = append(out, e)
		}
	}
	return out
}

// Groups returns the table grouped by statement section.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		out[i] = Group{Code: g.Code, Label: g.Label, Accounts: append([]Entry(nil), g.Accounts...)}
	}
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
