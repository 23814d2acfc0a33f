package directory

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultLimit caps search results.
const DefaultLimit = 50

const minQueryRunes = 2

// ErrQueryTooShort is returned for search terms under two characters.
var ErrQueryTooShort = errors.New("directory: query must be at least 2 characters")

// Company is one listed filer.
type Company struct {
	Name      string `json:"name"`
	CorpCode  string `json:"corp_code"`
	StockCode string `json:"stock_code"`
}

// Searcher finds companies by partial name.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Company, error)
}

// NormalizeQuery trims the query and enforces the minimum length.
func NormalizeQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minQueryRunes {
		return "", ErrQueryTooShort
	}
	return q, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

// Memory is an in-process directory loaded from the provider's code list.
type Memory struct {
	companies []Company
	folded    []string
}

// NewMemory indexes companies for substring search.
func NewMemory(companies []Company) *Memory {
	m := &Memory{companies: companies, folded: make([]string, len(companies))}
	for i, c := range companies {
		m.folded[i] = fold(c.Name)
	}
	return m
}

// Search returns companies whose name contains query, in list order.
func (m *Memory) Search(ctx context.Context, query string, limit int) ([]Company, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = fold(q)
	limit = clampLimit(limit)
	out := make([]Company, 0, limit)
	for i, name := range m.folded {
		if strings.Contains(name, q) {
			out = append(out, m.companies[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Len reports the number of indexed companies.
func (m *Memory) Len() int { return len(m.companies) }

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

type corpCodeList struct {
	List []struct {
		CorpCode  string `xml:"corp_code"`
		CorpName  string `xml:"corp_name"`
		StockCode string `xml:"stock_code"`
	} `xml:"list"`
}

// ParseCorpCodes reads the provider's CORPCODE.xml document.
func ParseCorpCodes(r io.Reader) ([]Company, error) {
	var doc corpCodeList
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("directory: decode corp codes: %w", err)
	}
	out := make([]Company, 0, len(doc.List))
	for _, item := range doc.List {
		c := Company{
			Name:      strings.TrimSpace(item.CorpName),
			CorpCode:  strings.TrimSpace(item.CorpCode),
			StockCode: strings.TrimSpace(item.StockCode),
		}
		if c.Name == "" || c.CorpCode == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadFile reads either the zipped archive as downloaded from the provider or
// a bare CORPCODE.xml.
func LoadFile(path string) ([]Company, error) {
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("directory: open archive: %w", err)
		}
		defer zr.Close()
		for _, f := range zr.File {
			if !strings.EqualFold(f.Name, "CORPCODE.xml") {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("directory: open %s: %w", f.Name, err)
			}
			defer rc.Close()
			return ParseCorpCodes(rc)
		}
		return nil, fmt.Errorf("directory: CORPCODE.xml missing from %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directory: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseCorpCodes(f)
}
