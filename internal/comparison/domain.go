package comparison

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/normalize"
	"github.com/fincompare/fincompare/internal/ratios"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("comparison: invalid request")

// Company identifies a filer in a request.
type Company struct {
	CorpCode string `json:"corp_code"`
	Name     string `json:"name,omitempty"`
}

// Request describes one comparison run.
type Request struct {
	Companies        []Company       `json:"companies"`
	Years            []int           `json:"years"`
	Variant          filings.Variant `json:"variant"`
	IncludeRatios    bool            `json:"include_ratios"`
	IncludeAudit     bool            `json:"include_audit"`
	SelectedAccounts []string        `json:"selected_accounts,omitempty"`
}

// Key addresses one (company, year) cell.
type Key struct {
	CorpCode string
	Year     int
}

func (k Key) String() string { return fmt.Sprintf("%s_%d", k.CorpCode, k.Year) }

// FailureKind classifies why a cell has no statements.
type FailureKind string

const (
	FailureNotFound       FailureKind = "not_found"
	FailureProvider       FailureKind = "provider_error"
	FailureMissingVariant FailureKind = "missing_variant"
	FailureNormalize      FailureKind = "normalize_error"
)

// Failure is attached to entries whose fetch or normalization failed.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable,omitempty"`
}

// Entry is the outcome for one (company, year).
type Entry struct {
	CorpCode    string               `json:"corp_code"`
	CompanyName string               `json:"company_name"`
	Year        int                  `json:"year"`
	Variant     filings.Variant      `json:"statement_division"`
	ReceiptNo   string               `json:"receipt_no,omitempty"`
	Statements  *normalize.Statement `json:"statements"`
	Ratios      *ratios.Set          `json:"ratios,omitempty"`
	AuditInfo   *filings.AuditInfo   `json:"audit_info,omitempty"`
	Failure     *Failure             `json:"failure,omitempty"`
}

// SummaryRow is the flattened ratio view of one successful cell.
type SummaryRow struct {
	CorpCode        string   `json:"corp_code"`
	CompanyName     string   `json:"company_name"`
	Year            int      `json:"year"`
	CurrentRatio    *float64 `json:"current_ratio"`
	DebtToEquity    *float64 `json:"debt_to_equity"`
	EquityRatio     *float64 `json:"equity_ratio"`
	GrossMargin     *float64 `json:"gross_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	NetMargin       *float64 `json:"net_margin"`
	ROA             *float64 `json:"roa"`
	ROE             *float64 `json:"roe"`
	AssetTurnover   *float64 `json:"asset_turnover"`
}

func newSummaryRow(e *Entry, set ratios.Set) SummaryRow {
	return SummaryRow{
		CorpCode:        e.CorpCode,
		CompanyName:     e.CompanyName,
		Year:            e.Year,
		CurrentRatio:    set.Stability.CurrentRatio,
		DebtToEquity:    set.Stability.DebtToEquity,
		EquityRatio:     set.Stability.EquityRatio,
		GrossMargin:     set.Profitability.GrossMargin,
		OperatingMargin: set.Profitability.OperatingMargin,
		NetMargin:       set.Profitability.NetMargin,
		ROA:             set.Profitability.ROA,
		ROE:             set.Profitability.ROE,
		AssetTurnover:   set.Activity.AssetTurnover,
	}
}

// Result is the output of one Compare call. It is not mutated after return.
type Result struct {
	Entries map[Key]*Entry
	Order   []Key
	Summary []SummaryRow
}

// Incomplete lists the cells that carry a Failure, in request order.
func (r Result) Incomplete() []Key {
	var out []Key
	for _, k := range r.Order {
		if e := r.Entries[k]; e != nil && e.Failure != nil {
			out = append(out, k)
		}
	}
	return out
}

// Ordered returns the entries in request order.
func (r Result) Ordered() []*Entry {
	out := make([]*Entry, 0, len(r.Order))
	for _, k := range r.Order {
		out = append(out, r.Entries[k])
	}
	return out
}

type resultJSON struct {
	Data       map[string]*Entry `json:"data"`
	Summary    []SummaryRow      `json:"summary"`
	Incomplete []string          `json:"incomplete"`
}

// MarshalJSON renders {data, summary, incomplete} keyed by "<corp>_<year>".
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Data:       make(map[string]*Entry, len(r.Entries)),
		Summary:    r.Summary,
		Incomplete: []string{},
	}
	if out.Summary == nil {
		out.Summary = []SummaryRow{}
	}
	for k, e := range r.Entries {
		out.Data[k.String()] = e
	}
	for _, k := range r.Incomplete() {
		out.Incomplete = append(out.Incomplete, k.String())
	}
	return json.Marshal(out)
}
