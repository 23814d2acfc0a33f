package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/normalize"
)

// Sheet names produced by Project.
const (
	SheetSummary  = "Summary"
	SheetAccounts = "Accounts"
	SheetNotes    = "Notes"
)

// SummaryHeader mirrors the SummaryRow field order.
var SummaryHeader = []string{
	"Corp Code", "Company", "Year",
	"Current Ratio (%)", "Debt to Equity (%)", "Equity Ratio (%)",
	"Gross Margin (%)", "Operating Margin (%)", "Net Margin (%)",
	"ROA (%)", "ROE (%)", "Asset Turnover",
}

var accountsHeader = []string{
	"Corp Code", "Company", "Year", "Account ID", "Account", "Category",
	"Current", "Prior", "Prior 2", "Unit",
}

var notesHeader = []string{
	"Corp Code", "Company", "Year", "Receipt No", "Auditor",
	"Accounting Standard", "Audit Opinion", "Depreciation Method", "Useful Life",
	"Significant Policies",
}

// YearSheetName names the full statement sheet for year.
func YearSheetName(year int) string { return "FY" + strconv.Itoa(year) }

// Options selects the optional sheets.
type Options struct {
	SelectedAccounts []string `json:"selected_accounts,omitempty"`
	IncludeNotes     bool     `json:"include_notes"`
}

// Sheet is a tabular projection. A nil cell is left blank.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Workbook is the renderer-neutral export document.
type Workbook struct {
	Sheets []Sheet
}

// Sheet returns the named sheet.
func (w Workbook) Sheet(name string) (Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// Project lays out a comparison result for export. It reads values from the
// result and never recomputes them. Without an account selection every
// statement line is listed on one sheet per fiscal year.
func Project(result comparison.Result, opts Options) Workbook {
	wb := Workbook{Sheets: []Sheet{projectSummary(result)}}
	if len(opts.SelectedAccounts) > 0 {
		wb.Sheets = append(wb.Sheets, projectAccounts(result, opts.SelectedAccounts))
	} else {
		wb.Sheets = append(wb.Sheets, projectYears(result)...)
	}
	if opts.IncludeNotes {
		wb.Sheets = append(wb.Sheets, projectNotes(result))
	}
	return wb
}

func projectSummary(result comparison.Result) Sheet {
	sheet := Sheet{Name: SheetSummary, Header: SummaryHeader, Rows: make([][]any, 0, len(result.Summary))}
	for _, row := range result.Summary {
		sheet.Rows = append(sheet.Rows, []any{
			row.CorpCode, row.CompanyName, row.Year,
			number(row.CurrentRatio), number(row.DebtToEquity), number(row.EquityRatio),
			number(row.GrossMargin), number(row.OperatingMargin), number(row.NetMargin),
			number(row.ROA), number(row.ROE), number(row.AssetTurnover),
		})
	}
	return sheet
}

func projectAccounts(result comparison.Result, selected []string) Sheet {
	ids := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		ids[strings.TrimSpace(id)] = struct{}{}
	}
	sheet := Sheet{Name: SheetAccounts, Header: accountsHeader}
	for _, entry := range result.Ordered() {
		if entry == nil || entry.Statements == nil {
			continue
		}
		for _, line := range entry.Statements.Lines {
			if _, ok := ids[strings.TrimSpace(line.AccountID)]; ok {
				sheet.Rows = append(sheet.Rows, lineRow(entry, line))
			}
		}
	}
	return sheet
}

// projectYears emits one sheet per year, in the order years first appear in
// the result, skipping years where no company has statements.
func projectYears(result comparison.Result) []Sheet {
	var (
		years  []int
		byYear = make(map[int]*Sheet)
	)
	for _, entry := range result.Ordered() {
		if entry == nil || entry.Statements == nil {
			continue
		}
		sheet, ok := byYear[entry.Year]
		if !ok {
			sheet = &Sheet{Name: YearSheetName(entry.Year), Header: accountsHeader}
			byYear[entry.Year] = sheet
			years = append(years, entry.Year)
		}
		for _, line := range entry.Statements.Lines {
			sheet.Rows = append(sheet.Rows, lineRow(entry, line))
		}
	}
	out := make([]Sheet, 0, len(years))
	for _, y := range years {
		out = append(out, *byYear[y])
	}
	return out
}

func lineRow(entry *comparison.Entry, line normalize.Line) []any {
	return []any{
		entry.CorpCode, entry.CompanyName, entry.Year,
		line.AccountID, line.Label, string(line.Category),
		amountCell(line.Current), amountCell(line.Prior), amountCell(line.Prior2),
		entry.Statements.Unit,
	}
}

func amountCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func projectNotes(result comparison.Result) Sheet {
	sheet := Sheet{Name: SheetNotes, Header: notesHeader}
	for _, entry := range result.Ordered() {
		if entry == nil || entry.AuditInfo == nil {
			continue
		}
		info := entry.AuditInfo
		sheet.Rows = append(sheet.Rows, []any{
			entry.CorpCode, entry.CompanyName, entry.Year, info.ReceiptNo, info.Auditor,
			info.AccountingStandard, info.AuditOpinion, info.DepreciationMethod, usefulLife(info.UsefulLife),
			strings.Join(info.SignificantPolicies, "\n"),
		})
	}
	return sheet
}

func usefulLife(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+m[k])
	}
	return strings.Join(parts, ", ")
}

func number(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
