package filings

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Division identifies the statement a line item was reported on.
type Division string

const (
	DivisionBalanceSheet    Division = "balance_sheet"
	DivisionIncomeStatement Division = "income_statement"
	DivisionOther           Division = "other"
)

// DivisionFromCode maps the provider's sj_div code to a Division.
func DivisionFromCode(code string) Division {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "BS":
		return DivisionBalanceSheet
	case "IS", "CIS":
		return DivisionIncomeStatement
	default:
		return DivisionOther
	}
}

// Variant selects consolidated or separate (standalone) statements.
type Variant string

const (
	VariantConsolidated Variant = "consolidated"
	VariantSeparate     Variant = "separate"
)

// Variants lists every supported variant in lookup order.
var Variants = []Variant{VariantConsolidated, VariantSeparate}

// ParseVariant accepts the long names as well as the provider codes CFS/OFS.
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "consolidated", "cfs":
		return VariantConsolidated, nil
	case "separate", "ofs":
		return VariantSeparate, nil
	default:
		return "", fmt.Errorf("filings: unknown statement variant %q", raw)
	}
}

// Code returns the provider's fs_div code for the variant.
func (v Variant) Code() string {
	if v == VariantSeparate {
		return "OFS"
	}
	return "CFS"
}

// RawLineItem is a single reported line before normalization.
type RawLineItem struct {
	AccountID   string              `json:"account_id"`
	AccountName string              `json:"account_name"`
	Current     decimal.NullDecimal `json:"current_amount"`
	Prior       decimal.NullDecimal `json:"prior_amount"`
	Prior2      decimal.NullDecimal `json:"prior2_amount"`
	Division    Division            `json:"statement_division"`
	Unit        string              `json:"unit,omitempty"`
}

// BaseUnit is the unit assumed when a filing does not state one.
const BaseUnit = "원"

var scaledUnits = []string{"천원", "백만원", "억원"}

// AmountUnit maps the provider's currency field onto the unit amounts are
// reported in. KRW and an empty field both mean plain won.
func AmountUnit(currency string) string {
	c := strings.TrimSpace(currency)
	for _, u := range scaledUnits {
		if strings.Contains(c, u) {
			return u
		}
	}
	if c == "" || strings.EqualFold(c, "KRW") {
		return BaseUnit
	}
	return c
}

// DetectUnit returns the first unit stated by items, or BaseUnit.
func DetectUnit(items []RawLineItem) string {
	for _, item := range items {
		if item.Unit != "" && item.Unit != BaseUnit {
			return item.Unit
		}
	}
	return BaseUnit
}

// Filing is one company's report for one fiscal year.
type Filing struct {
	CorpCode  string
	CorpName  string
	Year      int
	ReceiptNo string
	Variants  map[Variant][]RawLineItem
}

// Lines returns the line items filed under the variant.
func (f Filing) Lines(v Variant) ([]RawLineItem, bool) {
	items, ok := f.Variants[v]
	return items, ok
}

// AuditInfo holds attributes extracted from the audit report notes.
// SignificantPolicies carries one short excerpt per accounting policy found.
type AuditInfo struct {
	ReceiptNo           string            `json:"receipt_no"`
	Auditor             string            `json:"auditor"`
	AccountingStandard  string            `json:"accounting_standard"`
	AuditOpinion        string            `json:"audit_opinion"`
	DepreciationMethod  string            `json:"depreciation_method,omitempty"`
	UsefulLife          map[string]string `json:"useful_life,omitempty"`
	SignificantPolicies []string          `json:"significant_policies,omitempty"`
}

// Source supplies raw filings. Implementations must be safe for concurrent use.
type Source interface {
	FetchStatement(ctx context.Context, corpCode string, year int, variant Variant) (Filing, error)
	FetchAuditInfo(ctx context.Context, receiptNo string) (AuditInfo, error)
}
