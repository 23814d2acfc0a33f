package filings

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	statusOK     = "000"
	statusNoData = "013"
)

type statementEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	List    []statementLine `json:"list"`
}

type statementLine struct {
	ReceiptNo      string `json:"rcept_no"`
	CorpCode       string `json:"corp_code"`
	CorpName       string `json:"corp_name"`
	StatementDiv   string `json:"sj_div"`
	AccountID      string `json:"account_id"`
	AccountName    string `json:"account_nm"`
	CurrentAmount  string `json:"thstrm_amount"`
	PriorAmount    string `json:"frmtrm_amount"`
	Prior2Amount   string `json:"bfefrmtrm_amount"`
	CurrencyCode   string `json:"currency"`
	DisplayOrdinal string `json:"ord"`
}

// Statement is one decoded provider payload for a single variant.
type Statement struct {
	ReceiptNo string
	CorpCode  string
	CorpName  string
	Lines     []RawLineItem
}

// DecodeStatement parses a full-statement payload. Status 013 maps to ErrNotFound;
// any other non-success status yields a *ProviderError.
func DecodeStatement(r io.Reader) (Statement, error) {
	var env statementEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Statement{}, &ProviderError{Op: "decode statement", Err: err}
	}
	switch env.Status {
	case statusOK:
	case statusNoData:
		return Statement{}, ErrNotFound
	default:
		return Statement{}, &ProviderError{Op: "decode statement", Status: env.Status, Message: env.Message}
	}

	stmt := Statement{Lines: make([]RawLineItem, 0, len(env.List))}
	for i, line := range env.List {
		if stmt.ReceiptNo == "" {
			stmt.ReceiptNo = strings.TrimSpace(line.ReceiptNo)
		}
		if stmt.CorpCode == "" {
			stmt.CorpCode = strings.TrimSpace(line.CorpCode)
		}
		if stmt.CorpName == "" {
			stmt.CorpName = strings.TrimSpace(line.CorpName)
		}
		item := RawLineItem{
			AccountID:   strings.TrimSpace(line.AccountID),
			AccountName: strings.TrimSpace(line.AccountName),
			Division:    DivisionFromCode(line.StatementDiv),
			Unit:        AmountUnit(line.CurrencyCode),
		}
		var err error
		if item.Current, err = ParseAmount(line.CurrentAmount); err != nil {
			return Statement{}, lineError(i, line.AccountID, err)
		}
		if item.Prior, err = ParseAmount(line.PriorAmount); err != nil {
			return Statement{}, lineError(i, line.AccountID, err)
		}
		if item.Prior2, err = ParseAmount(line.Prior2Amount); err != nil {
			return Statement{}, lineError(i, line.AccountID, err)
		}
		stmt.Lines = append(stmt.Lines, item)
	}
	return stmt, nil
}

func lineError(index int, accountID string, err error) error {
	return &ProviderError{
		Op:      "decode statement",
		Message: fmt.Sprintf("line %d (%s): %v", index, accountID, err),
		Err:     err,
	}
}

// ParseAmount converts a reported amount into a decimal. Blank cells and a lone
// dash mean "not reported". Thousands separators and accounting-style
// parentheses are accepted.
func ParseAmount(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return decimal.NullDecimal{}, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}
