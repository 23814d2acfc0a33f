package comparisonhttp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/comparison/export"
	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/ratios"
)

type companyPayload struct {
	CorpCode string `json:"corp_code" validate:"required,max=16"`
	Name     string `json:"name" validate:"max=200"`
}

type comparisonPayload struct {
	Companies         []companyPayload `json:"companies" validate:"required,min=1,dive"`
	Years             []string         `json:"years" validate:"required,min=1,dive,len=4,numeric"`
	StatementDivision string           `json:"statement_division" validate:"omitempty,oneof=consolidated separate CFS OFS"`
	IncludeRatios     *bool            `json:"include_ratios"`
	IncludeAudit      bool             `json:"include_audit"`
	SelectedAccounts  []string         `json:"selected_accounts" validate:"max=200,dive,required"`
}

type exportPayload struct {
	comparisonPayload
	IncludeNotes bool   `json:"include_notes"`
	Format       string `json:"format" validate:"omitempty,oneof=xlsx csv pdf"`
}

func (p comparisonPayload) toRequest() (comparison.Request, error) {
	req := comparison.Request{
		Companies:        make([]comparison.Company, 0, len(p.Companies)),
		Years:            make([]int, 0, len(p.Years)),
		IncludeRatios:    p.IncludeRatios == nil || *p.IncludeRatios,
		IncludeAudit:     p.IncludeAudit,
		SelectedAccounts: p.SelectedAccounts,
		Variant:          filings.VariantConsolidated,
	}
	for _, c := range p.Companies {
		req.Companies = append(req.Companies, comparison.Company{CorpCode: strings.TrimSpace(c.CorpCode), Name: strings.TrimSpace(c.Name)})
	}
	for _, y := range p.Years {
		year, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil {
			return comparison.Request{}, fmt.Errorf("%w: invalid year %q", comparison.ErrInvalidRequest, y)
		}
		req.Years = append(req.Years, year)
	}
	if p.StatementDivision != "" {
		v, err := filings.ParseVariant(p.StatementDivision)
		if err != nil {
			return comparison.Request{}, fmt.Errorf("%w: %v", comparison.ErrInvalidRequest, err)
		}
		req.Variant = v
	}
	return req, nil
}

// queryRequest builds a request from repeated or comma-separated corp_codes and
// years query parameters.
func queryRequest(q url.Values, includeRatios bool) (comparison.Request, error) {
	payload := comparisonPayload{
		StatementDivision: strings.TrimSpace(q.Get("statement_division")),
		IncludeRatios:     &includeRatios,
	}
	for _, code := range splitQuery(q["corp_codes"]) {
		payload.Companies = append(payload.Companies, companyPayload{CorpCode: code})
	}
	payload.Years = splitQuery(q["years"])
	if len(payload.Companies) == 0 || len(payload.Years) == 0 {
		return comparison.Request{}, fmt.Errorf("%w: corp_codes and years are required", comparison.ErrInvalidRequest)
	}
	return payload.toRequest()
}

func splitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type ratioEntry struct {
	CorpCode    string      `json:"corp_code"`
	CompanyName string      `json:"company_name"`
	Year        int         `json:"year"`
	Ratios      *ratios.Set `json:"ratios"`
}

func (p exportPayload) options() export.Options {
	return export.Options{SelectedAccounts: p.SelectedAccounts, IncludeNotes: p.IncludeNotes}
}

type exportJobResponse struct {
	ID     string        `json:"id"`
	Status export.Status `json:"status"`
	Format string        `json:"format"`
	Error  string        `json:"error,omitempty"`
}
