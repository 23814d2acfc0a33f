package ratios

import (
	"math"

	"github.com/fincompare/fincompare/internal/catalog"
)

// Inputs exposes normalized amounts by category. ok is false when the
// category was not reported.
type Inputs interface {
	Current(cat catalog.Category) (float64, bool)
	Prior(cat catalog.Category) (float64, bool)
}

// Stability groups balance sheet ratios, in percent.
type Stability struct {
	CurrentRatio *float64 `json:"current_ratio"`
	DebtToEquity *float64 `json:"debt_to_equity"`
	EquityRatio  *float64 `json:"equity_ratio"`
}

// Profitability groups margin and return ratios, in percent.
type Profitability struct {
	GrossMargin     *float64 `json:"gross_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	NetMargin       *float64 `json:"net_margin"`
	ROA             *float64 `json:"roa"`
	ROE             *float64 `json:"roe"`
}

// Activity groups turnover ratios, as plain multiples.
type Activity struct {
	AssetTurnover *float64 `json:"asset_turnover"`
}

// Growth holds year-over-year changes in percent.
type Growth struct {
	Revenue   *float64 `json:"revenue"`
	NetIncome *float64 `json:"net_income"`
	Assets    *float64 `json:"assets"`
}

// Set is the full ratio output for one statement. A nil field is undefined.
type Set struct {
	Stability     Stability     `json:"stability"`
	Profitability Profitability `json:"profitability"`
	Activity      Activity      `json:"activity"`
	Growth        Growth        `json:"growth"`
}

type operand struct {
	v  float64
	ok bool
}

func cur(in Inputs, cat catalog.Category) operand {
	v, ok := in.Current(cat)
	return operand{v, ok}
}

// Compute derives every ratio from in. It has no side effects.
func Compute(in Inputs) Set {
	ca := cur(in, catalog.CurrentAssets)
	cl := cur(in, catalog.CurrentLiabilities)
	assets := cur(in, catalog.Assets)
	liab := cur(in, catalog.Liabilities)
	equity := cur(in, catalog.Equity)
	rev := cur(in, catalog.Revenue)
	cogs := cur(in, catalog.CostOfRevenue)
	op := cur(in, catalog.OperatingIncome)
	ni := cur(in, catalog.NetIncome)

	gross := operand{rev.v - cogs.v, rev.ok && cogs.ok}

	return Set{
		Stability: Stability{
			CurrentRatio: ratio(ca, cl, 100),
			DebtToEquity: ratio(liab, equity, 100),
			EquityRatio:  ratio(equity, assets, 100),
		},
		Profitability: Profitability{
			GrossMargin:     ratio(gross, rev, 100),
			OperatingMargin: ratio(op, rev, 100),
			NetMargin:       ratio(ni, rev, 100),
			ROA:             ratio(ni, assets, 100),
			ROE:             ratio(ni, equity, 100),
		},
		Activity: Activity{
			AssetTurnover: ratio(rev, assets, 1),
		},
		Growth: Growth{
			Revenue:   growth(in, catalog.Revenue),
			NetIncome: growth(in, catalog.NetIncome),
			Assets:    growth(in, catalog.Assets),
		},
	}
}

func ratio(num, den operand, scale float64) *float64 {
	if !num.ok || !den.ok || den.v == 0 {
		return nil
	}
	return finite(num.v / den.v * scale)
}

// growth is measured against |prior| so a recovery from a loss reads as positive.
func growth(in Inputs, cat catalog.Category) *float64 {
	c, ok := in.Current(cat)
	if !ok {
		return nil
	}
	p, ok := in.Prior(cat)
	if !ok || p == 0 {
		return nil
	}
	return finite((c - p) / math.Abs(p) * 100)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
