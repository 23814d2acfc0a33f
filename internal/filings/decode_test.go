package filings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "status": "000",
  "message": "정상",
  "list": [
    {"rcept_no": "20240312000736", "corp_code": "00126380", "corp_name": "삼성전자", "sj_div": "BS",
     "account_id": "ifrs-full_CurrentAssets", "account_nm": "유동자산",
     "thstrm_amount": "195,936,557,000,000", "frmtrm_amount": "218163185000000", "bfefrmtrm_amount": "", "currency": "KRW"},
    {"rcept_no": "20240312000736", "sj_div": "CIS",
     "account_id": "ifrs-full_Revenue", "account_nm": "매출액",
     "thstrm_amount": "258935494000000", "frmtrm_amount": "-", "bfefrmtrm_amount": "(12)", "currency": "백만원"},
    {"rcept_no": "20240312000736", "sj_div": "CF",
     "account_id": "ifrs-full_CashFlowsFromUsedInOperatingActivities", "account_nm": "영업활동현금흐름",
     "thstrm_amount": "44137427000000"}
  ]
}`

func TestDecodeStatement(t *testing.T) {
	stmt, err := DecodeStatement(strings.NewReader(samplePayload))
	require.NoError(t, err)
	require.Equal(t, "20240312000736", stmt.ReceiptNo)
	require.Equal(t, "삼성전자", stmt.CorpName)
	require.Len(t, stmt.Lines, 3)

	first := stmt.Lines[0]
	require.Equal(t, DivisionBalanceSheet, first.Division)
	require.True(t, first.Current.Valid)
	require.Equal(t, "195936557000000", first.Current.Decimal.String())
	require.True(t, first.Prior.Valid)
	require.False(t, first.Prior2.Valid)

	revenue := stmt.Lines[1]
	require.Equal(t, DivisionIncomeStatement, revenue.Division)
	require.False(t, revenue.Prior.Valid)
	require.Equal(t, "-12", revenue.Prior2.Decimal.String())

	require.Equal(t, DivisionOther, stmt.Lines[2].Division)

	require.Equal(t, BaseUnit, first.Unit)
	require.Equal(t, "백만원", revenue.Unit)
	require.Equal(t, BaseUnit, stmt.Lines[2].Unit, "missing currency means won")
	require.Equal(t, "백만원", DetectUnit(stmt.Lines))
}

func TestAmountUnit(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", BaseUnit},
		{"KRW", BaseUnit},
		{" 천원 ", "천원"},
		{"단위: 백만원", "백만원"},
		{"억원", "억원"},
		{"USD", "USD"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, AmountUnit(tc.in), tc.in)
	}
	require.Equal(t, BaseUnit, DetectUnit(nil))
}
