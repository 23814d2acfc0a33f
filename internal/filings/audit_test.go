package filings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleAuditReport = `<html><body>
<h1>독립된 감사인의 감사보고서</h1>
<p>외부감사인: 삼일회계법인
</p>
<p>감사의견: 적정의견
</p>
<p>회사는 한국채택국제회계기준(K-IFRS)에 따라 재무제표를 작성하였습니다.</p>
<h2>유형자산</h2>
<p>유형자산은 정액법으로 감가상각하며, 추정 내용연수는 다음과 같습니다.</p>
<table>
<tr><td>건물</td><td>: 40년</td></tr>
<tr><td>기계장치</td><td>5 년</td></tr>
<tr><td>비품</td><td>：4년</td></tr>
</table>
</body></html>`

func TestExtractAuditInfo(t *testing.T) {
	info, err := ExtractAuditInfo(strings.NewReader(sampleAuditReport))
	require.NoError(t, err)
	require.Equal(t, "삼일회계법인", info.Auditor)
	require.Equal(t, "K-IFRS", info.AccountingStandard)
	require.Equal(t, "적정", info.AuditOpinion)
	require.Equal(t, "정액법", info.DepreciationMethod)
	require.Equal(t, map[string]string{"건물": "40년", "기계장치": "5년", "비품": "4년"}, info.UsefulLife)
	require.Empty(t, info.SignificantPolicies)
}

func TestExtractAuditInfoSignificantPolicies(t *testing.T) {
	long := strings.Repeat("고객과의 계약에서 생기는 수익은 수행의무를 이행할 때 인식합니다. ", 12)
	doc := `<div><h2>중요한 회계정책</h2><p>수익인식
	` + long + `</p><p>법인세 비용은 당기법인세와 이연법인세로 구성됩니다.</p></div>`
	info, err := ExtractAuditInfo(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, info.SignificantPolicies, 2)

	revenue := info.SignificantPolicies[0]
	require.True(t, strings.HasPrefix(revenue, "수익인식: 수익인식 고객과의"), revenue)
	require.True(t, strings.HasSuffix(revenue, "..."))
	require.NotContains(t, revenue, "\n")
	require.True(t, strings.HasPrefix(info.SignificantPolicies[1], "법인세: 법인세 비용"))
}

func TestExtractAuditInfoQualifiedOpinion(t *testing.T) {
	doc := `<div>감사의견 근거: 우리는 한정의견을 표명합니다. 일반기업회계기준 적용.</div>`
	info, err := ExtractAuditInfo(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "한정", info.AuditOpinion)
	require.Equal(t, "K-GAAP", info.AccountingStandard)
	require.Empty(t, info.Auditor)
	require.Nil(t, info.UsefulLife)
}

func TestExtractAuditInfoFallsBackToKnownFirms(t *testing.T) {
	doc := `<p>본 보고서는 안진회계법인 이 작성하였습니다.</p>`
	info, err := ExtractAuditInfo(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "안진회계법인", info.Auditor)
	require.Empty(t, info.DepreciationMethod)
}
