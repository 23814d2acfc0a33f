package directory

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const corpCodeXML = `<?xml version="1.0" encoding="UTF-8"?>
<result>
  <list>
    <corp_code>00126380</corp_code>
    <corp_name>삼성전자</corp_name>
    <stock_code>005930</stock_code>
    <modify_date>20240101</modify_date>
  </list>
  <list>
    <corp_code>00126371</corp_code>
    <corp_name>삼성전기</corp_name>
    <stock_code>009150</stock_code>
  </list>
  <list>
    <corp_code>00164779</corp_code>
    <corp_name>SK하이닉스</corp_name>
    <stock_code> </stock_code>
  </list>
  <list>
    <corp_code></corp_code>
    <corp_name>broken</corp_name>
  </list>
</result>`

func TestParseCorpCodes(t *testing.T) {
	companies, err := ParseCorpCodes(strings.NewReader(corpCodeXML))
	require.NoError(t, err)
	require.Len(t, companies, 3)
	require.Equal(t, Company{Name: "삼성전자", CorpCode: "00126380", StockCode: "005930"}, companies[0])
	require.Equal(t, "", companies[2].StockCode)
}

func TestMemorySearch(t *testing.T) {
	companies, err := ParseCorpCodes(strings.NewReader(corpCodeXML))
	require.NoError(t, err)
	dir := NewMemory(companies)
	ctx := context.Background()

	got, err := dir.Search(ctx, "삼성", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "00126380", got[0].CorpCode)

	got, err = dir.Search(ctx, "sk하이", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = dir.Search(ctx, "삼성", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = dir.Search(ctx, " 삼 ", 0)
	require.ErrorIs(t, err, ErrQueryTooShort)
}

func TestMemorySearchCapsResults(t *testing.T) {
	companies := make([]Company, 120)
	for i := range companies {
		companies[i] = Company{Name: "테스트기업", CorpCode: "c"}
	}
	got, err := NewMemory(companies).Search(context.Background(), "테스트", 500)
	require.NoError(t, err)
	require.Len(t, got, DefaultLimit)
}

func TestLoadFileFromArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpCode.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("CORPCODE.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(corpCodeXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	companies, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, companies, 3)

	plain := filepath.Join(dir, "CORPCODE.xml")
	require.NoError(t, os.WriteFile(plain, []byte(corpCodeXML), 0o644))
	companies, err = LoadFile(plain)
	require.NoError(t, err)
	require.Len(t, companies, 3)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
