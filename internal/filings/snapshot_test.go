package filings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestSnapshotSourceFetchStatement(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "00126380", "2023_CFS.json"), samplePayload)
	writeFile(t, filepath.Join(root, "00126380", "2022_OFS.json"), `{"status":"000","list":[{"rcept_no":"R2022","sj_div":"BS","account_id":"ifrs-full_Assets","thstrm_amount":"10"}]}`)
	writeFile(t, filepath.Join(root, "00126380", "2021_CFS.json"), `{"status":"013","message":"no data"}`)

	src := NewSnapshotSource(root)
	ctx := context.Background()

	filing, err := src.FetchStatement(ctx, "00126380", 2023, VariantConsolidated)
	require.NoError(t, err)
	require.Equal(t, "20240312000736", filing.ReceiptNo)
	require.Equal(t, "삼성전자", filing.CorpName)
	lines, ok := filing.Lines(VariantConsolidated)
	require.True(t, ok)
	require.Len(t, lines, 3)
	_, ok = filing.Lines(VariantSeparate)
	require.False(t, ok)

	filing, err = src.FetchStatement(ctx, "00126380", 2022, VariantConsolidated)
	require.NoError(t, err)
	require.Equal(t, "R2022", filing.ReceiptNo)
	_, ok = filing.Lines(VariantConsolidated)
	require.False(t, ok)

	_, err = src.FetchStatement(ctx, "00126380", 2021, VariantConsolidated)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = src.FetchStatement(ctx, "99999999", 2023, VariantConsolidated)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = src.FetchStatement(ctx, "../etc", 2023, VariantConsolidated)
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	require.False(t, pe.Retryable())
}

func TestSnapshotSourceFetchAuditInfo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "audit", "20240312000736.html"), sampleAuditReport)
	src := NewSnapshotSource(root)

	info, err := src.FetchAuditInfo(context.Background(), "20240312000736")
	require.NoError(t, err)
	require.Equal(t, "20240312000736", info.ReceiptNo)
	require.Equal(t, "삼일회계법인", info.Auditor)

	_, err = src.FetchAuditInfo(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotSourceHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSnapshotSource(t.TempDir()).FetchStatement(ctx, "00126380", 2023, VariantConsolidated)
	require.ErrorIs(t, err, context.Canceled)
}
