package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := New(context.Background(), addr, WithDB(2))
	require.NoError(t, err)
	require.Equal(t, 2, client.Options().DB)
	require.Equal(t, "fincompare", client.Options().ClientName)

	require.NoError(t, client.Set(context.Background(), "export:x:meta", "1", 0).Err())
	mr.Select(2)
	require.True(t, mr.Exists("export:x:meta"))
	require.NoError(t, client.Close())

	mr.Close()
	_, err = New(context.Background(), addr)
	require.ErrorContains(t, err, "cache: ping "+addr)
}
