package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("postgres://app@localhost:5432/fincompare", WithMaxConns(12))
	require.NoError(t, err)
	require.EqualValues(t, 12, cfg.MaxConns)
	require.Equal(t, "fincompare", cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = ParseConfig("postgres://app@localhost:5432/fincompare?application_name=seed&pool_max_conns=3", WithMaxConns(0))
	require.NoError(t, err)
	require.EqualValues(t, 3, cfg.MaxConns, "non-positive cap keeps the DSN value")
	require.Equal(t, "seed", cfg.ConnConfig.RuntimeParams["application_name"])

	_, err = ParseConfig("postgres://app@localhost:notaport/x")
	require.ErrorContains(t, err, "db: parse dsn")
}

type failingBeginner struct{}

func (failingBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("connection refused")
}

func TestWithTxBeginFailure(t *testing.T) {
	called := false
	err := WithTx(context.Background(), failingBeginner{}, func(pgx.Tx) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "db: begin: connection refused")
	require.False(t, called)
}
