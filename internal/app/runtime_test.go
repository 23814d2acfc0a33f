package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/fincompare/fincompare/testing"
)

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode(), "testing package enables test mode on import")

	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, " true ")
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestParseTestMode(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" t ", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"yes", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, parseTestMode(tc.raw), "raw %q", tc.raw)
	}
}
