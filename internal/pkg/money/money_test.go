package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "510.50", Format(51050))
	require.Equal(t, "0.05", Format(5))
	require.Equal(t, "100.00", Format(10000))
}

func TestParse(t *testing.T) {
	cases := map[string]int64{"510.5": 51050, "510.50": 51050, "510": 51000, "0.01": 1}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := Parse("1.005")
	require.ErrorIs(t, err, ErrInvalid)
	_, err = Parse("abc")
	require.ErrorIs(t, err, ErrInvalid)
}
