package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	cases := []struct {
		in     time.Time
		expect time.Time
	}{
		{
			in:     time.Date(2024, time.August, 26, 9, 0, 0, 0, tokyo),
			expect: time.Date(2024, time.August, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			in:     time.Date(2024, time.January, 1, 3, 30, 0, 0, tokyo),
			expect: time.Date(2023, time.December, 31, 18, 30, 0, 0, time.UTC),
		},
	}

	for _, test := range cases {
		got := Normalize(test.in)
		require.Equal(t, test.expect, got)
		require.Equal(t, time.UTC, got.Location())
	}
}

func TestNormalizePtr(t *testing.T) {
	require.Nil(t, NormalizePtr(nil))

	in := time.Date(2024, time.August, 26, 9, 0, 0, 0, time.FixedZone("X", 3600))
	got := NormalizePtr(&in)
	require.NotNil(t, got)
	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.Equal(in))
}

func TestSetLocation(t *testing.T) {
	defer func() { Location = time.UTC }()

	require.NoError(t, SetLocation(""))
	require.Equal(t, time.UTC, Location)

	require.Error(t, SetLocation("Not/AZone"))
	require.Equal(t, time.UTC, Location)
}
