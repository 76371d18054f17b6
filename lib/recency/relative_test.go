package recency

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRelative(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		text   string
		expect time.Time
		ok     bool
	}{
		{text: "2 hours ago", expect: now.Add(-2 * time.Hour), ok: true},
		{text: "a day ago", expect: now.Add(-24 * time.Hour), ok: true},
		{text: "1 week ago", expect: now.Add(-7 * 24 * time.Hour), ok: true},
		{text: "an hour ago", expect: now.Add(-time.Hour), ok: true},
		{text: "45 minutes ago", expect: now.Add(-45 * time.Minute), ok: true},
		{text: "3 months ago", expect: now.Add(-90 * 24 * time.Hour), ok: true},
		{text: "2 years ago", expect: now.Add(-730 * 24 * time.Hour), ok: true},
		{text: "Posted 5 Days Ago by Dr. Smith", expect: now.Add(-5 * 24 * time.Hour), ok: true},
		{text: "Distal Radius Fracture\n  3 hours ago\n  12 comments", expect: now.Add(-3 * time.Hour), ok: true},
		{text: "300 years ago", expect: now.Add(-time.Duration(math.MaxInt64)), ok: true},
		{text: "4000 months ago", expect: now.Add(-time.Duration(math.MaxInt64)), ok: true},
		{text: "2147483647 minutes ago", expect: now.Add(-time.Duration(math.MaxInt64)), ok: true},
		{text: "yesterday", ok: false},
		{text: "2 fortnights ago", ok: false},
		{text: "in 2 hours", ok: false},
		{text: "", ok: false},
	}

	for _, test := range cases {
		got, ok := ParseRelative(test.text, now)
		require.Equal(t, test.ok, ok, test.text)
		if test.ok {
			require.Equal(t, test.expect, got, test.text)
			require.False(t, got.After(now), test.text)
		}
	}
}

func TestParseRelativePtr(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.Nil(t, ParseRelativePtr("no hint here", now))

	got := ParseRelativePtr("2 hours ago", now)
	require.NotNil(t, got)
	require.Equal(t, now.Add(-2*time.Hour), *got)
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		value  string
		expect time.Time
		ok     bool
	}{
		{
			value:  "2024-03-10T08:30:00-05:00",
			expect: time.Date(2024, time.March, 10, 13, 30, 0, 0, time.UTC),
			ok:     true,
		},
		{
			value:  "2024-03-10T08:30:00Z",
			expect: time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC),
			ok:     true,
		},
		{
			value:  "2024-03-10 08:30:15",
			expect: time.Date(2024, time.March, 10, 8, 30, 15, 0, time.UTC),
			ok:     true,
		},
		{
			value:  "2024-03-10T08:30",
			expect: time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC),
			ok:     true,
		},
		{value: "March 10, 2024", ok: false},
		{value: "2024-03-10", ok: false},
		{value: "", ok: false},
	}

	for _, test := range cases {
		got, ok := ParseTimestamp(test.value)
		require.Equal(t, test.ok, ok, test.value)
		if test.ok {
			require.True(t, test.expect.Equal(got), "%s: got %s", test.value, got)
		}
	}
}
