package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapse(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "", expect: ""},
		{in: "  Distal   radius\n\tfracture ", expect: "Distal radius fracture"},
		{in: "a b", expect: "a b"},
		{in: "tab\x00bed", expect: "tabbed"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, Collapse(test.in))
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 0))
	require.Equal(t, "hello", Truncate("hello", 5))
	require.Equal(t, "hel", Truncate("hello", 3))
	require.Equal(t, "héll", Truncate("héllo", 4))
	require.Equal(t, "ab", Truncate("ab cd", 3))
}

func TestMatchName(t *testing.T) {
	keywords := []string{"treatment", "Management"}

	require.True(t, MatchName("Treatment", keywords))
	require.True(t, MatchName("  Operative TREATMENT options", keywords))
	require.True(t, MatchName("Initial management", keywords))
	require.False(t, MatchName("History", keywords))
	require.False(t, MatchName("anything", []string{"", "  "}))
}
