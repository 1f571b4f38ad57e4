package addressutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{
			raw:      "6409 Winding Arch Dr Durham NC 27713",
			expected: "6409 winding arch",
		},
		{
			raw:      "123 Main Street, Raleigh, NC",
			expected: "123 main",
		},
		{
			raw:      "88 Old Mill Rd",
			expected: "88 old mill",
		},
		{
			raw:      "501 Stonefield Parkway Greensboro NC",
			expected: "501 stonefield",
		},
		{
			// no suffix token anywhere, the whole term survives
			raw:      "  412  Arbor  Knoll ",
			expected: "412 arbor knoll",
		},
		{
			// "st" must match as a whole word, not inside "stone"
			raw:      "77 Stone Gate Ln Wake Forest NC",
			expected: "77 stone gate",
		},
		{
			// chained street words truncate all the way down, "court"
			// first by priority, then the exposed "place"
			raw:      "100 Park Place Court",
			expected: "100 park",
		},
		{
			raw:      "",
			expected: "",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Normalize(test.raw), "raw: %q", test.raw)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"6409 Winding Arch Dr Durham NC 27713",
		"123 Main Street, Raleigh, NC",
		"88 Old Mill Rd",
		"412 Arbor Knoll",
		"100 Park Place Court",
		"",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		require.Equal(t, once, Normalize(once), "raw: %q", raw)
	}
}

func TestNew(t *testing.T) {
	addr := New("6409 Winding Arch Dr Durham NC 27713", "Durham", "NC")
	require.Equal(t, "6409 winding arch", addr.SearchTerm)
	require.Equal(t, "Durham", addr.County)
	require.Equal(t, "NC", addr.State)
}
