package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseVersion covers well-formed input, the optional "v" prefix and malformed segments.
func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("4.7.0.42")
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 7, 0, 42}, v.Segments())
	require.Equal(t, "4.7.0.42", v.String())

	v, err = ParseVersion(" v4.9.0.1 ")
	require.NoError(t, err)
	require.Equal(t, "4.9.0.1", v.String())

	for _, s := range []string{"", "1.x.0", "1..0", "1.0.", "-1.0", "4.8.0.0-1", "1:4.8.0"} {
		_, err = ParseVersion(s)
		require.ErrorIs(t, err, ErrMalformedVersion, s)
	}
}

// TestCompareIsNumeric verifies integer rather than lexicographic ordering.
func TestCompareIsNumeric(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want Ordering
	}{
		{"1.9.0", "1.10.0", Less},
		{"1.10.0", "1.9.0", Greater},
		{"4.7.0.30", "4.7.0.42", Less},
		{"4.8.0.0", "4.7.0.42", Greater},
		{"4.8.0.56", "4.8.0.56", Equal},
		{"10", "9", Greater},
	}

	for _, tc := range cases {
		got := Compare(MustParseVersion(tc.a), MustParseVersion(tc.b))
		require.Equal(t, tc.want, got, "%s vs %s", tc.a, tc.b)
	}
}

// TestCompareZeroPadsShorterVersion pins the policy for versions with different segment counts.
func TestCompareZeroPadsShorterVersion(t *testing.T) {
	t.Parallel()

	require.Equal(t, Equal, Compare(MustParseVersion("4.7"), MustParseVersion("4.7.0.0")))
	require.Equal(t, Less, Compare(MustParseVersion("4.7"), MustParseVersion("4.7.0.1")))
	require.Equal(t, Greater, Compare(MustParseVersion("4.8"), MustParseVersion("4.7.9.9")))
}

// TestCompareIsTotalOrder checks antisymmetry and transitivity over a sorted sample.
func TestCompareIsTotalOrder(t *testing.T) {
	t.Parallel()

	sorted := []string{"0.9", "1.0.0.1", "1.2", "1.9.9", "1.10", "4.7.0.30", "4.7.0.42", "4.8.0.0", "10.0"}

	for i := range sorted {
		for j := range sorted {
			a, b := MustParseVersion(sorted[i]), MustParseVersion(sorted[j])

			switch {
			case i < j:
				require.Equal(t, Less, Compare(a, b), "%s vs %s", sorted[i], sorted[j])
				require.True(t, a.Less(b))
			case i > j:
				require.Equal(t, Greater, Compare(a, b), "%s vs %s", sorted[i], sorted[j])
			default:
				require.Equal(t, Equal, Compare(a, b))
			}
		}
	}
}

// TestMustParseVersionPanics documents that invalid constants are caught early.
func TestMustParseVersionPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { MustParseVersion("beta") })
	require.True(t, Version{}.IsZero())
	require.Equal(t, "equal", Equal.String())
}
