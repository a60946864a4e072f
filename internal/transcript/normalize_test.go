package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsThenReorders(t *testing.T) {
	t.Parallel()

	got := Normalize("שָׁלוֹם", Options{})
	require.Equal(t, "שלום", got.LogicalText)
	require.Equal(t, "םולש", got.DisplayText)
	require.Equal(t, RightToLeft, got.Direction)
}

func TestNormalizeRightToLeftSurface(t *testing.T) {
	t.Parallel()

	got := Normalize("כלב", Options{Surface: RightToLeft})
	require.Equal(t, "כלב", got.LogicalText)
	require.Equal(t, "כלב", got.DisplayText)
}

func TestNormalizeWhitespaceOnlyYieldsEmpty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", " ", "\t\n", "   "} {
		got := Normalize(in, Options{Surface: RightToLeft})
		require.True(t, got.Empty(), "input %q", in)
		require.Equal(t, Result{}, got)
	}
}

func TestNormalizeNiqqudOnlyYieldsEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, Normalize(" \u05B8\u05B9 ", Options{}).Empty())
}

func TestNormalizeTrimsAndKeepsLatinDirection(t *testing.T) {
	t.Parallel()

	got := Normalize("  dog  ", Options{Surface: RightToLeft})
	require.Equal(t, "dog", got.LogicalText)
	require.Equal(t, LeftToRight, got.Direction)
	require.Equal(t, "god", got.DisplayText)
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	in := "יֶלֶד 42 (טוֹב)"
	require.Equal(t, Normalize(in, Options{}), Normalize(in, Options{}))
}
