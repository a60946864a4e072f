package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripNiqqudShalom(t *testing.T) {
	t.Parallel()

	require.Equal(t, "שלום", StripNiqqud("שָׁלוֹם"))
}

func TestStripNiqqudCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "already plain", in: "כלב", want: "כלב"},
		{name: "cantillation and dagesh", in: "ב\u05B0\u05BCר\u05B5אש\u05B4\u05C1\u0596ית", want: "בראשית"},
		{name: "maqaf kept", in: "ב\u05BC\u05B5ית\u05BEס\u05B5פ\u05B6ר", want: "בית\u05BEספר"},
		{name: "sof pasuq and paseq kept", in: "סו\u05B9ף\u05C3 א\u05C0ב", want: "סוף\u05C3 א\u05C0ב"},
		{name: "nun hafukha kept", in: "\u05C6", want: "\u05C6"},
		{name: "presentation form decomposed", in: "\uFB2Aלום", want: "שלום"},
		{name: "latin and digits untouched", in: "Hello, world! 123", want: "Hello, world! 123"},
		{name: "latin combining mark untouched", in: "cafe\u0301", want: "cafe\u0301"},
		{name: "mixed", in: "אֲנִי אוֹהֵב pizza 3", want: "אני אוהב pizza 3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StripNiqqud(tc.in))
		})
	}
}

func TestStripNiqqudIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"שָׁלוֹם",
		"בְּרֵאשִׁ֖ית",
		"\uFB2A\uFB2B\uFB35",
		"יֶלֶד 42 (טוֹב)",
		"\u05B8\u05B9",
	}
	for _, in := range inputs {
		once := StripNiqqud(in)
		require.Equal(t, once, StripNiqqud(once), "input %q", in)
		for _, r := range once {
			require.False(t, IsNiqqud(r), "rune %U left in %q", r, once)
		}
	}
}

func TestIsNiqqud(t *testing.T) {
	t.Parallel()

	require.True(t, IsNiqqud('\u05B8'))
	require.True(t, IsNiqqud('\u05C1'))
	require.True(t, IsNiqqud('\u0591'))
	require.True(t, IsNiqqud('\u05C7'))
	require.False(t, IsNiqqud('\u05BE'))
	require.False(t, IsNiqqud('\u05C0'))
	require.False(t, IsNiqqud('\u05C3'))
	require.False(t, IsNiqqud('\u05C6'))
	require.False(t, IsNiqqud('ש'))
	require.False(t, IsNiqqud('a'))
}
