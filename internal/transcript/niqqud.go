package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	niqqudFirst = '\u0591'
	niqqudLast  = '\u05C7'
)

// hebrewPresentationForms covers precomposed letters that carry points,
// e.g. U+FB2A SHIN WITH SHIN DOT.
var hebrewPresentationForms = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xFB1D, Hi: 0xFB4F, Stride: 1}},
}

// IsNiqqud reports whether r is a Hebrew point or cantillation mark.
// Hebrew punctuation in the same block (maqaf, paseq, sof pasuq, nun hafukha) is not niqqud.
func IsNiqqud(r rune) bool {
	return r >= niqqudFirst && r <= niqqudLast && unicode.Is(unicode.Mn, r)
}

func niqqudStripper() transform.Transformer {
	return transform.Chain(
		runes.If(runes.In(hebrewPresentationForms), norm.NFD, nil),
		runes.Remove(runes.Predicate(IsNiqqud)),
	)
}

// StripNiqqud removes Hebrew points from s. Every other codepoint is kept as is.
// The result never contains niqqud, so stripping twice equals stripping once.
func StripNiqqud(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(niqqudStripper(), s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if IsNiqqud(r) {
				return -1
			}
			return r
		}, s)
	}
	return out
}
