package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// Direction is a text or rendering-surface direction.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// ParseDirection maps "ltr"/"rtl" to a Direction.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ltr":
		return LeftToRight, true
	case "rtl":
		return RightToLeft, true
	default:
		return LeftToRight, false
	}
}

// Options controls visual reordering.
type Options struct {
	// Surface is the glyph direction of the target surface. A RightToLeft
	// surface places the first rune of the result at its right edge.
	Surface Direction
	// ForceRTL pins every paragraph to a right-to-left base level instead
	// of taking it from the first strong character.
	ForceRTL bool
	// MirrorBrackets swaps paired brackets inside right-to-left runs.
	MirrorBrackets bool
}

// cluster is a base rune plus the combining marks that follow it.
type cluster struct {
	runes []rune
	level int
}

// Reorder converts logical text to visual order for opts.Surface.
// Paragraphs are reordered independently and their separators stay in place.
// Only order changes unless MirrorBrackets is set.
func Reorder(s string, opts Options) string {
	if s == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(s))
	rest := s
	for rest != "" {
		para, sep, next := splitParagraph(rest)
		out.WriteString(reorderParagraph(para, opts))
		out.WriteString(sep)
		rest = next
	}
	return out.String()
}

// ParagraphDirection resolves the base direction of the first paragraph of s.
func ParagraphDirection(s string, forceRTL bool) Direction {
	para, _, _ := splitParagraph(s)
	if baseLevel([]rune(para), forceRTL) == 1 {
		return RightToLeft
	}
	return LeftToRight
}

func splitParagraph(s string) (para, sep, rest string) {
	for i, r := range s {
		props, size := bidi.LookupRune(r)
		if size > 0 && props.Class() == bidi.B {
			return s[:i], s[i : i+size], s[i+size:]
		}
	}
	return s, "", ""
}

func reorderParagraph(text string, opts Options) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	base := baseLevel(runes, opts.ForceRTL)

	levels, ok := resolveLevels(text, runes, base)
	if !ok {
		levels = make([]int, len(runes))
		for i := range levels {
			levels[i] = base
		}
	}

	clusters := clusterize(runes, levels)
	applyL2(clusters)

	if opts.Surface == RightToLeft {
		for i, j := 0, len(clusters)-1; i < j; i, j = i+1, j-1 {
			clusters[i], clusters[j] = clusters[j], clusters[i]
		}
	}

	var out strings.Builder
	out.Grow(len(text))
	for _, c := range clusters {
		for _, r := range c.runes {
			if opts.MirrorBrackets && c.level%2 == 1 {
				r = mirror(r)
			}
			out.WriteRune(r)
		}
	}
	return out.String()
}

// baseLevel applies rules P2 and P3: the first strong character decides.
func baseLevel(runes []rune, forceRTL bool) int {
	if forceRTL {
		return 1
	}
	for _, r := range runes {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return 0
		case bidi.R, bidi.AL:
			return 1
		}
	}
	return 0
}

// resolveLevels recovers per-rune embedding levels. The bidi package reports
// runs by level parity only; without explicit embeddings the even runs sit at
// level 2 inside a right-to-left paragraph, and inside a left-to-right
// paragraph only numbers governed by a preceding right-to-left letter do.
func resolveLevels(text string, runes []rune, base int) ([]int, bool) {
	var p bidi.Paragraph
	var paraOpts []bidi.Option
	if base == 1 {
		paraOpts = append(paraOpts, bidi.DefaultDirection(bidi.RightToLeft))
	}
	if _, err := p.SetString(text, paraOpts...); err != nil {
		return nil, false
	}
	ordering, err := p.Order()
	if err != nil {
		return nil, false
	}

	levels := make([]int, len(runes))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		start, end := run.Pos()
		level := 0
		switch {
		case run.Direction() == bidi.RightToLeft:
			level = 1
		case base == 1:
			level = 2
		}
		for j := start; j <= end && j < len(levels); j++ {
			if j >= 0 {
				levels[j] = level
			}
		}
	}

	if base == 0 {
		raiseEmbeddedNumbers(runes, levels)
	}
	return levels, true
}

// raiseEmbeddedNumbers lifts numbers that follow a right-to-left letter in a
// left-to-right paragraph to level 2 (rules W2, W4, W5, W7 and I1).
func raiseEmbeddedNumbers(runes []rune, levels []int) {
	classes := make([]bidi.Class, len(runes))
	for i, r := range runes {
		props, _ := bidi.LookupRune(r)
		classes[i] = props.Class()
	}

	lastStrong := bidi.L
	for i, class := range classes {
		switch class {
		case bidi.L, bidi.R, bidi.AL:
			lastStrong = class
		case bidi.EN, bidi.AN:
			if levels[i] == 0 && (class == bidi.AN || lastStrong != bidi.L) {
				levels[i] = 2
			}
		}
	}

	raised := func(i int) bool {
		return i >= 0 && i < len(levels) && levels[i] == 2 && (classes[i] == bidi.EN || classes[i] == bidi.AN)
	}
	for i, class := range classes {
		if levels[i] != 0 {
			continue
		}
		switch class {
		case bidi.ES, bidi.CS:
			if raised(i-1) && raised(i+1) {
				levels[i] = 2
			}
		case bidi.ET:
			j := i
			for j < len(classes) && classes[j] == bidi.ET {
				j++
			}
			if raised(i-1) || raised(j) {
				for k := i; k < j; k++ {
					levels[k] = 2
				}
			}
		case bidi.NSM:
			if i > 0 && levels[i-1] == 2 {
				levels[i] = 2
			}
		}
	}
}

func clusterize(runes []rune, levels []int) []cluster {
	clusters := make([]cluster, 0, len(runes))
	for i, r := range runes {
		if len(clusters) > 0 && unicode.Is(unicode.Mn, r) {
			last := &clusters[len(clusters)-1]
			last.runes = append(last.runes, r)
			continue
		}
		clusters = append(clusters, cluster{runes: []rune{r}, level: levels[i]})
	}
	return clusters
}

// applyL2 reverses, from the highest level down to the lowest odd level,
// every maximal sequence at that level or above.
func applyL2(clusters []cluster) {
	if len(clusters) == 0 {
		return
	}
	highest, lowest := clusters[0].level, clusters[0].level
	for _, c := range clusters[1:] {
		highest = max(highest, c.level)
		lowest = min(lowest, c.level)
	}
	if lowest%2 == 0 {
		lowest++
	}

	for level := highest; level >= lowest; level-- {
		for i := 0; i < len(clusters); {
			if clusters[i].level < level {
				i++
				continue
			}
			j := i
			for j < len(clusters) && clusters[j].level >= level {
				j++
			}
			for a, b := i, j-1; a < b; a, b = a+1, b-1 {
				clusters[a], clusters[b] = clusters[b], clusters[a]
			}
			i = j
		}
	}
}

func mirror(r rune) rune {
	props, _ := bidi.LookupRune(r)
	if !props.IsBracket() {
		return r
	}
	mirrored := []rune(bidi.ReverseString(string(r)))
	if len(mirrored) != 1 {
		return r
	}
	return mirrored[0]
}
