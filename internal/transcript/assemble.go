// Package transcript turns raw recognizer output into display-ready text:
// segment assembly, niqqud stripping, and bidi reordering.
package transcript

import "strings"

// Assemble joins recognizer segments and collapses whitespace runs.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}

	joined := strings.Join(segments, " ")
	return strings.Join(strings.Fields(joined), " ")
}
