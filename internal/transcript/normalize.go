package transcript

import "strings"

// Result is the normalized form of one transcript.
type Result struct {
	// LogicalText is the transcript in reading order with niqqud removed.
	LogicalText string
	// DisplayText is LogicalText in visual order for the configured surface.
	DisplayText string
	// Direction is the base direction of the first paragraph.
	Direction Direction
}

// Empty reports whether there is nothing to display.
func (r Result) Empty() bool {
	return r.DisplayText == ""
}

// Normalize strips niqqud from raw and reorders it for display.
// Empty or whitespace-only input yields the zero Result.
func Normalize(raw string, opts Options) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}
	}

	logical := strings.TrimSpace(StripNiqqud(trimmed))
	if logical == "" {
		return Result{}
	}

	return Result{
		LogicalText: logical,
		DisplayText: Reorder(logical, opts),
		Direction:   ParagraphDirection(logical, opts.ForceRTL),
	}
}
