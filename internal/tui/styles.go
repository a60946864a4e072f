package tui

import (
	"github.com/barakem/voicegame/internal/fsm"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorRed    = lipgloss.Color("#FF5050")
	colorYellow = lipgloss.Color("#FFD700")
	colorBlue   = lipgloss.Color("#6495ED")
	colorGreen  = lipgloss.Color("#32CD32")
	colorCoral  = lipgloss.Color("#FF6B6B")
	colorGray   = lipgloss.Color("#C8C8C8")
	colorTeal   = lipgloss.Color("#4ECDC4")
)

var (
	headlineStyle = lipgloss.NewStyle().Bold(true)

	transcriptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue)

	lastTextStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	languageActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	languageIdleStyle = lipgloss.NewStyle().
				Foreground(colorGray)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorCoral)

	promptStyle = lipgloss.NewStyle().
			Foreground(colorTeal)
)

// stateColor is the accent for each session state.
func stateColor(state fsm.State) lipgloss.Color {
	switch state {
	case fsm.StateRecording:
		return colorRed
	case fsm.StateProcessing:
		return colorYellow
	case fsm.StateShowing:
		return colorGreen
	case fsm.StateError:
		return colorCoral
	default:
		return colorBlue
	}
}
