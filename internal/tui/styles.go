package tui

import "github.com/charmbracelet/lipgloss"

// Neon palette shared by the meter and the result screen.
var (
	ColorTrack = lipgloss.Color("#1a3300") // Unfilled meter
	ColorLow   = lipgloss.Color("#ccff00") // Below the 3 day pass
	ColorMid   = lipgloss.Color("#ffcc00") // 3 and 5 day passes
	ColorHigh  = lipgloss.Color("#ff003c") // 7 day pass
	ColorMuted = lipgloss.Color("#6b6b6b")
)

// Band thresholds for the fill colour.
const (
	midBand  = 600
	highBand = 1200
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(ColorLow)
	countdownStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorMid)
	mutedStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	trackStyle     = lipgloss.NewStyle().Foreground(ColorTrack)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(ColorHigh)
	boxStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorLow).
			Padding(1, 2)
)

// BandColor returns the fill colour for a score.
func BandColor(score int) lipgloss.Color {
	switch {
	case score >= highBand:
		return ColorHigh
	case score >= midBand:
		return ColorMid
	default:
		return ColorLow
	}
}
