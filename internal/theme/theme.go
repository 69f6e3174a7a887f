// Package theme provides the Lip Gloss color palette and reusable styles
// for the dataviewer TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Connection colors.
var (
	ColorLive       = lipgloss.Color("#22c55e")
	ColorOffline    = lipgloss.Color("#dc2626")
	ColorConnecting = lipgloss.Color("#d97706")
	ColorPulse      = lipgloss.Color("#67e8f9")
)

// Table tab colors.
var (
	ColorTabActive   = lipgloss.Color("#3b82f6")
	ColorTabInactive = lipgloss.Color("#9ca3af")
	ColorTabEmpty    = lipgloss.Color("#374151")
)

// Event log colors.
var (
	ColorEventWS    = lipgloss.Color("#2563eb")
	ColorEventQuery = lipgloss.Color("#7c3aed")
	ColorEventNav   = lipgloss.Color("#06b6d4")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorAccent  = lipgloss.Color("#a855f7")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// ConnectionColor returns the indicator color for a live/offline state.
// Retrying connections are shown as connecting rather than offline.
func ConnectionColor(connected, retrying bool) lipgloss.Color {
	switch {
	case connected:
		return ColorLive
	case retrying:
		return ColorConnecting
	default:
		return ColorOffline
	}
}

// Panel returns the double-bordered overlay frame used by modal views.
func Panel(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(ColorBorder)
}
