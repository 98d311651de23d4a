package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha color palette
var (
	Base     = lipgloss.Color("#1e1e2e") // Dark background
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4") // Main text

	Blue  = lipgloss.Color("#89b4fa")
	Sky   = lipgloss.Color("#89dceb")
	Teal  = lipgloss.Color("#94e2d5")
	Green = lipgloss.Color("#a6e3a1")
	Peach = lipgloss.Color("#fab387")
	Red   = lipgloss.Color("#f38ba8")
	Mauve = lipgloss.Color("#cba6f7")
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	// Chart panel
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Sky)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Overlay0)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red).
			Align(lipgloss.Center)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Align(lipgloss.Center)
)

// ChartColors is the line color for each quantity, in panel order
var ChartColors = []lipgloss.Color{Peach, Blue, Teal, Mauve}

// ISOClassColor maps an ISO cleanliness class to a traffic-light color
func ISOClassColor(class int) lipgloss.Color {
	switch {
	case class <= 7:
		return Green
	case class == 8:
		return Peach
	default:
		return Red
	}
}

// ModeStyle is the status bar chip for the refresh state
func ModeStyle(running bool) lipgloss.Style {
	bg := Overlay0
	if running {
		bg = Green
	}
	return lipgloss.NewStyle().
		Foreground(Base).
		Background(bg).
		Bold(true).
		Padding(0, 1)
}
