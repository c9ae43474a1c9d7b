package widget

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so an app
// automatically matches any color scheme.
type Theme struct {
	Accent int // headings, links, titles
	Muted  int // gutters, secondary text
	Error  int // failure indicators
	OK     int // success indicators
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Accent: 5,
		Muted:  8,
		Error:  1,
		OK:     2,
	}
}

// ansiColor converts an ANSI index to a lipgloss color. Negative means
// the terminal default.
func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
