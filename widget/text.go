package widget

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Text renders plain content, optionally word-wrapped and styled.
type Text struct {
	Content string
	Style   lipgloss.Style
	Wrap    bool
}

// Render implements Widget.
func (t Text) Render(width int) []string {
	var lines []string
	if t.Wrap {
		lines = wrapText(t.Content, width)
	} else {
		lines = strings.Split(t.Content, "\n")
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = t.Style.Render(line)
	}
	return out
}

// Stack lays out child widgets vertically in order.
type Stack struct {
	Children []Widget
}

// Render implements Widget.
func (s Stack) Render(width int) []string {
	var out []string
	for _, c := range s.Children {
		if c == nil {
			continue
		}
		out = append(out, c.Render(width)...)
	}
	return out
}

// Box draws a rounded border around a child widget, with an optional title
// in the top edge.
type Box struct {
	Title string
	Child Widget
	Theme Theme
}

// Render implements Widget.
func (b Box) Render(width int) []string {
	inner := width - 2
	if inner < 1 {
		inner = 1
	}
	var content string
	if b.Child != nil {
		content = strings.Join(b.Child.Render(inner), "\n")
	}
	// The border stays unstyled so the title can be spliced into the top
	// edge by rune position.
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(inner)
	rendered := border.Render(content)
	lines := strings.Split(rendered, "\n")
	if b.Title != "" && len(lines) > 0 {
		title := lipgloss.NewStyle().Foreground(ansiColor(b.Theme.Accent)).Bold(true).Render(" " + b.Title + " ")
		lines[0] = overlayTitle(lines[0], title)
	}
	return lines
}

// overlayTitle splices a styled title into a top border line, two cells in.
func overlayTitle(top, title string) string {
	runes := []rune(top)
	if len(runes) < 4 {
		return top
	}
	return string(runes[:2]) + title + string(runes[2:])
}
