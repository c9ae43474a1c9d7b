// Package widget provides the minimal widget set the runtime and its demo
// application draw with. A widget renders itself into styled lines; the
// terminal collaborator clips them to the target area.
package widget

// Widget renders into lines for a target width in display columns. Lines
// may carry ANSI styling and may be wider than width (unwrapped Text is);
// the terminal clips by display width, not byte length.
type Widget interface {
	Render(width int) []string
}

// Clear is the explicit empty-screen widget. A view that wants a blank
// frame returns Clear rather than nil.
type Clear struct{}

// Render implements Widget.
func (Clear) Render(width int) []string { return nil }

// Interface compliance checks.
var (
	_ Widget = Clear{}
	_ Widget = Text{}
	_ Widget = Box{}
	_ Widget = Stack{}
	_ Widget = Markdown{}
)
