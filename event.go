package mvu

// Event is a sealed interface representing one terminal input event. The
// unexported marker method prevents external implementations; terminal
// collaborators construct the concrete types below.
type Event interface {
	event()
}

// KeyKind discriminates special keys from printable runes.
type KeyKind int

// Key kinds.
const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyEsc
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// KeyEvent is a single key press.
type KeyEvent struct {
	Kind KeyKind
	Rune rune // valid when Kind is KeyRune
	Ctrl bool
	Alt  bool
}

func (KeyEvent) event() {}

// Is reports a plain (unmodified) press of r.
func (k KeyEvent) Is(r rune) bool {
	return k.Kind == KeyRune && k.Rune == r && !k.Ctrl && !k.Alt
}

// IsCtrl reports ctrl+r.
func (k KeyEvent) IsCtrl(r rune) bool {
	return k.Kind == KeyRune && k.Rune == r && k.Ctrl
}

// Enter reports the enter key.
func (k KeyEvent) Enter() bool { return k.Kind == KeyEnter }

// Esc reports the escape key.
func (k KeyEvent) Esc() bool { return k.Kind == KeyEsc }

// Tab reports the tab key.
func (k KeyEvent) Tab() bool { return k.Kind == KeyTab }

// Backspace reports the backspace key.
func (k KeyEvent) Backspace() bool { return k.Kind == KeyBackspace }

// CtrlC reports ctrl+c.
func (k KeyEvent) CtrlC() bool { return k.IsCtrl('c') }

// Up reports the up arrow.
func (k KeyEvent) Up() bool { return k.Kind == KeyUp }

// Down reports the down arrow.
func (k KeyEvent) Down() bool { return k.Kind == KeyDown }

// Left reports the left arrow.
func (k KeyEvent) Left() bool { return k.Kind == KeyLeft }

// Right reports the right arrow.
func (k KeyEvent) Right() bool { return k.Kind == KeyRight }

// MouseKind discriminates mouse actions.
type MouseKind int

// Mouse kinds.
const (
	MouseClick MouseKind = iota
	MouseScrollUp
	MouseScrollDown
)

// MouseEvent is a single mouse action at cell coordinates X, Y.
type MouseEvent struct {
	Kind MouseKind
	X    int
	Y    int
}

func (MouseEvent) event() {}

// Click reports a button press.
func (m MouseEvent) Click() bool { return m.Kind == MouseClick }

// ScrollUp reports an upward wheel tick.
func (m MouseEvent) ScrollUp() bool { return m.Kind == MouseScrollUp }

// ScrollDown reports a downward wheel tick.
func (m MouseEvent) ScrollDown() bool { return m.Kind == MouseScrollDown }

// PasteEvent is a bracketed paste.
type PasteEvent struct {
	Text string
}

func (PasteEvent) event() {}

// ResizeEvent reports a new terminal size in cells.
type ResizeEvent struct {
	Width  int
	Height int
}

func (ResizeEvent) event() {}

// Sync is the synthetic marker that asks the runtime to join all pending
// workers and fully drain the inbox before rendering the next frame. It is
// what makes asynchronous tests deterministic; production code may inject
// it too.
type Sync struct{}

// Interface compliance checks.
var (
	_ Event = KeyEvent{}
	_ Event = MouseEvent{}
	_ Event = PasteEvent{}
	_ Event = ResizeEvent{}
)
