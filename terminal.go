package mvu

import (
	"time"

	"github.com/fwojciec/mvu/widget"
)

// Terminal is the external collaborator that owns the actual screen and
// input source. Run opens the terminal, invokes fn with the per-frame view
// capability, and tears the terminal down when fn returns.
type Terminal interface {
	Run(fn func(View) error) error
}

// View is the per-frame capability a Terminal hands to the runtime.
type View interface {
	// Draw invokes fn with a frame to render the current screen contents.
	Draw(fn func(Frame)) error

	// PollEvent returns one input event, or nil if none arrived within
	// timeout. Errors are fatal to the loop.
	PollEvent(timeout time.Duration) (Event, error)

	// PendingSynthetic reports whether a synthetic event is queued.
	PendingSynthetic() bool

	// PopSynthetic removes and returns the oldest synthetic event. Sync
	// values trigger a join-and-drain; any other message is run through
	// update like an input event.
	PopSynthetic() Msg
}

// Frame exposes the drawable region of one frame.
type Frame interface {
	// Area returns the full drawable region.
	Area() Rect

	// RenderWidget draws w into area.
	RenderWidget(w widget.Widget, area Rect)
}

// Rect is a rectangular region of the terminal in cell coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ViewFunc renders the model into a widget tree for one frame. It must
// return a non-nil widget; use widget.Clear for an empty screen.
type ViewFunc func(model Model, v View) widget.Widget
