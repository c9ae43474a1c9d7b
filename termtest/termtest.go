// Package termtest provides a scripted Terminal for deterministic runtime
// tests. Input events and synthetic messages are queued up front (or
// injected concurrently); rendered frames are captured for assertions.
package termtest

import (
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/mvu"
	"github.com/fwojciec/mvu/widget"
)

// ErrFrameLimit is returned from PollEvent once the frame limit is hit, so
// a test whose program never exits fails instead of hanging.
var ErrFrameLimit = errors.New("termtest: frame limit reached")

// Draw records one RenderWidget call.
type Draw struct {
	Widget widget.Widget
	Area   mvu.Rect
}

// Interface compliance checks.
var (
	_ mvu.Terminal = (*Terminal)(nil)
	_ mvu.View     = (*view)(nil)
	_ mvu.Frame    = (*frame)(nil)
)

// Terminal is a scripted mvu.Terminal. The zero value is not usable; use
// New. All methods are safe for concurrent use, so a test can inject
// events while the program runs.
type Terminal struct {
	mu         sync.Mutex
	events     []mvu.Event
	synthetic  []mvu.Msg
	frames     [][]Draw
	pollErr    error
	width      int
	height     int
	frameLimit int
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithSize sets the reported terminal size. Default 80×24.
func WithSize(width, height int) Option {
	return func(t *Terminal) {
		t.width = width
		t.height = height
	}
}

// WithFrameLimit sets how many frames may render before PollEvent fails
// with ErrFrameLimit. Default 10000.
func WithFrameLimit(n int) Option {
	return func(t *Terminal) {
		t.frameLimit = n
	}
}

// New creates a scripted terminal.
func New(opts ...Option) *Terminal {
	t := &Terminal{
		width:      80,
		height:     24,
		frameLimit: 10000,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Keys queues one plain key event per rune of s.
func (t *Terminal) Keys(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range s {
		t.events = append(t.events, mvu.KeyEvent{Kind: mvu.KeyRune, Rune: r})
	}
}

// Event queues one input event.
func (t *Terminal) Event(ev mvu.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Inject queues a synthetic message, delivered to update between frames.
func (t *Terminal) Inject(msg mvu.Msg) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.synthetic = append(t.synthetic, msg)
}

// Sync queues the synthetic marker that joins pending workers and drains
// the inbox before the next frame.
func (t *Terminal) Sync() {
	t.Inject(mvu.Sync{})
}

// FailPoll makes every subsequent PollEvent return err.
func (t *Terminal) FailPoll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollErr = err
}

// Frames returns every rendered frame's draw calls, oldest first.
func (t *Terminal) Frames() [][]Draw {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]Draw, len(t.frames))
	copy(out, t.frames)
	return out
}

// LastWidget returns the widget of the most recent draw call, or nil if
// nothing rendered.
func (t *Terminal) LastWidget() widget.Widget {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return nil
	}
	last := t.frames[len(t.frames)-1]
	if len(last) == 0 {
		return nil
	}
	return last[len(last)-1].Widget
}

// Run implements mvu.Terminal.
func (t *Terminal) Run(fn func(mvu.View) error) error {
	return fn(&view{t: t})
}

type view struct {
	t *Terminal
}

func (v *view) Draw(fn func(mvu.Frame)) error {
	f := &frame{area: mvu.Rect{Width: v.t.width, Height: v.t.height}}
	fn(f)
	v.t.mu.Lock()
	v.t.frames = append(v.t.frames, f.draws)
	v.t.mu.Unlock()
	return nil
}

func (v *view) PollEvent(timeout time.Duration) (mvu.Event, error) {
	v.t.mu.Lock()
	if v.t.pollErr != nil {
		err := v.t.pollErr
		v.t.mu.Unlock()
		return nil, err
	}
	if len(v.t.frames) >= v.t.frameLimit {
		v.t.mu.Unlock()
		return nil, ErrFrameLimit
	}
	if len(v.t.events) > 0 {
		ev := v.t.events[0]
		v.t.events = v.t.events[1:]
		v.t.mu.Unlock()
		return ev, nil
	}
	v.t.mu.Unlock()
	// No scripted event: let worker goroutines make progress before the
	// next frame, like a real poll deadline would.
	time.Sleep(timeout)
	return nil, nil
}

func (v *view) PendingSynthetic() bool {
	v.t.mu.Lock()
	defer v.t.mu.Unlock()
	return len(v.t.synthetic) > 0
}

func (v *view) PopSynthetic() mvu.Msg {
	v.t.mu.Lock()
	defer v.t.mu.Unlock()
	if len(v.t.synthetic) == 0 {
		return nil
	}
	m := v.t.synthetic[0]
	v.t.synthetic = v.t.synthetic[1:]
	return m
}

type frame struct {
	area  mvu.Rect
	draws []Draw
}

func (f *frame) Area() mvu.Rect { return f.area }

func (f *frame) RenderWidget(w widget.Widget, area mvu.Rect) {
	f.draws = append(f.draws, Draw{Widget: w, Area: area})
}
