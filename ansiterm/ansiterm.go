// Package ansiterm implements the runtime's Terminal collaborator on a raw
// tty: alternate screen, per-frame full redraw, and an input reader that
// parses keys, SGR mouse, and bracketed paste.
package ansiterm

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"

	"github.com/fwojciec/mvu"
	"github.com/fwojciec/mvu/widget"
)

// Interface compliance checks.
var (
	_ mvu.Terminal = (*Terminal)(nil)
	_ mvu.View     = (*view)(nil)
	_ mvu.Frame    = (*frame)(nil)
)

// Terminal renders to a tty.
type Terminal struct {
	in  *os.File
	out *os.File

	output *termenv.Output
	events chan mvu.Event

	mu        sync.Mutex
	width     int
	height    int
	synthetic []mvu.Msg
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithFiles overrides the input and output files. Defaults are stdin and
// stdout.
func WithFiles(in, out *os.File) Option {
	return func(t *Terminal) {
		t.in = in
		t.out = out
	}
}

// New creates a tty-backed terminal.
func New(opts ...Option) *Terminal {
	t := &Terminal{
		in:     os.Stdin,
		out:    os.Stdout,
		events: make(chan mvu.Event, 64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Inject queues a synthetic message for the runtime, including mvu.Sync
// markers. Safe to call from any goroutine.
func (t *Terminal) Inject(msg mvu.Msg) {
	t.mu.Lock()
	t.synthetic = append(t.synthetic, msg)
	t.mu.Unlock()
}

// Run puts the tty into raw mode, enters the alternate screen, and invokes
// fn with the per-frame view capability. The terminal is restored when fn
// returns, even on error.
func (t *Terminal) Run(fn func(mvu.View) error) error {
	fd := t.in.Fd()
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("ansiterm: raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, state)
	}()

	w, h, err := term.GetSize(fd)
	if err != nil {
		return fmt.Errorf("ansiterm: terminal size: %w", err)
	}
	t.mu.Lock()
	t.width, t.height = w, h
	t.mu.Unlock()

	t.output = termenv.NewOutput(t.out)
	t.output.AltScreen()
	t.output.HideCursor()
	t.output.EnableMouseCellMotion()
	t.output.EnableBracketedPaste()
	defer func() {
		t.output.DisableBracketedPaste()
		t.output.DisableMouseCellMotion()
		t.output.ShowCursor()
		t.output.ExitAltScreen()
	}()

	reader, err := cancelreader.NewReader(t.in)
	if err != nil {
		return fmt.Errorf("ansiterm: input reader: %w", err)
	}
	defer reader.Close()
	go t.readInput(reader)
	defer reader.Cancel()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer func() {
		signal.Stop(winch)
		close(winch)
	}()
	go t.watchResize(winch, fd)

	return fn(&view{t: t})
}

// readInput parses the raw byte stream into events until the reader is
// cancelled.
func (t *Terminal) readInput(r io.Reader) {
	var pending []byte
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			events, consumed := parseInput(pending)
			pending = pending[consumed:]
			for _, ev := range events {
				t.events <- ev
			}
		}
		if err != nil {
			return
		}
	}
}

func (t *Terminal) watchResize(winch <-chan os.Signal, fd uintptr) {
	for range winch {
		w, h, err := term.GetSize(fd)
		if err != nil {
			continue
		}
		t.mu.Lock()
		t.width, t.height = w, h
		t.mu.Unlock()
		select {
		case t.events <- mvu.ResizeEvent{Width: w, Height: h}:
		default:
		}
	}
}

type view struct {
	t *Terminal
}

func (v *view) Draw(fn func(mvu.Frame)) error {
	v.t.mu.Lock()
	area := mvu.Rect{Width: v.t.width, Height: v.t.height}
	v.t.mu.Unlock()

	f := &frame{area: area}
	fn(f)

	out := v.t.output
	out.MoveCursor(1, 1)
	for row := 0; row < area.Height; row++ {
		out.MoveCursor(row+1, 1)
		out.ClearLineRight()
		if line, ok := f.lines[row]; ok {
			if _, err := io.WriteString(v.t.out, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *view) PollEvent(timeout time.Duration) (mvu.Event, error) {
	select {
	case ev := <-v.t.events:
		return ev, nil
	case <-time.After(timeout):
		return nil, nil
	}
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

// frame accumulates rendered lines by absolute row before they are written
// out in one pass.
type frame struct {
	area  mvu.Rect
	lines map[int]string
}

func (f *frame) Area() mvu.Rect { return f.area }

func (f *frame) RenderWidget(w widget.Widget, area mvu.Rect) {
	if w == nil {
		return
	}
	if f.lines == nil {
		f.lines = make(map[int]string)
	}
	lines := w.Render(area.Width)
	for i, line := range lines {
		if i >= area.Height {
			break
		}
		row := area.Y + i
		if row < 0 || row >= f.area.Height {
			continue
		}
		clipped := ansi.Truncate(line, area.Width, "")
		if area.X > 0 {
			clipped = strings.Repeat(" ", area.X) + clipped
		}
		f.lines[row] = clipped
	}
}
