package mvu

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/mvu/exec"
)

// DefaultPollInterval is the per-frame input poll deadline. It bounds how
// long the loop blocks between redraws, permitting roughly 60 Hz updates.
const DefaultPollInterval = 16 * time.Millisecond

// defaultShutdownWindow is how long shutdown waits for workers to stop
// cooperatively after their tokens are signalled.
const defaultShutdownWindow = 100 * time.Millisecond

// Program drives the Model-View-Update loop against a Terminal. Update and
// view run only on the loop goroutine; commands run on workers that report
// back through the inbox.
type Program struct {
	terminal       Terminal
	logger         *slog.Logger
	poll           time.Duration
	shell          string
	shutdownWindow time.Duration

	q *inbox

	mu      sync.Mutex
	active  map[Handle]*activeEntry
	pending []<-chan struct{}
}

// Option configures a Program.
type Option func(*Program)

// WithLogger sets the diagnostic sink. Warnings about workers outliving
// their grace period and recovered panics go here. Defaults to a discard
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPollInterval sets the per-frame input poll deadline.
func WithPollInterval(d time.Duration) Option {
	return func(p *Program) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithShell sets the shell that interprets System command lines.
func WithShell(shell string) Option {
	return func(p *Program) {
		if shell != "" {
			p.shell = shell
		}
	}
}

// WithShutdownWindow sets how long shutdown waits for cooperative stops.
func WithShutdownWindow(d time.Duration) Option {
	return func(p *Program) {
		if d > 0 {
			p.shutdownWindow = d
		}
	}
}

// New creates a Program that renders to terminal.
func New(terminal Terminal, opts ...Option) *Program {
	p := &Program{
		terminal:       terminal,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		poll:           DefaultPollInterval,
		shell:          exec.DefaultShell,
		shutdownWindow: defaultShutdownWindow,
		q:              newInbox(),
		active:         make(map[Handle]*activeEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Active reports whether the Custom command identified by h is still in the
// active-command table.
func (p *Program) Active(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[h]
	return ok
}

// Run executes the loop until update returns Exit, then runs the shutdown
// discipline and returns the final model. If init is non-nil its message is
// fed through update before the first frame.
func (p *Program) Run(model Model, view ViewFunc, update UpdateFunc, init InitFunc) (Model, error) {
	if model == nil {
		return nil, fmt.Errorf("run: nil initial model: %w", ErrInvariant)
	}
	if view == nil || update == nil {
		return nil, fmt.Errorf("run: nil view or update: %w", ErrInvariant)
	}

	final := model
	err := p.terminal.Run(func(v View) error {
		m, loopErr := p.loop(v, model, view, update, init)
		final = m
		return loopErr
	})
	return final, err
}

// loop is the render → poll → update → dispatch → drain cycle.
func (p *Program) loop(v View, model Model, view ViewFunc, update UpdateFunc, init InitFunc) (Model, error) {
	defer p.shutdown()

	var exit bool
	if init != nil {
		if model, exit = p.step(init(), model, update); exit {
			return model, nil
		}
	}

	for {
		w := view(model, v)
		if w == nil {
			return model, fmt.Errorf("view returned no widget tree, use widget.Clear: %w", ErrInvariant)
		}
		if err := v.Draw(func(f Frame) {
			f.RenderWidget(w, f.Area())
		}); err != nil {
			return model, err
		}

		ev, err := v.PollEvent(p.poll)
		if err != nil {
			return model, fmt.Errorf("%w: %s", ErrPoll, err)
		}
		if ev != nil {
			if model, exit = p.step(ev, model, update); exit {
				return model, nil
			}
		}

		for v.PendingSynthetic() {
			syn := v.PopSynthetic()
			if _, isSync := syn.(Sync); isSync {
				model, exit = p.syncDrain(model, update)
			} else {
				model, exit = p.step(syn, model, update)
			}
			if exit {
				return model, nil
			}
		}

		if model, exit = p.drain(model, update); exit {
			return model, nil
		}
	}
}

// step runs update once, normalizes the result, and dispatches the
// returned command. It reports whether the command was Exit.
func (p *Program) step(msg Msg, model Model, update UpdateFunc) (Model, bool) {
	next, cmd := update(msg, model)
	if next != nil {
		model = next
	}
	if cmd == nil {
		return model, false
	}
	if _, isExit := cmd.(ExitCmd); isExit {
		return model, true
	}
	done := p.start(cmd, p.q)
	if done != nil {
		// Custom workers are tracked in the active table instead: they may
		// run for the program's whole lifetime and must not stall Sync.
		if _, isCustom := cmd.(CustomCmd); !isCustom {
			p.addPending(done)
		}
	}
	return model, false
}

// drain non-blockingly pops every currently available inbox message,
// running the update/dispatch cycle for each.
func (p *Program) drain(model Model, update UpdateFunc) (Model, bool) {
	for {
		msg, ok := p.q.tryPop()
		if !ok {
			return model, false
		}
		var exit bool
		if model, exit = p.step(msg, model, update); exit {
			return model, true
		}
	}
}

// syncDrain joins every pending worker and fully drains the inbox,
// repeating until no pending work and no messages remain.
func (p *Program) syncDrain(model Model, update UpdateFunc) (Model, bool) {
	for {
		p.joinPending()
		msg, ok := p.q.tryPop()
		if !ok {
			if !p.hasPending() && p.q.len() == 0 {
				return model, false
			}
			continue
		}
		var exit bool
		if model, exit = p.step(msg, model, update); exit {
			return model, true
		}
	}
}

func (p *Program) addPending(ch <-chan struct{}) {
	p.mu.Lock()
	p.pending = append(p.pending, ch)
	p.mu.Unlock()
}

func (p *Program) joinPending() {
	p.mu.Lock()
	take := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, ch := range take {
		<-ch
	}
}

func (p *Program) hasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0
}

// shutdown signals every active token, waits briefly for cooperative
// stops, abandons survivors with a warning, and clears the table. The loop
// does not return until this has completed.
func (p *Program) shutdown() {
	p.mu.Lock()
	entries := make([]*activeEntry, 0, len(p.active))
	for _, e := range p.active {
		entries = append(entries, e)
	}
	p.active = make(map[Handle]*activeEntry)
	p.mu.Unlock()

	for _, e := range entries {
		e.token.Cancel()
	}

	expired := false
	timeout := time.After(p.shutdownWindow)
	for _, e := range entries {
		if !expired {
			select {
			case <-e.done:
				continue
			case <-timeout:
				expired = true
			}
		}
		select {
		case <-e.done:
		default:
			e.outlet.abandon()
			p.logger.Warn("abandoning worker at shutdown", "handle", e.handle.String())
		}
	}

	p.q.close()
}
