package mvu

import (
	"fmt"
	"time"

	"github.com/fwojciec/mvu/exec"
)

// activeEntry is one row of the active-command table: a dispatched Custom
// command's worker and its cancellation state.
type activeEntry struct {
	handle Handle
	token  *Token
	outlet *Outlet
	done   chan struct{}
	grace  time.Duration
}

// start translates cmd into concurrent work whose messages land on sink.
// The returned channel closes once the command's work has finished and it
// produces no further messages; it is nil when no work was started. Exit
// never reaches here — the loop short-circuits on it.
func (p *Program) start(cmd Cmd, sink *inbox) <-chan struct{} {
	switch c := cmd.(type) {
	case SystemCmd:
		done := make(chan struct{})
		go func() {
			defer close(done)
			p.runSystem(c, sink)
		}()
		return done

	case MappedCmd:
		if c.Inner == nil || c.Mapper == nil {
			return nil
		}
		sub := newInbox()
		innerDone := p.start(c.Inner, sub)
		if innerDone == nil {
			return nil
		}
		done := make(chan struct{})
		// The forwarder runs on its own goroutine so mapping preserves the
		// inner ordering without blocking the dispatcher.
		go func() {
			defer close(done)
			for {
				m, ok := sub.popOrDone(innerDone)
				if !ok {
					return
				}
				sink.put(c.Mapper(m))
			}
		}()
		return done

	case CustomCmd:
		if c.fn == nil {
			return nil
		}
		token := NewToken()
		outlet := newOutlet(sink)
		done := make(chan struct{})
		entry := &activeEntry{
			handle: c.handle,
			token:  token,
			outlet: outlet,
			done:   done,
			grace:  c.grace,
		}
		p.mu.Lock()
		p.active[c.handle] = entry
		p.mu.Unlock()
		go func() {
			defer close(done)
			defer p.removeActive(c.handle)
			defer func() {
				if r := recover(); r != nil {
					reason := fmt.Sprint(r)
					p.logger.Warn("custom command panicked", "handle", c.handle.String(), "reason", reason)
					_ = outlet.Put(CustomPanic{Handle: c.handle, Reason: reason})
				}
			}()
			c.fn(outlet, token)
		}()
		return done

	case CancelCmd:
		done := make(chan struct{})
		go func() {
			defer close(done)
			p.reap(c.Handle)
		}()
		return done
	}
	return nil
}

// runSystem executes a System command to completion, translating its
// output into inbox messages. Spawn failures become a single ExecError in
// both modes.
func (p *Program) runSystem(c SystemCmd, sink *inbox) {
	if c.Stream {
		err := exec.Stream(p.shell, c.Command, exec.Handlers{
			Stdout: func(line string) {
				sink.put(ExecLine{Tag: c.Tag, Stream: StreamStdout, Line: line})
			},
			Stderr: func(line string) {
				sink.put(ExecLine{Tag: c.Tag, Stream: StreamStderr, Line: line})
			},
			Complete: func(status int) {
				sink.put(ExecComplete{Tag: c.Tag, Status: status})
			},
		})
		if err != nil {
			sink.put(ExecError{Tag: c.Tag, Err: err.Error()})
		}
		return
	}

	res, err := exec.Run(p.shell, c.Command)
	if err != nil {
		sink.put(ExecError{Tag: c.Tag, Err: err.Error()})
		return
	}
	sink.put(ExecResult{Tag: c.Tag, Stdout: res.Stdout, Stderr: res.Stderr, Status: res.Status})
}

// reap handles a Cancel command: signal the token, wait up to the
// command's grace for a cooperative stop, abandon the worker past the
// deadline, and remove the table entry. Unknown handles are a no-op.
func (p *Program) reap(h Handle) {
	p.mu.Lock()
	entry, ok := p.active[h]
	p.mu.Unlock()
	if !ok {
		return
	}

	entry.token.Cancel()
	if entry.grace < 0 {
		<-entry.done
	} else {
		select {
		case <-entry.done:
		case <-time.After(entry.grace):
			entry.outlet.abandon()
			p.logger.Warn("custom command outlived grace, abandoning worker",
				"handle", h.String(), "grace", entry.grace.String())
		}
	}
	p.removeActive(h)
}

func (p *Program) removeActive(h Handle) {
	p.mu.Lock()
	delete(p.active, h)
	p.mu.Unlock()
}
