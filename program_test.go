package mvu_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/mvu"
	"github.com/fwojciec/mvu/router"
	"github.com/fwojciec/mvu/termtest"
	"github.com/fwojciec/mvu/widget"
)

// syncWriter makes a buffer safe for writes from worker goroutines.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func testLogger() (*slog.Logger, *syncWriter) {
	w := &syncWriter{}
	return slog.New(slog.NewTextHandler(w, nil)), w
}

func plainView(model mvu.Model, v mvu.View) widget.Widget {
	return widget.Text{Content: fmt.Sprint(model)}
}

type counter struct {
	n int
}

func counterUpdate(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
	c := model.(counter)
	if k, ok := msg.(mvu.KeyEvent); ok {
		switch {
		case k.Is('a'):
			c.n++
			return c, nil
		case k.Is('q'):
			return c, mvu.Exit()
		}
	}
	return c, nil
}

func TestRun_EchoScenario(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("aaaq")
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	final, err := p.Run(counter{}, plainView, counterUpdate, nil)
	require.NoError(t, err)
	assert.Equal(t, counter{n: 3}, final)
	assert.NotEmpty(t, term.Frames())
}

func TestRun_InitMessage(t *testing.T) {
	t.Parallel()

	t.Run("init message runs through update before the first frame", func(t *testing.T) {
		t.Parallel()
		term := termtest.New()
		term.Keys("q")
		p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

		update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
			if msg == "boot" {
				return counter{n: 42}, nil
			}
			return counterUpdate(msg, model)
		}
		final, err := p.Run(counter{}, plainView, update, func() mvu.Msg { return "boot" })
		require.NoError(t, err)
		assert.Equal(t, counter{n: 42}, final)
	})

	t.Run("init exit ends the loop before rendering", func(t *testing.T) {
		t.Parallel()
		term := termtest.New()
		p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

		update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
			return nil, mvu.Exit()
		}
		_, err := p.Run(counter{}, plainView, update, func() mvu.Msg { return "boot" })
		require.NoError(t, err)
		assert.Empty(t, term.Frames())
	})
}

func TestRun_ModelPreservation(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("aq")
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	// Update never returns a model: the initial model must survive both a
	// command-only return and the exit.
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		if k, ok := msg.(mvu.KeyEvent); ok && k.Is('q') {
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	final, err := p.Run(counter{n: 7}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, counter{n: 7}, final)
}

func TestRun_Invariants(t *testing.T) {
	t.Parallel()

	t.Run("nil model", func(t *testing.T) {
		t.Parallel()
		p := mvu.New(termtest.New())
		_, err := p.Run(nil, plainView, counterUpdate, nil)
		assert.ErrorIs(t, err, mvu.ErrInvariant)
	})

	t.Run("nil view tree", func(t *testing.T) {
		t.Parallel()
		p := mvu.New(termtest.New(), mvu.WithPollInterval(time.Millisecond))
		view := func(model mvu.Model, v mvu.View) widget.Widget { return nil }
		_, err := p.Run(counter{}, view, counterUpdate, nil)
		assert.ErrorIs(t, err, mvu.ErrInvariant)
	})
}

func TestRun_PollError(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.FailPoll(errors.New("tty gone"))
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	_, err := p.Run(counter{}, plainView, counterUpdate, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, mvu.ErrPoll)
	assert.Contains(t, err.Error(), "tty gone")
}

func TestRun_SyntheticMessage(t *testing.T) {
	t.Parallel()

	// Synthetic messages are consumed after the frame's input event, and an
	// Exit from that event ends the loop first, so the quit key is scripted
	// for the second frame.
	term := termtest.New()
	term.Inject("ping")
	term.Keys("aq")
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	var seen []mvu.Msg
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		if msg == "ping" {
			seen = append(seen, msg)
		}
		return counterUpdate(msg, model)
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, []mvu.Msg{"ping"}, seen)
}

func TestRun_BatchSubprocess(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	var result mvu.ExecResult
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.System("echo hi", "out")
			}
		case mvu.ExecResult:
			result = m
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, mvu.ExecResult{Tag: "out", Stdout: "hi\n", Stderr: "", Status: 0}, result)
}

func TestRun_BatchSpawnError(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term,
		mvu.WithPollInterval(time.Millisecond),
		mvu.WithShell("/nonexistent-mvu-shell"),
	)

	var execErr mvu.ExecError
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.System("echo hi", "out")
			}
		case mvu.ExecError:
			execErr = m
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, mvu.Tag("out"), execErr.Tag)
	assert.NotEmpty(t, execErr.Err)
}

func TestRun_StreamingSubprocess(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	var (
		stdout    []string
		stderr    []string
		completes []mvu.ExecComplete
		errs      []mvu.ExecError
	)
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.SystemStream(`printf 'a\nb\n'; printf 'x\n' 1>&2`, "s")
			}
		case mvu.ExecLine:
			switch m.Stream {
			case mvu.StreamStdout:
				stdout = append(stdout, m.Line)
			case mvu.StreamStderr:
				stderr = append(stderr, m.Line)
			}
		case mvu.ExecComplete:
			completes = append(completes, m)
			return nil, mvu.Exit()
		case mvu.ExecError:
			errs = append(errs, m)
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)

	// Per-stream order is preserved; interleaving between streams is not
	// specified. Completion arrives exactly once, after every line.
	assert.Equal(t, []string{"a\n", "b\n"}, stdout)
	assert.Equal(t, []string{"x\n"}, stderr)
	require.Len(t, completes, 1)
	assert.Equal(t, mvu.ExecComplete{Tag: "s", Status: 0}, completes[0])
	assert.Empty(t, errs)
}

func TestRun_StreamingSpawnError(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term,
		mvu.WithPollInterval(time.Millisecond),
		mvu.WithShell("/nonexistent-mvu-shell"),
	)

	var (
		errs      []mvu.ExecError
		completes []mvu.ExecComplete
	)
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.SystemStream("echo hi", "s")
			}
		case mvu.ExecComplete:
			completes = append(completes, m)
		case mvu.ExecError:
			errs = append(errs, m)
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Empty(t, completes)
}

func TestRun_MappedRouting(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	var routed mvu.Routed
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.Route(mvu.System("echo ok", "done"), "child")
			}
		case mvu.Routed:
			routed = m
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, mvu.Tag("child"), routed.Prefix)
	assert.Equal(t, mvu.ExecResult{Tag: "done", Stdout: "ok\n", Stderr: "", Status: 0}, routed.Msg)
}

func TestRun_MapComposition(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	term.Sync()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	emit := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {
		for _, n := range []int{1, 2, 3} {
			_ = o.Put(n)
		}
	})
	double := func(m mvu.Msg) mvu.Msg { return m.(int) * 2 }
	addOne := func(m mvu.Msg) mvu.Msg { return m.(int) + 1 }

	var got []int
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, mvu.Map(mvu.Map(emit, double), addOne)
			}
		case int:
			got = append(got, m)
			if len(got) == 3 {
				return nil, mvu.Exit()
			}
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)

	// map(map(c, f), g) behaves as mapping each output through g ∘ f, in
	// the inner emission order.
	assert.Equal(t, []int{3, 5, 7}, got)
}

type tick struct{}

func TestRun_CooperativeCancellation(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	logger, logs := testLogger()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond), mvu.WithLogger(logger))

	handleCh := make(chan mvu.Handle, 1)
	var (
		loopHandle mvu.Handle // touched only on the loop goroutine
		ticks      atomic.Int64
		cancelled  atomic.Bool
	)
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			switch {
			case m.Is('r'):
				c := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {
					for !tok.Cancelled() {
						_ = o.Put(tick{})
						time.Sleep(5 * time.Millisecond)
					}
				}, mvu.WithGrace(time.Second))
				loopHandle = c.Handle()
				handleCh <- c.Handle()
				return nil, c
			case m.Is('q'):
				return nil, mvu.Exit()
			}
		case tick:
			ticks.Add(1)
			if cancelled.CompareAndSwap(false, true) {
				return nil, mvu.Cancel(loopHandle)
			}
		}
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(counter{}, plainView, update, nil)
		done <- err
	}()
	handle := <-handleCh

	// The worker polls its token every 5ms and grace is 1s, so the entry
	// must leave the table without the worker being abandoned.
	require.Eventually(t, func() bool {
		return cancelled.Load() && !p.Active(handle)
	}, 3*time.Second, 5*time.Millisecond)

	term.Keys("q")
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, ticks.Load(), int64(1))
	assert.NotContains(t, logs.String(), "outlived grace")
}

func TestRun_CancelUnknownHandleIsNoop(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("rq")
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	never := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {})
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		if k, ok := msg.(mvu.KeyEvent); ok {
			if k.Is('r') {
				return nil, mvu.Cancel(never.Handle())
			}
			if k.Is('q') {
				return nil, mvu.Exit()
			}
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
}

func TestRun_CustomPanic(t *testing.T) {
	t.Parallel()

	term := termtest.New()
	term.Keys("r")
	logger, logs := testLogger()
	p := mvu.New(term, mvu.WithPollInterval(time.Millisecond), mvu.WithLogger(logger))

	boom := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {
		panic("boom")
	})
	var diag mvu.CustomPanic
	update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		switch m := msg.(type) {
		case mvu.KeyEvent:
			if m.Is('r') {
				return nil, boom
			}
		case mvu.CustomPanic:
			diag = m
			return nil, mvu.Exit()
		}
		return nil, nil
	}
	_, err := p.Run(counter{}, plainView, update, nil)
	require.NoError(t, err)
	assert.Equal(t, boom.Handle(), diag.Handle)
	assert.Contains(t, diag.Reason, "boom")
	assert.False(t, p.Active(boom.Handle()))
	assert.Contains(t, logs.String(), "panicked")
}

func TestRun_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("cooperative workers stop without warnings", func(t *testing.T) {
		t.Parallel()
		term := termtest.New()
		term.Keys("rq")
		logger, logs := testLogger()
		p := mvu.New(term,
			mvu.WithPollInterval(time.Millisecond),
			mvu.WithShutdownWindow(200*time.Millisecond),
			mvu.WithLogger(logger),
		)

		c := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {
			for !tok.Cancelled() {
				time.Sleep(time.Millisecond)
			}
		})
		update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
			if k, ok := msg.(mvu.KeyEvent); ok {
				if k.Is('r') {
					return nil, c
				}
				if k.Is('q') {
					return nil, mvu.Exit()
				}
			}
			return nil, nil
		}
		_, err := p.Run(counter{}, plainView, update, nil)
		require.NoError(t, err)
		assert.False(t, p.Active(c.Handle()))
		assert.NotContains(t, logs.String(), "abandoning worker")
	})

	t.Run("stragglers are abandoned with a warning", func(t *testing.T) {
		t.Parallel()
		term := termtest.New()
		term.Keys("rq")
		logger, logs := testLogger()
		p := mvu.New(term,
			mvu.WithPollInterval(time.Millisecond),
			mvu.WithShutdownWindow(10*time.Millisecond),
			mvu.WithLogger(logger),
		)

		release := make(chan struct{})
		c := mvu.Custom(func(o *mvu.Outlet, tok *mvu.Token) {
			<-release
		})
		update := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
			if k, ok := msg.(mvu.KeyEvent); ok {
				if k.Is('r') {
					return nil, c
				}
				if k.Is('q') {
					return nil, mvu.Exit()
				}
			}
			return nil, nil
		}
		_, err := p.Run(counter{}, plainView, update, nil)
		require.NoError(t, err)
		assert.False(t, p.Active(c.Handle()))
		assert.Contains(t, logs.String(), "abandoning worker")
		close(release)
	})
}

func TestRun_ModalRobustness(t *testing.T) {
	t.Parallel()

	// A modal guard turned off must not swallow a child route's result,
	// while key handlers stay guarded off.
	type modal struct {
		ModalActive bool
		ChildSeen   []mvu.Msg
		KeyFired    bool
	}

	childUpdate := func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		seen := model.([]mvu.Msg)
		return append(seen, msg), nil
	}

	modalInactive := func(m mvu.Model) bool { return !m.(modal).ModalActive }

	b := router.New()
	b.Route("net", childUpdate,
		func(m mvu.Model) mvu.Model { return m.(modal).ChildSeen },
		func(parent, child mvu.Model) mvu.Model {
			p := parent.(modal)
			p.ChildSeen = child.([]mvu.Msg)
			return p
		},
	)
	b.Scope(func(b *router.Builder) {
		b.Key(router.Key('s'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
			p := m.(modal)
			p.KeyFired = true
			return p, nil
		})
	}, router.When(modalInactive))
	b.Key(router.Key('q'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
		return nil, mvu.Exit()
	})
	update, err := b.Build()
	require.NoError(t, err)

	term := termtest.New()
	term.Inject(mvu.Routed{Prefix: "net", Msg: "done"})
	term.Keys("sq")
	prog := mvu.New(term, mvu.WithPollInterval(time.Millisecond))

	final, runErr := prog.Run(modal{ModalActive: true}, plainView, update, nil)
	require.NoError(t, runErr)
	m := final.(modal)
	assert.Equal(t, []mvu.Msg{"done"}, m.ChildSeen)
	assert.False(t, m.KeyFired)
}
