package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/mvu"
	"github.com/fwojciec/mvu/router"
	"github.com/fwojciec/mvu/widget"
)

const procPrefix mvu.Tag = "proc"

const helpText = `# mvu-demo

- **a** — increment the counter
- **r** — stream the configured command into the process pane
- **?** — toggle this help
- **q** / ctrl+c — quit

Scroll the process pane with the mouse wheel.`

// app is the parent bag's model. It owns the child bag's model as a field,
// the way fractal composition nests state.
type app struct {
	Count  int
	Help   bool
	Scroll int
	Proc   proc
}

// proc is the child bag's model: output of the streamed command.
type proc struct {
	Lines   []string
	Running bool
	Status  *int
}

func newApp() app {
	return app{}
}

// procUpdate is the child bag's update. It sees only its own messages; the
// parent routes them here via the "proc" prefix.
func procUpdate(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
	p := model.(proc)
	switch m := msg.(type) {
	case mvu.ExecLine:
		p.Lines = append(p.Lines, strings.TrimRight(m.Line, "\n"))
		return p, nil
	case mvu.ExecComplete:
		status := m.Status
		p.Running = false
		p.Status = &status
		return p, nil
	case mvu.ExecError:
		p.Running = false
		p.Lines = append(p.Lines, "error: "+m.Err)
		return p, nil
	}
	return p, nil
}

// buildUpdate assembles the parent update: the proc child route first, then
// the keymap with the help modal guarding the app keys but never the route.
func buildUpdate(command string) (mvu.UpdateFunc, error) {
	helpOpen := func(m mvu.Model) bool { return m.(app).Help }

	b := router.New()
	b.Route(procPrefix, procUpdate,
		func(m mvu.Model) mvu.Model { return m.(app).Proc },
		func(parent, child mvu.Model) mvu.Model {
			a := parent.(app)
			a.Proc = child.(proc)
			return a
		},
	)

	b.Action("quit", func(m mvu.Model) (mvu.Model, mvu.Cmd) {
		return nil, mvu.Exit()
	})
	b.KeyAction(router.Key('q'), "quit")
	b.KeyAction(router.Ctrl('c'), "quit")

	b.Scope(func(b *router.Builder) {
		b.Key(router.Key('a'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
			a := m.(app)
			a.Count++
			return a, nil
		})
		b.Key(router.Key('r'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
			a := m.(app)
			a.Proc = proc{Running: true}
			a.Scroll = 0
			return a, mvu.SystemStream(command, "run")
		}, router.RouteTo(procPrefix))
		b.Key(router.Key('?'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
			a := m.(app)
			a.Help = true
			return a, nil
		})
	}, router.Unless(helpOpen))

	b.Key(router.Esc(), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
		a := m.(app)
		a.Help = false
		return a, nil
	}, router.When(helpOpen))
	b.Key(router.Key('?'), func(m mvu.Model) (mvu.Model, mvu.Cmd) {
		a := m.(app)
		a.Help = false
		return a, nil
	}, router.When(helpOpen))

	b.ScrollUp(func(ev mvu.MouseEvent, m mvu.Model) (mvu.Model, mvu.Cmd) {
		a := m.(app)
		if a.Scroll > 0 {
			a.Scroll--
		}
		return a, nil
	})
	b.ScrollDown(func(ev mvu.MouseEvent, m mvu.Model) (mvu.Model, mvu.Cmd) {
		a := m.(app)
		if a.Scroll < len(a.Proc.Lines)-1 {
			a.Scroll++
		}
		return a, nil
	})

	return b.Build()
}

func appView(model mvu.Model, v mvu.View) widget.Widget {
	a := model.(app)
	theme := widget.DefaultTheme()

	if a.Help {
		return widget.Box{
			Title: "help",
			Theme: theme,
			Child: widget.Markdown{Source: helpText, Theme: theme},
		}
	}

	counter := widget.Box{
		Title: "counter",
		Theme: theme,
		Child: widget.Text{
			Content: fmt.Sprintf("count: %d", a.Count),
			Style:   lipgloss.NewStyle().Bold(true),
		},
	}

	status := "idle — press r to run"
	switch {
	case a.Proc.Running:
		status = "running…"
	case a.Proc.Status != nil:
		status = fmt.Sprintf("exited with status %d", *a.Proc.Status)
	}
	lines := a.Proc.Lines
	if a.Scroll < len(lines) {
		lines = lines[a.Scroll:]
	}
	pane := widget.Box{
		Title: "process — " + status,
		Theme: theme,
		Child: widget.Text{Content: strings.Join(lines, "\n")},
	}

	return widget.Stack{Children: []widget.Widget{counter, pane}}
}
