// Package router builds update functions declaratively: child routes,
// keymaps, and mousemaps with guards, compiled into an immutable dispatch
// table. Child routes are always consulted before key or mouse handlers,
// so a modal guard can never swallow the results of an asynchronous
// command it did not initiate.
package router

import (
	"fmt"

	"github.com/fwojciec/mvu"
)

// Predicate decides whether a guarded handler runs for the current model.
type Predicate func(model mvu.Model) bool

// Handler is a keymap handler. Returning a nil model preserves the current
// model, like any update.
type Handler func(model mvu.Model) (mvu.Model, mvu.Cmd)

// MouseHandler is a mousemap handler; it receives the event for its
// coordinates.
type MouseHandler func(ev mvu.MouseEvent, model mvu.Model) (mvu.Model, mvu.Cmd)

// KeyPredicate matches a key event.
type KeyPredicate func(key mvu.KeyEvent) bool

// Key matches a plain press of r.
func Key(r rune) KeyPredicate {
	return func(k mvu.KeyEvent) bool { return k.Is(r) }
}

// Ctrl matches ctrl+r.
func Ctrl(r rune) KeyPredicate {
	return func(k mvu.KeyEvent) bool { return k.IsCtrl(r) }
}

// Enter matches the enter key.
func Enter() KeyPredicate {
	return func(k mvu.KeyEvent) bool { return k.Enter() }
}

// Esc matches the escape key.
func Esc() KeyPredicate {
	return func(k mvu.KeyEvent) bool { return k.Esc() }
}

// Condition is a guard on a key, mouse handler, or scope. The positive
// family (When, If, Only, Guard) runs the handler iff the predicate is
// true; the negative family (Unless, Skip, Except) iff it is false. Names
// within a family are semantically identical; supplying two condition
// names on the same entry or scope is an invariant violation at build
// time.
type Condition struct {
	name   string
	pred   Predicate
	negate bool
}

// When runs the handler iff p is true.
func When(p Predicate) Condition { return Condition{name: "when", pred: p} }

// If is an alias of When.
func If(p Predicate) Condition { return Condition{name: "if", pred: p} }

// Only is an alias of When.
func Only(p Predicate) Condition { return Condition{name: "only", pred: p} }

// Guard is an alias of When.
func Guard(p Predicate) Condition { return Condition{name: "guard", pred: p} }

// Unless runs the handler iff p is false.
func Unless(p Predicate) Condition { return Condition{name: "unless", pred: p, negate: true} }

// Skip is an alias of Unless.
func Skip(p Predicate) Condition { return Condition{name: "skip", pred: p, negate: true} }

// Except is an alias of Unless.
func Except(p Predicate) Condition { return Condition{name: "except", pred: p, negate: true} }

func (c Condition) pass(model mvu.Model) bool {
	if c.pred == nil {
		return true
	}
	ok := c.pred(model)
	if c.negate {
		return !ok
	}
	return ok
}

// Option configures a key or mouse handler registration.
type Option interface {
	apply(e *entry) error
}

// RouteTo wraps the handler's command with mvu.Route(cmd, prefix) so its
// results come back labelled for a child route.
func RouteTo(prefix mvu.Tag) Option {
	return routeOption(prefix)
}

type routeOption mvu.Tag

func (r routeOption) apply(e *entry) error {
	e.route = mvu.Tag(r)
	return nil
}

func (c Condition) apply(e *entry) error {
	if e.cond != nil {
		return fmt.Errorf("router: conflicting guards %q and %q on one entry: %w",
			e.cond.name, c.name, mvu.ErrInvariant)
	}
	cc := c
	e.cond = &cc
	return nil
}

type routeEntry struct {
	prefix mvu.Tag
	child  mvu.UpdateFunc
	get    func(mvu.Model) mvu.Model
	set    func(parent, child mvu.Model) mvu.Model
}

type entry struct {
	keyPred   KeyPredicate
	mouseKind mvu.MouseKind
	handler   Handler
	mouse     MouseHandler
	action    string
	route     mvu.Tag
	cond      *Condition
	scope     []Condition
}

func (e *entry) pass(model mvu.Model) bool {
	for _, c := range e.scope {
		if !c.pass(model) {
			return false
		}
	}
	return e.cond == nil || e.cond.pass(model)
}

// Builder accumulates routes, actions, and handlers, then compiles them
// into an update function.
type Builder struct {
	routes  []routeEntry
	actions map[string]Handler
	keys    []*entry
	mice    []*entry
	scope   []Condition
	errs    []error
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{actions: make(map[string]Handler)}
}

// Route registers a child route. Messages wrapped in mvu.Routed with
// prefix are delegated to child against the model returned by get; the new
// child model is merged back with set.
func (b *Builder) Route(prefix mvu.Tag, child mvu.UpdateFunc, get func(mvu.Model) mvu.Model, set func(parent, child mvu.Model) mvu.Model) *Builder {
	if child == nil || get == nil || set == nil {
		b.errs = append(b.errs, fmt.Errorf("router: route %q needs child, get and set: %w", prefix, mvu.ErrInvariant))
		return b
	}
	b.routes = append(b.routes, routeEntry{prefix: prefix, child: child, get: get, set: set})
	return b
}

// Action names a reusable handler for KeyAction references.
func (b *Builder) Action(name string, h Handler) *Builder {
	if _, dup := b.actions[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("router: duplicate action %q: %w", name, mvu.ErrInvariant))
		return b
	}
	b.actions[name] = h
	return b
}

// Key registers a handler for key events matching pred. For each key event
// only the first registered entry whose predicate matches and whose guards
// pass fires.
func (b *Builder) Key(pred KeyPredicate, h Handler, opts ...Option) *Builder {
	e := &entry{keyPred: pred, handler: h, scope: b.scopeSnapshot()}
	b.applyOpts(e, opts)
	b.keys = append(b.keys, e)
	return b
}

// KeyAction registers a key handler by action name; the name is resolved
// at Build time.
func (b *Builder) KeyAction(pred KeyPredicate, action string, opts ...Option) *Builder {
	e := &entry{keyPred: pred, action: action, scope: b.scopeSnapshot()}
	b.applyOpts(e, opts)
	b.keys = append(b.keys, e)
	return b
}

// Click registers a mouse-click handler.
func (b *Builder) Click(h MouseHandler, opts ...Option) *Builder {
	return b.mouseEntry(mvu.MouseClick, h, opts)
}

// ScrollUp registers a scroll-up handler.
func (b *Builder) ScrollUp(h MouseHandler, opts ...Option) *Builder {
	return b.mouseEntry(mvu.MouseScrollUp, h, opts)
}

// ScrollDown registers a scroll-down handler.
func (b *Builder) ScrollDown(h MouseHandler, opts ...Option) *Builder {
	return b.mouseEntry(mvu.MouseScrollDown, h, opts)
}

func (b *Builder) mouseEntry(kind mvu.MouseKind, h MouseHandler, opts []Option) *Builder {
	e := &entry{mouseKind: kind, mouse: h, scope: b.scopeSnapshot()}
	b.applyOpts(e, opts)
	b.mice = append(b.mice, e)
	return b
}

// Scope applies cond to every key and mouse handler registered inside fn.
// Nested scopes compose by logical AND. Passing more than one condition to
// a single Scope is an invariant violation.
func (b *Builder) Scope(fn func(*Builder), conds ...Condition) *Builder {
	if len(conds) > 1 {
		b.errs = append(b.errs, fmt.Errorf("router: conflicting guards %q and %q in one scope: %w",
			conds[0].name, conds[1].name, mvu.ErrInvariant))
	}
	depth := len(b.scope)
	b.scope = append(b.scope, conds...)
	fn(b)
	b.scope = b.scope[:depth]
	return b
}

func (b *Builder) scopeSnapshot() []Condition {
	return append([]Condition(nil), b.scope...)
}

func (b *Builder) applyOpts(e *entry, opts []Option) {
	for _, opt := range opts {
		if err := opt.apply(e); err != nil {
			b.errs = append(b.errs, err)
		}
	}
}

// Build compiles the registered table into an update function. Dispatch
// order within one invocation: child routes first, then the keymap, then
// the mousemap; unmatched messages return the model unchanged.
func (b *Builder) Build() (mvu.UpdateFunc, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	for _, e := range b.keys {
		if e.action == "" {
			continue
		}
		h, ok := b.actions[e.action]
		if !ok {
			return nil, fmt.Errorf("router: unknown action %q: %w", e.action, mvu.ErrInvariant)
		}
		e.handler = h
	}

	routes := append([]routeEntry(nil), b.routes...)
	keys := append([]*entry(nil), b.keys...)
	mice := append([]*entry(nil), b.mice...)

	return func(msg mvu.Msg, model mvu.Model) (mvu.Model, mvu.Cmd) {
		for _, r := range routes {
			child, cmd, ok := mvu.Delegate(msg, r.prefix, r.child, r.get(model))
			if ok {
				return r.set(model, child), cmd
			}
		}

		if key, ok := msg.(mvu.KeyEvent); ok {
			for _, e := range keys {
				if !e.keyPred(key) || !e.pass(model) {
					continue
				}
				return e.fire(model)
			}
			return model, nil
		}

		if mev, ok := msg.(mvu.MouseEvent); ok {
			for _, e := range mice {
				if e.mouseKind != mev.Kind || !e.pass(model) {
					continue
				}
				next, cmd := e.mouse(mev, model)
				if next == nil {
					next = model
				}
				if e.route != "" {
					cmd = mvu.Route(cmd, e.route)
				}
				return next, cmd
			}
			return model, nil
		}

		return model, nil
	}, nil
}

func (e *entry) fire(model mvu.Model) (mvu.Model, mvu.Cmd) {
	next, cmd := e.handler(model)
	if next == nil {
		next = model
	}
	if e.route != "" {
		cmd = mvu.Route(cmd, e.route)
	}
	return next, cmd
}
