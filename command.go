package mvu

import (
	"time"

	"github.com/google/uuid"
)

// Default cooperative-cancellation grace for Custom commands.
const DefaultGrace = 2 * time.Second

// GraceForever makes Cancel wait indefinitely for a cooperative stop and
// never abandon the worker. Use it for callables holding resources that
// must not leak.
const GraceForever time.Duration = -1

// Cmd is a sealed interface representing a side-effect descriptor returned
// by update. Commands are pure data; the dispatcher turns them into
// concurrent work. The unexported marker method prevents external
// implementations, keeping the sum closed.
type Cmd interface {
	cmd()
}

// ExitCmd terminates the runtime loop. The loop short-circuits on it; it
// never reaches the dispatcher.
type ExitCmd struct{}

func (ExitCmd) cmd() {}

// SystemCmd executes Command with the host shell. In batch mode the full
// stdout, stderr, and exit status arrive as one ExecResult. In streaming
// mode each output line arrives as an ExecLine, followed by exactly one
// ExecComplete.
type SystemCmd struct {
	Command string
	Tag     Tag
	Stream  bool
}

func (SystemCmd) cmd() {}

// MappedCmd executes Inner and transforms each of its result messages
// through Mapper before delivery. Inner ordering is preserved exactly.
type MappedCmd struct {
	Inner  Cmd
	Mapper func(Msg) Msg
}

func (MappedCmd) cmd() {}

// CustomFunc is a user-supplied effect. It runs on a worker goroutine,
// pushes messages through the outlet, and is expected to poll the token at
// safe points so Cancel can stop it cooperatively.
type CustomFunc func(o *Outlet, t *Token)

// CustomCmd runs a user-supplied effect on a worker goroutine. Every value
// built by Custom carries a fresh handle, even when the callable is shared,
// so each dispatch can be cancelled independently.
type CustomCmd struct {
	handle Handle
	fn     CustomFunc
	grace  time.Duration
}

func (CustomCmd) cmd() {}

// Handle returns the unique identity of this command, used as the argument
// to Cancel.
func (c CustomCmd) Handle() Handle { return c.handle }

// Grace returns how long Cancel waits for a cooperative stop before
// abandoning the worker.
func (c CustomCmd) Grace() time.Duration { return c.grace }

// CancelCmd requests cooperative cancellation of the Custom command
// identified by Handle. Cancellation travels through the same dispatch
// mechanism as every other effect.
type CancelCmd struct {
	Handle Handle
}

func (CancelCmd) cmd() {}

// Handle is the identity of a dispatched Custom command and the key of the
// runtime's active-command table.
type Handle struct {
	id string
}

// IsZero reports whether h identifies no command.
func (h Handle) IsZero() bool { return h.id == "" }

// String returns the handle's identity for logging.
func (h Handle) String() string { return h.id }

// Exit returns a command that terminates the loop.
func Exit() Cmd { return ExitCmd{} }

// System returns a batch subprocess command. The result arrives as a single
// ExecResult tagged with tag, or an ExecError when the process cannot be
// started.
func System(command string, tag Tag) Cmd {
	return SystemCmd{Command: command, Tag: tag}
}

// SystemStream returns a streaming subprocess command. Output lines arrive
// as ExecLine messages, then exactly one ExecComplete — or exactly one
// ExecError when the process cannot be started.
func SystemStream(command string, tag Tag) Cmd {
	return SystemCmd{Command: command, Tag: tag, Stream: true}
}

// Map returns a command that executes inner and passes each of its result
// messages through mapper. Map composes: mapping a mapped command applies
// the outer mapper to the inner mapper's output. A nil inner or mapper
// returns inner unchanged.
func Map(inner Cmd, mapper func(Msg) Msg) Cmd {
	if inner == nil || mapper == nil {
		return inner
	}
	return MappedCmd{Inner: inner, Mapper: mapper}
}

// CustomOption configures a Custom command.
type CustomOption func(*CustomCmd)

// WithGrace sets how long Cancel waits for a cooperative stop before
// abandoning the worker. Pass GraceForever to wait indefinitely.
func WithGrace(d time.Duration) CustomOption {
	return func(c *CustomCmd) {
		c.grace = d
	}
}

// Custom returns a command that runs fn on a worker goroutine with an
// outlet into the runtime inbox and a fresh cancellation token. The
// returned value carries a fresh handle on every call.
func Custom(fn CustomFunc, opts ...CustomOption) CustomCmd {
	c := CustomCmd{
		handle: Handle{id: uuid.NewString()},
		fn:     fn,
		grace:  DefaultGrace,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Cancel returns a command that requests cooperative cancellation of the
// Custom command identified by h. Cancelling a finished or never-dispatched
// handle is a no-op.
func Cancel(h Handle) Cmd {
	return CancelCmd{Handle: h}
}

// Interface compliance checks.
var (
	_ Cmd = ExitCmd{}
	_ Cmd = SystemCmd{}
	_ Cmd = MappedCmd{}
	_ Cmd = CustomCmd{}
	_ Cmd = CancelCmd{}
)
