// Package mvu is a Model-View-Update execution engine for terminal user
// interfaces. Given an initial model, a view function, and an update
// function, a Program drives a render/input/dispatch loop, executes
// side-effecting commands on worker goroutines, and feeds tagged result
// messages back into update — all while keeping update single-threaded.
//
// The terminal itself is a collaborator behind the Terminal interface:
// package ansiterm implements it on a raw tty, package termtest implements
// it as a scripted driver for deterministic tests.
package mvu

// Msg is an application message. Messages are treated as immutable values:
// the runtime never mutates one, and every message the runtime produces is
// a plain value struct.
type Msg any

// Model is the application model. Update returns a replacement model; the
// previous model is never mutated in place.
type Model any

// Tag is the routing symbol attached to a command's result messages.
type Tag string

// UpdateFunc computes the next model and an optional command from a
// message. Returning a nil model preserves the previous model, so an update
// that only wants to issue a command can `return nil, cmd`. Returning a nil
// command means no effect.
type UpdateFunc func(msg Msg, model Model) (Model, Cmd)

// InitFunc produces an initial message fed through update before the first
// frame is rendered.
type InitFunc func() Msg

// StreamName identifies which output stream of a streaming System command a
// line came from.
type StreamName string

// Stream names for ExecLine.
const (
	StreamStdout StreamName = "stdout"
	StreamStderr StreamName = "stderr"
)

// ExecResult is the single message produced by a batch System command.
type ExecResult struct {
	Tag    Tag
	Stdout string
	Stderr string
	Status int
}

// ExecLine is one line of output from a streaming System command. Line
// retains its trailing newline. Lines from the same stream arrive in
// emission order; interleaving between stdout and stderr is unordered.
type ExecLine struct {
	Tag    Tag
	Stream StreamName
	Line   string
}

// ExecComplete is emitted exactly once per streaming System command, after
// every line of that command has been delivered.
type ExecComplete struct {
	Tag    Tag
	Status int
}

// ExecError reports that a System command's process could not be started.
// It is used uniformly by batch and streaming mode; when it is emitted no
// ExecResult or ExecComplete follows.
type ExecError struct {
	Tag Tag
	Err string
}

// CustomPanic reports that a Custom command's callable panicked. The worker
// has been removed from the active-command table; update decides what to do
// with the failure.
type CustomPanic struct {
	Handle Handle
	Reason string
}

// Routed wraps a child's message with the prefix a parent uses to route it.
// Produced by Route, consumed by Delegate.
type Routed struct {
	Prefix Tag
	Msg    Msg
}
