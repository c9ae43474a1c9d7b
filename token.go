package mvu

import "sync/atomic"

// Token is a cooperative cancellation latch shared between the runtime and
// a Custom worker. Once Cancel has been called, every subsequent Cancelled
// call on any goroutine returns true. All operations are infallible and
// safe for concurrent use.
type Token struct {
	cancelled atomic.Bool
	cancels   atomic.Int64
	noop      bool
}

// NewToken returns a fresh, non-cancelled token.
func NewToken() *Token { return &Token{} }

// None is a token that is never cancelled and ignores Cancel. It lets
// callables that do not care about cancellation be invoked uniformly.
var None = &Token{noop: true}

// Cancel flips the token. Concurrent calls are idempotent.
func (t *Token) Cancel() {
	if t.noop {
		return
	}
	t.cancels.Add(1)
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t.noop {
		return false
	}
	return t.cancelled.Load()
}

// Cancels returns how many times Cancel has been called. Test
// instrumentation only.
func (t *Token) Cancels() int64 { return t.cancels.Load() }
