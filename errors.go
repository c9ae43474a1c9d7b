package mvu

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrInvariant indicates a programming error the loop cannot recover
	// from: a view returned no widget, an outlet received a nil message, or
	// a router registration was invalid.
	ErrInvariant = errors.New("invariant violation")

	// ErrPoll indicates the terminal collaborator failed to poll for input.
	ErrPoll = errors.New("poll error")
)
