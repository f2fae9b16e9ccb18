package dispatch

import (
	"context"
	"time"
)

// Handler is implemented by anything that can receive a dispatched value.
// The event package's Handler satisfies Handler[event.Event], which keeps this
// package free of an import cycle.
type Handler[E any] interface {
	Handle(ctx context.Context, e E) error
}

// Dispatcher executes a single handler with a value.
type Dispatcher[E any] interface {
	Dispatch(ctx context.Context, e E, handler Handler[E]) Result
}

// Result represents the outcome of a handler execution.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration

	// Skipped is true if the handler was not executed (e.g., context cancelled).
	Skipped bool
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// PanicHandler is called when a handler panics during execution.
// It receives the value being dispatched, the panic value, and the stack trace.
type PanicHandler func(value any, panicValue any, stack []byte)
