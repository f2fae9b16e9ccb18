package event

import (
	"context"
	"time"

	"github.com/nsevent/nsevent/internal/event/topic"
)

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event. A non-nil error stops the emit in progress.
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc is a function adapter for Handler.
//
// Func values are not comparable, so a HandlerFunc can only be removed
// through its Subscription. Wrap it with NewListener when removal by
// handler reference is needed.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Listener gives a function a stable identity. Two registrations of the
// same *Listener are the same handler for OffHandler.
type Listener struct {
	fn HandlerFunc
}

// NewListener wraps fn in a Listener.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{fn: fn}
}

// Handle implements the Handler interface.
func (l *Listener) Handle(ctx context.Context, e Event) error {
	return l.fn(ctx, e)
}

// Event is what a handler receives for one invocation.
type Event struct {
	// Topic is the type passed to Emit.
	Topic topic.Topic

	// Key is the type the handler was registered under. In namespace mode
	// it may be nested below Topic.
	Key topic.Topic

	// Data is the payload passed to Emit.
	Data any

	// Receiver is the value bound with WithReceiver, or the emitter's owner
	// when the handler was registered without one.
	Receiver any

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata is shared by every Event produced from a single Emit call.
type Metadata struct {
	// ID identifies the Emit call.
	ID string

	// Timestamp is when Emit was called.
	Timestamp time.Time

	// Source identifies the publisher, if it set one with WithSource.
	Source string
}

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to skip the handler.
type FilterFunc func(e Event) bool

// Logger is the subset of a structured logger the emitter writes to.
// Both *slog.Logger and *logging.Logger satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// PanicHandler is called when a handler panics, before Emit returns the
// corresponding *PanicError.
type PanicHandler func(e Event, recovered any, stack []byte)

// Stats contains emitter statistics.
type Stats struct {
	// Emits is the number of Emit calls that matched at least one handler.
	Emits uint64

	// HandlersExecuted is the total number of handler invocations.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// OnceFired is the number of one-shot handlers that fired and were removed.
	OnceFired uint64

	// Subscriptions is the current number of registered handlers.
	Subscriptions int

	// Topics is the current number of registered event types.
	Topics int

	// AvgHandlerTime is the average handler execution time.
	AvgHandlerTime time.Duration
}
