// Package event provides a namespaced, synchronous event emitter.
//
// Handlers are registered under event types: dot-delimited strings such as
// "user", "user.login" or "user.login.failed". Emitting a type invokes the
// handlers registered under that type and, unless exact matching is
// requested, the handlers registered under every type nested below it.
//
// # Namespace Matching
//
// A registered type R matches an emitted type T when R == T or when R
// starts with T followed by ".". Matching is on whole segments, so
// emitting "user" reaches "user.login" but never "username":
//
//	emit "a"      reaches  a, a.b, a.b.c
//	emit "a.b"    reaches  a.b, a.b.c
//	emit "a.b.c"  reaches  a.b.c
//
// The Exact match option restricts both Emit and the Off family to the
// literal type.
//
// # Dispatch Order
//
// Matched types are visited in the order they were first registered, and
// the handlers of one type in the order they were added. Registering the
// same handler twice makes it fire twice.
//
// Emit captures its handlers before the first one runs. Handlers added or
// removed while an emit is in progress only affect later emits.
//
// # Errors
//
// Dispatch is fail-fast. The first handler that returns an error stops the
// emit and Emit returns a *HandlerError wrapping it. A panicking handler is
// recovered and reported the same way as a *PanicError, which matches
// ErrHandlerPanic with errors.Is.
//
// # One-Shot Handlers
//
// A handler registered with Once, or On with WithOnce, fires at most once.
// Its entry is removed just before it runs, so a handler that re-emits the
// same type does not reach itself again, and a failing one-shot handler is
// still gone afterwards.
//
// # Removing Handlers
//
// Go function values are not comparable, so removal by reference has three
// forms:
//
//   - Unsubscribe(sub) removes the entry returned by On or Once.
//   - OffHandler(t, h) removes entries whose handler == h. Use a pointer
//     type such as *Listener for func handlers.
//   - OffWhere(t, pred) removes entries whose handler satisfies pred.
//
// Off(t) removes every handler of every matching type. Types whose handler
// list becomes empty are dropped.
//
// # Receivers and Embedding
//
// Every Event carries a Receiver: the value bound with WithReceiver, else
// the emitter's owner set with WithOwner, else the emitter itself.
// Embedding an *Emitter in another struct and passing that struct to
// WithOwner gives the struct the full emitter API with handlers observing
// the struct as their receiver.
//
// # Basic Usage
//
//	em := event.New()
//
//	em.OnFunc("user.login", func(ctx context.Context, e event.Event) error {
//	    fmt.Println("login:", e.Data)
//	    return nil
//	})
//
//	// Reaches "user.login" through the namespace.
//	if err := em.Emit(ctx, "user", "alice"); err != nil {
//	    log.Printf("emit failed: %v", err)
//	}
//
// # Filtering
//
// WithFilter attaches a predicate to a subscription. A filtered-out event
// is not an invocation: a one-shot handler stays armed.
//
//	em.On("order", h, event.WithFilter(event.FilterJSON("status", "paid")))
//
// # Thread Safety
//
// The Emitter is safe for concurrent use. No lock is held while a handler
// runs. Handlers must manage their own thread safety.
//
// # Subpackages
//
//   - topic: Topic type and trie-based namespace lookup
//   - dispatch: Generic handler execution with panic recovery and timeouts
package event
