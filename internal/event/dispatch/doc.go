// Package dispatch executes event handlers synchronously.
//
// The Executor runs one handler at a time, recovers panics into a Result
// (with the value and stack), measures duration and honours context
// cancellation and an optional per-handler timeout. SyncDispatcher adds
// counters on top of an Executor.
//
// Neither type decides what happens after a failure; callers inspect the
// Result and stop or continue as their own policy requires.
//
// # Usage
//
//	d := dispatch.NewSyncDispatcher[MyEvent](
//	    dispatch.WithPanicHandler(func(v any, p any, stack []byte) {
//	        log.Printf("panic in handler: %v\n%s", p, stack)
//	    }),
//	)
//	if res := d.Dispatch(ctx, evt, handler); !res.IsSuccess() {
//	    // stop, log, or continue
//	}
package dispatch
