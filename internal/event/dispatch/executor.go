package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor runs handlers with panic recovery and timing.
type Executor[E any] struct {
	panicHandler PanicHandler
}

// NewExecutor creates a new executor with the given options.
func NewExecutor[E any](opts ...ExecutorOption) *Executor[E] {
	cfg := executorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Executor[E]{panicHandler: cfg.panicHandler}
}

type executorConfig struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(c *executorConfig) {
		c.panicHandler = h
	}
}

// Execute runs a handler with the given value and returns the result.
// A context that is already done skips the handler.
func (x *Executor[E]) Execute(ctx context.Context, e E, handler Handler[E]) (result Result) {
	select {
	case <-ctx.Done():
		return Result{
			Error:   ctx.Err(),
			Skipped: true,
		}
	default:
	}

	if handler == nil {
		return Result{Error: ErrNilHandler, Skipped: true}
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Error = nil
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if x.panicHandler != nil {
				func() {
					// A panicking panic handler must not take the caller down.
					defer func() { _ = recover() }()
					x.panicHandler(e, r, stack)
				}()
			}
		}
	}()

	if err := handler.Handle(ctx, e); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// ExecuteWithTimeout runs a handler with a deadline derived from ctx.
// The handler must observe ctx for the timeout to have any effect.
func (x *Executor[E]) ExecuteWithTimeout(ctx context.Context, e E, handler Handler[E], timeout time.Duration) Result {
	if timeout <= 0 {
		return x.Execute(ctx, e, handler)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return x.Execute(ctx, e, handler)
}
