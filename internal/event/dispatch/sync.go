package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher executes handlers in the caller's goroutine.
type SyncDispatcher[E any] struct {
	executor *Executor[E]
	timeout  time.Duration

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*syncConfig)

type syncConfig struct {
	panicHandler PanicHandler
	timeout      time.Duration
}

// WithPanicHandler sets the panic handler for the dispatcher.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(c *syncConfig) {
		c.panicHandler = h
	}
}

// WithTimeout sets a per-handler timeout. Zero disables it.
func WithTimeout(timeout time.Duration) SyncOption {
	return func(c *syncConfig) {
		c.timeout = timeout
	}
}

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher[E any](opts ...SyncOption) *SyncDispatcher[E] {
	var cfg syncConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SyncDispatcher[E]{
		executor: NewExecutor[E](WithExecutorPanicHandler(cfg.panicHandler)),
		timeout:  cfg.timeout,
	}
}

// Dispatch executes a handler and blocks until it returns, fails or panics.
func (d *SyncDispatcher[E]) Dispatch(ctx context.Context, e E, handler Handler[E]) Result {
	d.dispatched.Add(1)

	result := d.executor.ExecuteWithTimeout(ctx, e, handler, d.timeout)

	d.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	case result.Success:
		d.succeeded.Add(1)
	}

	return result
}

// Stats returns dispatch statistics.
// Counters are read independently and may be slightly inconsistent while
// dispatches are in flight.
func (d *SyncDispatcher[E]) Stats() Stats {
	dispatched := d.dispatched.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if dispatched > 0 {
		avgNs = totalNs / int64(dispatched)
	}

	return Stats{
		Dispatched:    dispatched,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains statistics for a sync dispatcher.
type Stats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Skipped       uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}
