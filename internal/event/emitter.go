package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nsevent/nsevent/internal/event/dispatch"
	"github.com/nsevent/nsevent/internal/event/topic"
)

// Emitter is a namespaced event emitter.
//
// Handlers are registered under dot-delimited types. Emitting a type
// reaches every handler registered under that type or any type nested below
// it; Exact restricts the match to the literal type.
//
// The Emitter is safe for concurrent use. No lock is held while handlers
// run, so handlers may call On, Off or Emit on the same emitter.
type Emitter struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher[Event]
	config     emitterConfig

	emits     atomic.Uint64
	onceFired atomic.Uint64
}

// New creates an emitter with an empty registry.
func New(opts ...Option) *Emitter {
	config := defaultEmitterConfig()
	for _, opt := range opts {
		opt(&config)
	}

	e := &Emitter{
		registry: NewRegistry(),
		config:   config,
	}

	e.dispatcher = dispatch.NewSyncDispatcher[Event](
		dispatch.WithTimeout(config.handlerTimeout),
		dispatch.WithPanicHandler(func(v any, recovered any, stack []byte) {
			if config.panicHandler == nil {
				return
			}
			if ev, ok := v.(Event); ok {
				config.panicHandler(ev, recovered, stack)
			}
		}),
	)

	return e
}

// On registers h under t. Registering the same handler twice makes it fire
// twice per matching emit.
func (e *Emitter) On(t topic.Topic, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	if t == "" {
		return nil, ErrInvalidTopic
	}
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}

	sub := newSubscription(e, t, h, opts...)
	e.registry.Add(sub)
	return sub, nil
}

// OnFunc is a convenience method for registering a function handler.
func (e *Emitter) OnFunc(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return e.On(t, fn, opts...)
}

// Once registers h under t for a single invocation. The first emit that
// reaches it removes that one entry and then runs the handler; it never
// runs again. Other handlers under t or overlapping types are untouched.
func (e *Emitter) Once(t topic.Topic, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	return e.On(t, h, append(opts, WithOnce())...)
}

// OnceFunc is a convenience method for registering a one-shot function handler.
func (e *Emitter) OnceFunc(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return e.Once(t, fn, opts...)
}

// Off removes every handler of every type matching t and returns how many
// were removed. Removing nothing is not an error.
func (e *Emitter) Off(t topic.Topic, opts ...MatchOption) int {
	return e.OffWhere(t, nil, opts...)
}

// OffHandler removes the entries of types matching t whose handler is h.
// Other handlers keep their order.
func (e *Emitter) OffHandler(t topic.Topic, h Handler, opts ...MatchOption) (int, error) {
	if isNilHandler(h) {
		return 0, ErrNilHandler
	}
	if !isComparable(h) {
		return 0, ErrHandlerNotComparable
	}
	return e.OffWhere(t, func(candidate Handler) bool {
		return sameHandler(candidate, h)
	}, opts...), nil
}

// OffWhere removes the entries of types matching t whose handler satisfies
// pred. A nil pred removes all of them.
func (e *Emitter) OffWhere(t topic.Topic, pred func(Handler) bool, opts ...MatchOption) int {
	cfg := newMatchConfig(opts)

	var match func(*subscription) bool
	if pred != nil {
		match = func(s *subscription) bool { return pred(s.handler) }
	}

	removed := e.registry.RemoveMatching(t, cfg.exact, match)
	for _, s := range removed {
		s.cancel()
	}
	return len(removed)
}

// Unsubscribe removes the single entry behind sub.
func (e *Emitter) Unsubscribe(sub Subscription) error {
	s, ok := sub.(*subscription)
	if !ok || s == nil || s.owner != e {
		return ErrInvalidSubscription
	}

	if !e.registry.Remove(s.ID()) {
		return ErrSubscriptionNotFound
	}
	s.cancel()
	return nil
}

// Emit invokes, in order, every handler whose type matches t, passing data.
//
// The matching handlers are captured before the first one runs. Handlers
// registered or removed while Emit runs only affect later emits, and a
// one-shot handler runs at most once even if a handler re-emits.
//
// The first handler that returns an error or panics stops the emit; the
// remaining handlers do not run and Emit returns a *HandlerError or
// *PanicError. Emitting a type nobody listens to returns nil.
func (e *Emitter) Emit(ctx context.Context, t topic.Topic, data any, opts ...MatchOption) error {
	if t == "" {
		return ErrInvalidTopic
	}

	cfg := newMatchConfig(opts)
	subs := e.snapshot(t, cfg.exact)
	if len(subs) == 0 {
		return nil
	}

	e.emits.Add(1)

	meta := Metadata{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    cfg.source,
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev := Event{
			Topic:    t,
			Key:      sub.topic,
			Data:     data,
			Receiver: e.receiver(sub),
			Metadata: meta,
		}

		if !sub.accepts(ev) {
			continue
		}

		if sub.Once() {
			// ctx may have ended while the filter ran; stay armed.
			if err := ctx.Err(); err != nil {
				return err
			}
			if !sub.fire() {
				continue
			}
			e.registry.Remove(sub.ID())
			e.onceFired.Add(1)
			e.config.logger.Debug("one-shot handler removed",
				"topic", string(t), "key", string(sub.topic), "subscription", sub.ID())
		}

		result := e.dispatcher.Dispatch(ctx, ev, sub.handler)
		if err := e.failure(sub, ev, result); err != nil {
			e.config.logger.Warn("handler failed, emit stopped",
				"topic", string(t), "key", string(sub.topic), "subscription", sub.ID(), "error", err)
			return err
		}
	}

	return nil
}

// snapshot returns the active subscriptions matching t at this instant.
func (e *Emitter) snapshot(t topic.Topic, exact bool) []*subscription {
	all := e.registry.Match(t, exact)
	if len(all) == 0 {
		return nil
	}

	active := all[:0]
	for _, sub := range all {
		if sub.IsActive() {
			active = append(active, sub)
		}
	}
	return active
}

// receiver resolves the value a handler is invoked on.
func (e *Emitter) receiver(sub *subscription) any {
	if sub.config.Receiver != nil {
		return sub.config.Receiver
	}
	if e.config.owner != nil {
		return e.config.owner
	}
	return e
}

// failure converts a non-successful dispatch result into the error Emit returns.
func (e *Emitter) failure(sub *subscription, ev Event, result dispatch.Result) error {
	if result.IsSuccess() {
		return nil
	}
	switch {
	case result.IsPanic():
		return &PanicError{
			SubscriptionID: sub.ID(),
			Topic:          string(ev.Topic),
			Key:            string(ev.Key),
			Value:          result.PanicValue,
			Stack:          string(result.PanicStack),
		}
	case result.Skipped:
		return result.Error
	case result.IsError():
		return &HandlerError{
			SubscriptionID: sub.ID(),
			Topic:          string(ev.Topic),
			Key:            string(ev.Key),
			Err:            result.Error,
		}
	}
	return nil
}

// Has reports whether any handler is registered under a type matching t.
func (e *Emitter) Has(t topic.Topic, opts ...MatchOption) bool {
	cfg := newMatchConfig(opts)
	return e.registry.Has(t, cfg.exact)
}

// Count returns the number of registered handlers.
func (e *Emitter) Count() int {
	return e.registry.Count()
}

// CountByTopic returns the number of handlers registered under exactly t.
func (e *Emitter) CountByTopic(t topic.Topic) int {
	return e.registry.CountByTopic(t)
}

// Topics returns the registered types in the order they were created.
func (e *Emitter) Topics() []topic.Topic {
	return e.registry.Topics()
}

// Clear removes every handler.
func (e *Emitter) Clear() {
	for _, s := range e.registry.Clear() {
		s.cancel()
	}
}

// Stats returns current emitter statistics.
func (e *Emitter) Stats() Stats {
	ds := e.dispatcher.Stats()
	return Stats{
		Emits:            e.emits.Load(),
		HandlersExecuted: ds.Dispatched - ds.Skipped,
		HandlerErrors:    ds.Failed,
		HandlerPanics:    ds.Panicked,
		OnceFired:        e.onceFired.Load(),
		Subscriptions:    e.registry.Count(),
		Topics:           e.registry.TopicCount(),
		AvgHandlerTime:   ds.AvgDuration,
	}
}
