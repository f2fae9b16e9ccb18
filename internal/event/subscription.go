package event

import (
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nsevent/nsevent/internal/event/topic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	// A one-shot subscription in this state is armed.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been removed,
	// either explicitly or because a one-shot handler fired. It is terminal.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned by On and Once.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Topic returns the event type the handler is registered under.
	Topic() topic.Topic

	// Handler returns the registered handler.
	Handler() Handler

	// Once reports whether the handler is one-shot.
	Once() bool

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops event delivery to this subscription.
	// The entry keeps its position in the dispatch order.
	Pause()

	// Resume restarts event delivery after a pause.
	Resume()
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Receiver is bound as Event.Receiver for every invocation.
	Receiver any

	// Filter is an optional predicate. A filtered-out event does not count
	// as an invocation, so a one-shot handler stays armed.
	Filter FilterFunc

	// Once removes the subscription the first time it is invoked.
	Once bool
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithReceiver binds v as the receiver passed to the handler.
func WithReceiver(v any) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Receiver = v
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce makes the subscription one-shot. Once(t, h) is equivalent to
// On(t, h, WithOnce()).
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// subscription is the registry entry behind a Subscription.
type subscription struct {
	id      string
	topic   topic.Topic
	handler Handler
	config  SubscriptionConfig
	owner   *Emitter
	state   atomic.Int32
	fired   atomic.Bool
}

// newSubscription creates a new subscription.
func newSubscription(owner *Emitter, t topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	s := &subscription{
		id:      uuid.NewString(),
		topic:   t,
		handler: h,
		config:  config,
		owner:   owner,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

// ID returns the subscription ID.
func (s *subscription) ID() string {
	return s.id
}

// Topic returns the registered topic.
func (s *subscription) Topic() topic.Topic {
	return s.topic
}

// Handler returns the subscription's handler.
func (s *subscription) Handler() Handler {
	return s.handler
}

// Once reports whether the subscription is one-shot.
func (s *subscription) Once() bool {
	return s.config.Once
}

// State returns the current subscription state.
func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription is active.
func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// Pause temporarily stops event delivery.
func (s *subscription) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume restarts event delivery.
func (s *subscription) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

// cancel moves the subscription to its terminal state.
func (s *subscription) cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// fire claims the single invocation of a one-shot subscription and moves
// it to its terminal state. Only the first caller gets true, even when the
// subscription was removed after a dispatch snapshot was taken.
func (s *subscription) fire() bool {
	if !s.fired.CompareAndSwap(false, true) {
		return false
	}
	s.cancel()
	return true
}

// accepts reports whether e should be delivered, ignoring state.
func (s *subscription) accepts(e Event) bool {
	return s.config.Filter == nil || s.config.Filter(e)
}

// isNilHandler reports whether h is nil or a typed nil pointer or func.
func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// sameHandler reports whether a and b are the same handler reference.
// b must be comparable; the caller checks that once with isComparable.
// A struct handler whose interface fields hold uncomparable values is
// treated as distinct instead of panicking.
func sameHandler(a, b Handler) (same bool) {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// isComparable reports whether h can be compared with ==.
func isComparable(h Handler) bool {
	return reflect.TypeOf(h).Comparable()
}
