package event

import "time"

// Option configures an Emitter.
type Option func(*emitterConfig)

// emitterConfig contains configuration for the emitter.
type emitterConfig struct {
	// owner is the default receiver for handlers registered without one.
	owner any

	// logger receives dispatch diagnostics.
	logger Logger

	// handlerTimeout bounds each handler's context. Zero disables it.
	handlerTimeout time.Duration

	// panicHandler is called when a handler panics.
	panicHandler PanicHandler
}

func defaultEmitterConfig() emitterConfig {
	return emitterConfig{
		logger: nopLogger{},
	}
}

// WithOwner makes v the default receiver of every handler registered
// without WithReceiver. Use it when embedding an Emitter in another type so
// handlers see the embedding value, not the bare emitter:
//
//	type Widget struct {
//	    *event.Emitter
//	    Name string
//	}
//
//	w := &Widget{Name: "w"}
//	w.Emitter = event.New(event.WithOwner(w))
func WithOwner(v any) Option {
	return func(c *emitterConfig) {
		c.owner = v
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l Logger) Option {
	return func(c *emitterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHandlerTimeout bounds the context passed to each handler.
func WithHandlerTimeout(d time.Duration) Option {
	return func(c *emitterConfig) {
		if d > 0 {
			c.handlerTimeout = d
		}
	}
}

// WithPanicHandler sets a callback invoked when a handler panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *emitterConfig) {
		c.panicHandler = h
	}
}

// MatchOption configures Emit, Off, OffHandler, OffWhere and Has.
type MatchOption func(*matchConfig)

type matchConfig struct {
	exact  bool
	source string
}

func newMatchConfig(opts []MatchOption) matchConfig {
	var c matchConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Exact selects literal topic equality instead of namespace matching.
func Exact() MatchOption {
	return func(c *matchConfig) {
		c.exact = true
	}
}

// ExactIf selects exact matching when exact is true. It lets callers that
// carry the choice as a flag avoid branching.
func ExactIf(exact bool) MatchOption {
	return func(c *matchConfig) {
		c.exact = exact
	}
}

// WithSource records the publisher in Event.Metadata.Source. It only
// affects Emit.
func WithSource(source string) MatchOption {
	return func(c *matchConfig) {
		c.source = source
	}
}
