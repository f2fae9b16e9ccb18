package script

import (
	"context"
	"errors"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/event/topic"
)

// Module is a set of Lua functions installed into a State.
type Module interface {
	// Name returns the global the module is installed under.
	Name() string

	// Register installs the module into L.
	Register(L *lua.LState) error
}

// EmitterModule exposes an event emitter to Lua as the "emitter" global.
type EmitterModule struct {
	emitter *event.Emitter
	source  string

	mu   sync.Mutex
	subs map[string]event.Subscription
}

// NewEmitterModule creates a module bound to em. Events emitted from Lua
// carry source as their Metadata.Source.
func NewEmitterModule(em *event.Emitter, source string) *EmitterModule {
	return &EmitterModule{
		emitter: em,
		source:  source,
		subs:    make(map[string]event.Subscription),
	}
}

// Name returns the module name.
func (m *EmitterModule) Name() string {
	return "emitter"
}

// Register registers the module into the Lua state.
func (m *EmitterModule) Register(L *lua.LState) error {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":          m.on,
		"once":        m.once,
		"off":         m.off,
		"unsubscribe": m.unsubscribe,
		"emit":        m.emit,
		"has":         m.has,
		"count":       m.count,
		"matches":     m.matches,
	})
	L.SetGlobal(m.Name(), mod)
	return nil
}

// luaHandler calls a Lua function for each event. Handlers are compared by
// the identity of fn.
type luaHandler struct {
	L  *lua.LState
	fn *lua.LFunction
}

// Handle implements event.Handler.
func (h *luaHandler) Handle(ctx context.Context, e event.Event) error {
	L := h.L
	L.Push(h.fn)
	nargs := 2
	if self, ok := e.Receiver.(lua.LValue); ok && self != lua.LNil {
		L.Push(self)
		nargs++
	}
	L.Push(ToLValue(L, e.Data))
	L.Push(lua.LString(e.Topic))
	return L.PCall(nargs, 0, nil)
}

func checkTopic(L *lua.LState, n int) topic.Topic {
	t := L.CheckString(n)
	if t == "" {
		L.ArgError(n, "event type cannot be empty")
	}
	return topic.Topic(t)
}

// on(type, fn [, self]) -> id
func (m *EmitterModule) on(L *lua.LState) int {
	return m.register(L, false)
}

// once(type, fn [, self]) -> id
func (m *EmitterModule) once(L *lua.LState) int {
	return m.register(L, true)
}

func (m *EmitterModule) register(L *lua.LState, once bool) int {
	t := checkTopic(L, 1)
	fn := L.CheckFunction(2)

	var opts []event.SubscriptionOption
	if self := L.Get(3); self != lua.LNil {
		opts = append(opts, event.WithReceiver(self))
	}
	if once {
		opts = append(opts, event.WithOnce())
	}

	sub, err := m.emitter.On(t, &luaHandler{L: L, fn: fn}, opts...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	m.mu.Lock()
	m.subs[sub.ID()] = sub
	m.mu.Unlock()

	L.Push(lua.LString(sub.ID()))
	return 1
}

// off(type [, fn] [, exact]) -> removed
//
// The second argument may be the handler or the exact flag.
func (m *EmitterModule) off(L *lua.LState) int {
	t := checkTopic(L, 1)

	var fn *lua.LFunction
	exactArg := 2
	switch v := L.Get(2).(type) {
	case *lua.LFunction:
		fn = v
		exactArg = 3
	case *lua.LNilType:
		exactArg = 3
	case lua.LBool:
	default:
		L.TypeError(2, lua.LTFunction)
		return 0
	}
	exact := event.ExactIf(L.OptBool(exactArg, false))

	var removed int
	if fn == nil {
		removed = m.emitter.Off(t, exact)
	} else {
		removed = m.emitter.OffWhere(t, func(h event.Handler) bool {
			lh, ok := h.(*luaHandler)
			return ok && lh.fn == fn
		}, exact)
	}
	m.prune()

	L.Push(lua.LNumber(removed))
	return 1
}

// unsubscribe(id) -> bool
func (m *EmitterModule) unsubscribe(L *lua.LState) int {
	id := L.CheckString(1)

	m.mu.Lock()
	sub, ok := m.subs[id]
	delete(m.subs, id)
	m.mu.Unlock()

	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(m.emitter.Unsubscribe(sub) == nil))
	return 1
}

// prune forgets subscriptions that are no longer registered: fired one-shot
// handlers and entries removed through the emitter directly.
func (m *EmitterModule) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subs {
		if sub.State() == event.SubscriptionStateCancelled {
			delete(m.subs, id)
		}
	}
}

// emit(type [, data] [, exact])
func (m *EmitterModule) emit(L *lua.LState) int {
	t := checkTopic(L, 1)
	data := FromLValue(L.Get(2))
	exact := L.OptBool(3, false)
	defer m.prune()

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err := m.emitter.Emit(ctx, t, data, event.ExactIf(exact), event.WithSource(m.source))
	if err != nil {
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			// Re-raise the handler's own error value so pcall sees it unchanged.
			L.Error(apiErr.Object, 0)
			return 0
		}
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// has(type [, exact]) -> bool
func (m *EmitterModule) has(L *lua.LState) int {
	t := checkTopic(L, 1)
	exact := L.OptBool(2, false)
	L.Push(lua.LBool(m.emitter.Has(t, event.ExactIf(exact))))
	return 1
}

// count([type]) -> n
func (m *EmitterModule) count(L *lua.LState) int {
	if L.GetTop() == 0 || L.Get(1) == lua.LNil {
		L.Push(lua.LNumber(m.emitter.Count()))
		return 1
	}
	t := checkTopic(L, 1)
	L.Push(lua.LNumber(m.emitter.CountByTopic(t)))
	return 1
}

// matches(registered, emitted [, exact]) -> bool
//
// Reports whether an emit of emitted would reach a handler registered under
// registered, without touching the emitter.
func (m *EmitterModule) matches(L *lua.LState) int {
	registered := checkTopic(L, 1)
	emitted := checkTopic(L, 2)
	exact := L.OptBool(3, false)
	L.Push(lua.LBool(registered.Matches(emitted, exact)))
	return 1
}
