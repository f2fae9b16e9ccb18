// Package script runs Lua scripts against an event emitter.
//
// A State is a sandboxed gopher-lua interpreter: only the base library is
// opened, plus table, string and math when WithOpenLibs is set, and the
// functions that load code from files or strings are removed. Scripts run
// under a deadline set with WithTimeout.
//
// EmitterModule exposes an *event.Emitter to scripts as the global table
// "emitter":
//
//	emitter.on(type, fn [, self])        -- returns a subscription id
//	emitter.once(type, fn [, self])      -- returns a subscription id
//	emitter.off(type [, fn] [, exact])   -- returns the number removed
//	emitter.unsubscribe(id)              -- returns true if it was registered
//	emitter.emit(type [, data] [, exact])
//	emitter.has(type [, exact])
//	emitter.count([type])
//	emitter.matches(registered, emitted [, exact])
//
// Handlers are called as fn(data, type), or fn(self, data, type) when self
// was given at registration. An error raised by a handler stops the emit
// and is raised again from emitter.emit, so scripts can catch it with pcall.
//
// A Lua handler must only be invoked on the goroutine running the script.
// Emitting from other goroutines into an emitter that holds Lua handlers is
// not supported.
package script
