package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single DoFile or DoString call.
const DefaultTimeout = 30 * time.Second

// State wraps a gopher-lua state for script execution.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes calls made
// through State, but handlers registered by a script run on whatever
// goroutine emits, so emits must stay on the goroutine that runs the script.
type State struct {
	L *lua.LState

	mu       sync.Mutex
	timeout  time.Duration
	openLibs bool
	out      io.Writer
	closed   bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithTimeout sets the deadline for each DoFile or DoString call.
// Zero disables it.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithOpenLibs opens the table, string and math libraries in addition to base.
func WithOpenLibs(open bool) StateOption {
	return func(s *State) {
		s.openLibs = open
	}
}

// WithOutput redirects print. The default is stdout.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.out = w
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout:  DefaultTimeout,
		openLibs: true,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(s.L)
	if s.openLibs {
		lua.OpenTable(s.L)
		lua.OpenString(s.L)
		lua.OpenMath(s.L)
	}
	s.sandbox()

	return s
}

// sandbox removes the functions that load code and replaces print.
func (s *State) sandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.L.SetGlobal("print", s.L.NewFunction(s.print))
}

func (s *State) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(s.out, strings.Join(parts, "\t"))
	return 0
}

// Install registers a module into the state.
func (s *State) Install(m Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if s.L.GetGlobal(m.Name()) != lua.LNil {
		return fmt.Errorf("install %s: %w", m.Name(), ErrGlobalExists)
	}
	if err := m.Register(s.L); err != nil {
		return fmt.Errorf("install %s: %w", m.Name(), err)
	}
	return nil
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.do(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.do(ctx, func() error {
		return s.L.DoString(code)
	})
}

func (s *State) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := doWithRecovery(fn)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// global returns a global variable value, or nil once closed.
func (s *State) global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Close releases the Lua state. It is safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
