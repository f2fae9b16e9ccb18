package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/event/topic"
	"github.com/nsevent/nsevent/internal/logging"
)

// Result summarizes a replay.
type Result struct {
	// Steps is the number of steps executed.
	Steps int

	// Calls is the number of handler invocations.
	Calls int

	// Failures is the number of emits that returned an error.
	Failures int

	// Mismatches lists emits whose outcome differed from their expectations.
	Mismatches []Mismatch
}

// OK reports whether every expectation held.
func (r *Result) OK() bool {
	return len(r.Mismatches) == 0
}

// Mismatch describes an unmet expectation.
type Mismatch struct {
	Step    int
	Topic   string
	Message string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("step %d (%s): %s", m.Step, m.Topic, m.Message)
}

// Runner replays plans.
type Runner struct {
	trace       io.Writer
	logger      event.Logger
	emitterOpts []event.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTrace writes JSON trace lines to w.
func WithTrace(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.trace = w
	}
}

// WithLogger sets the logger for step diagnostics.
func WithLogger(l event.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEmitterOptions sets the options for the emitter each run creates.
func WithEmitterOptions(opts ...event.Option) RunnerOption {
	return func(r *Runner) {
		r.emitterOpts = append(r.emitterOpts, opts...)
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the state of one replay.
type run struct {
	emitter *event.Emitter
	tracer  *tracer
	result  *Result
	step    int
	calls   []string
}

// Run executes p against a new emitter. Handler failures are recorded, not
// returned; Run only fails when ctx is done.
func (r *Runner) Run(ctx context.Context, p *Plan) (*Result, error) {
	st := &run{
		emitter: event.New(r.emitterOpts...),
		tracer:  newTracer(r.trace),
		result:  &Result{},
	}

	st.tracer.write(newRecord("plan").
		set("name", p.Name).
		set("steps", len(p.Steps)))

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return st.result, err
		}

		st.step = i + 1
		rec := newRecord("step").
			set("step", st.step).
			set("action", string(step.Action)).
			set("topic", step.Topic)

		if err := st.apply(ctx, p, step, rec); err != nil {
			return st.result, err
		}

		st.result.Steps++
		st.tracer.write(rec)
		r.logger.Debug("plan step", "plan", p.Name, "step", st.step, "action", string(step.Action), "topic", step.Topic)
	}

	for _, m := range st.result.Mismatches {
		r.logger.Warn("plan expectation failed", "plan", p.Name, "step", m.Step, "topic", m.Topic, "message", m.Message)
	}

	st.tracer.write(newRecord("summary").
		set("steps", st.result.Steps).
		set("calls", st.result.Calls).
		set("failures", st.result.Failures).
		set("ok", st.result.OK()))

	return st.result, nil
}

func (st *run) apply(ctx context.Context, p *Plan, step Step, rec *record) error {
	t := topic.Topic(step.Topic)
	exact := event.ExactIf(step.Exact)

	switch step.Action {
	case ActionOn, ActionOnce:
		h := &namedHandler{name: step.Handler, fail: step.Fail, run: st}

		var opts []event.SubscriptionOption
		if step.Where != "" {
			if step.Equals != nil {
				opts = append(opts, event.WithFilter(event.FilterJSON(step.Where, step.Equals)))
			} else {
				opts = append(opts, event.WithFilter(event.FilterJSONExists(step.Where)))
			}
		}

		register := st.emitter.On
		if step.Action == ActionOnce {
			register = st.emitter.Once
		}
		sub, err := register(t, h, opts...)
		if err != nil {
			return fmt.Errorf("step %d: %w", st.step, err)
		}
		rec.set("handler", step.Handler).set("subscription", sub.ID())

	case ActionOff:
		var removed int
		if step.Handler == "" {
			removed = st.emitter.Off(t, exact)
		} else {
			removed = st.emitter.OffWhere(t, func(h event.Handler) bool {
				nh, ok := h.(*namedHandler)
				return ok && nh.name == step.Handler
			}, exact)
			rec.set("handler", step.Handler)
		}
		rec.set("exact", step.Exact).set("removed", removed)

	case ActionEmit:
		var data any
		if step.Data != "" {
			data = []byte(step.Data)
		}

		st.calls = st.calls[:0]
		err := st.emitter.Emit(ctx, t, data, exact, event.WithSource(p.Name))
		if err != nil && ctx.Err() != nil {
			return err
		}

		rec.set("exact", step.Exact).set("calls", append([]string{}, st.calls...))
		if err != nil {
			st.result.Failures++
			rec.set("error", err.Error())
		}

		if msg := st.check(step, err); msg != "" {
			st.result.Mismatches = append(st.result.Mismatches, Mismatch{
				Step:    st.step,
				Topic:   step.Topic,
				Message: msg,
			})
			rec.set("ok", false).set("mismatch", msg)
		} else {
			rec.set("ok", true)
		}
	}

	return nil
}

// check compares an emit's outcome with the step's expectations.
func (st *run) check(step Step, err error) string {
	switch {
	case err != nil && !step.ExpectError:
		return "unexpected error: " + err.Error()
	case err == nil && step.ExpectError:
		return "expected an error"
	}

	if step.Expect != nil && !slices.Equal(step.Expect, st.calls) {
		return fmt.Sprintf("calls [%s], want [%s]",
			strings.Join(st.calls, ", "), strings.Join(step.Expect, ", "))
	}
	return ""
}

// namedHandler records its invocations. Handlers with the same name are
// distinct entries but are removed together by name.
type namedHandler struct {
	name string
	fail string
	run  *run
}

// Handle implements event.Handler.
func (h *namedHandler) Handle(ctx context.Context, e event.Event) error {
	st := h.run
	st.calls = append(st.calls, h.name)
	st.result.Calls++

	rec := newRecord("call").
		set("step", st.step).
		set("handler", h.name).
		set("key", string(e.Key)).
		set("topic", string(e.Topic)).
		set("event", e.Metadata.ID)
	if raw, ok := e.Data.([]byte); ok {
		rec.setRaw("data", raw)
	}

	if h.fail != "" {
		rec.set("fail", h.fail)
		st.tracer.write(rec)
		return errors.New(h.fail)
	}

	st.tracer.write(rec)
	return nil
}
