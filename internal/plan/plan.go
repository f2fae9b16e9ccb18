// Package plan replays scripted sequences of emitter operations.
//
// A plan is a TOML or YAML file listing steps. Each step registers a named
// handler, removes handlers, or emits an event:
//
//	name = "login"
//
//	[[steps]]
//	action = "on"
//	topic = "user"
//	handler = "audit"
//
//	[[steps]]
//	action = "emit"
//	topic = "user.login"
//	data = '{"user": {"role": "admin"}}'
//	expect = ["audit"]
//
// A Runner executes the steps against a fresh emitter and writes a JSON
// trace line for every handler call and every step.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Action is the operation a step performs.
type Action string

// Step actions.
const (
	ActionOn   Action = "on"
	ActionOnce Action = "once"
	ActionOff  Action = "off"
	ActionEmit Action = "emit"
)

// Plan is a named list of steps.
type Plan struct {
	Name  string `toml:"name" yaml:"name"`
	Steps []Step `toml:"steps" yaml:"steps" validate:"dive"`
}

// Step is a single operation in a plan.
type Step struct {
	// Action is on, once, off or emit.
	Action Action `toml:"action" yaml:"action" validate:"required,oneof=on once off emit"`

	// Topic is the event type registered, removed or emitted.
	Topic string `toml:"topic" yaml:"topic" validate:"required"`

	// Handler names the handler for on and once. For off it selects the
	// handlers to remove; empty removes every match.
	Handler string `toml:"handler" yaml:"handler"`

	// Exact selects exact matching for off and emit.
	Exact bool `toml:"exact" yaml:"exact"`

	// Data is the JSON payload of an emit.
	Data string `toml:"data" yaml:"data"`

	// Where is a gjson path the payload must contain for the handler to run.
	Where string `toml:"where" yaml:"where"`

	// Equals, when set with Where, is the value required at that path.
	Equals any `toml:"equals" yaml:"equals"`

	// Fail makes the handler return an error with this message.
	Fail string `toml:"fail" yaml:"fail"`

	// Expect lists the handlers an emit should call, in order.
	Expect []string `toml:"expect" yaml:"expect"`

	// ExpectError is set when an emit should fail.
	ExpectError bool `toml:"expect_error" yaml:"expect_error"`
}

// Errors returned while loading plans.
var (
	// ErrUnknownFormat is returned for files that are neither TOML nor YAML.
	ErrUnknownFormat = errors.New("unknown plan format")

	// ErrInvalidPlan is matched by errors from Validate.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Format is a plan file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}

	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Parse decodes and validates a plan.
func Parse(data []byte, format Format) (*Plan, error) {
	var p Plan
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

var validate = validator.New()

// Validate checks that every step is well formed.
func (p *Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidPlan, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	for i, s := range p.Steps {
		if err := s.check(); err != nil {
			return fmt.Errorf("%w: step %d (%s %s): %v", ErrInvalidPlan, i+1, s.Action, s.Topic, err)
		}
	}
	return nil
}

func (s Step) check() error {
	switch s.Action {
	case ActionOn, ActionOnce:
		if s.Handler == "" {
			return errors.New("handler is required")
		}
		if s.Equals != nil && s.Where == "" {
			return errors.New("equals requires where")
		}
	case ActionEmit:
		if s.Data != "" && !gjson.Valid(s.Data) {
			return errors.New("data is not valid JSON")
		}
		if s.Handler != "" {
			return errors.New("emit does not take a handler")
		}
	}
	return nil
}
