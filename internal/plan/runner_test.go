package plan

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func mustParse(t *testing.T, data string) *Plan {
	t.Helper()
	p, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func traceLines(buf *bytes.Buffer) []gjson.Result {
	var out []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		out = append(out, gjson.Parse(line))
	}
	return out
}

func kinds(lines []gjson.Result, kind string) []gjson.Result {
	var out []gjson.Result
	for _, l := range lines {
		if l.Get("kind").String() == kind {
			out = append(out, l)
		}
	}
	return out
}

func TestRunner_Login(t *testing.T) {
	var buf bytes.Buffer
	p, err := Parse([]byte(loginTOML), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}

	res, err := NewRunner(WithTrace(&buf)).Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected mismatches: %v", res.Mismatches)
	}
	if res.Steps != 3 || res.Calls != 1 || res.Failures != 0 {
		t.Errorf("result = %+v", res)
	}

	lines := traceLines(&buf)
	if lines[0].Get("kind").String() != "plan" || lines[0].Get("name").String() != "login" {
		t.Errorf("first record = %s", lines[0].Raw)
	}
	if last := lines[len(lines)-1]; last.Get("kind").String() != "summary" || !last.Get("ok").Bool() {
		t.Errorf("last record = %s", last.Raw)
	}

	calls := kinds(lines, "call")
	if len(calls) != 1 {
		t.Fatalf("expected 1 call record, got %d", len(calls))
	}
	call := calls[0]
	if call.Get("handler").String() != "welcome" || call.Get("key").String() != "user.login" {
		t.Errorf("call record = %s", call.Raw)
	}
	if call.Get("data.user.role").String() != "admin" {
		t.Errorf("call data = %s", call.Get("data").Raw)
	}
	if call.Get("event").String() == "" {
		t.Error("call record should carry the event id")
	}
}

func TestRunner_Namespaces(t *testing.T) {
	p := mustParse(t, `
steps:
  - {action: on, topic: user, handler: u}
  - {action: on, topic: user.login, handler: ul}
  - {action: on, topic: username, handler: un}
  - {action: emit, topic: user, expect: [u, ul]}
  - {action: emit, topic: user.login, expect: [ul]}
  - {action: emit, topic: user, exact: true, expect: [u]}
  - {action: emit, topic: login.user, expect: []}
`)

	res, err := NewRunner().Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Errorf("mismatches: %v", res.Mismatches)
	}
	if res.Calls != 4 {
		t.Errorf("Calls = %d, want 4", res.Calls)
	}
}

func TestRunner_OnceAndOff(t *testing.T) {
	var buf bytes.Buffer
	p := mustParse(t, `
steps:
  - {action: once, topic: a, handler: first}
  - {action: on, topic: a, handler: keep}
  - {action: on, topic: a.b, handler: keep}
  - {action: on, topic: a.b, handler: drop}
  - {action: emit, topic: a, expect: [first, keep, keep, drop]}
  - {action: emit, topic: a, expect: [keep, keep, drop]}
  - {action: off, topic: a, handler: drop}
  - {action: emit, topic: a, expect: [keep, keep]}
  - {action: off, topic: a, exact: true}
  - {action: emit, topic: a, expect: [keep]}
  - {action: off, topic: a}
  - {action: emit, topic: a, expect: []}
`)

	res, err := NewRunner(WithTrace(&buf)).Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Errorf("mismatches: %v", res.Mismatches)
	}

	var removed []int64
	for _, step := range kinds(traceLines(&buf), "step") {
		if step.Get("action").String() == "off" {
			removed = append(removed, step.Get("removed").Int())
		}
	}
	if len(removed) != 3 || removed[0] != 1 || removed[1] != 1 || removed[2] != 1 {
		t.Errorf("removed counts = %v, want [1 1 1]", removed)
	}
}

func TestRunner_FailFast(t *testing.T) {
	var buf bytes.Buffer
	p := mustParse(t, `
steps:
  - {action: on, topic: job, handler: a}
  - {action: on, topic: job, handler: b, fail: disk full}
  - {action: on, topic: job, handler: c}
  - {action: emit, topic: job, expect_error: true, expect: [a, b]}
  - {action: emit, topic: job}
`)

	res, err := NewRunner(WithTrace(&buf)).Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failures != 2 {
		t.Errorf("Failures = %d, want 2", res.Failures)
	}
	if len(res.Mismatches) != 1 || res.Mismatches[0].Step != 5 {
		t.Fatalf("mismatches = %v, want one for step 5", res.Mismatches)
	}
	if !strings.Contains(res.Mismatches[0].Message, "disk full") {
		t.Errorf("mismatch message = %q", res.Mismatches[0].Message)
	}

	steps := kinds(traceLines(&buf), "step")
	last := steps[len(steps)-1]
	if last.Get("ok").Bool() || !strings.Contains(last.Get("error").String(), "disk full") {
		t.Errorf("last step record = %s", last.Raw)
	}
	if got := last.Get("calls").Array(); len(got) != 2 {
		t.Errorf("calls = %v, want 2", got)
	}
}

func TestRunner_Where(t *testing.T) {
	p := mustParse(t, `
steps:
  - {action: once, topic: order, handler: big, where: total, equals: 100}
  - {action: on, topic: order, handler: tagged, where: tags.0}
  - {action: emit, topic: order, data: '{"total": 5}', expect: []}
  - {action: emit, topic: order, data: '{"total": 100, "tags": ["x"]}', expect: [big, tagged]}
  - {action: emit, topic: order, data: '{"total": 100}', expect: []}
`)

	res, err := NewRunner().Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Errorf("mismatches: %v", res.Mismatches)
	}
}

func TestRunner_Mismatch(t *testing.T) {
	p := mustParse(t, `
steps:
  - {action: on, topic: a, handler: h}
  - {action: emit, topic: a, expect: [other]}
  - {action: emit, topic: a, expect_error: true}
`)

	res, err := NewRunner().Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mismatches) != 2 {
		t.Fatalf("mismatches = %v, want 2", res.Mismatches)
	}
	if got := res.Mismatches[0].String(); got != "step 2 (a): calls [h], want [other]" {
		t.Errorf("mismatch = %q", got)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	p := mustParse(t, "steps:\n  - {action: emit, topic: a}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewRunner().Run(ctx, p)
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if res.Steps != 0 {
		t.Errorf("Steps = %d, want 0", res.Steps)
	}
}

func TestRunner_NoTrace(t *testing.T) {
	p := mustParse(t, "steps:\n  - {action: on, topic: a, handler: h}\n  - {action: emit, topic: a}\n")

	res, err := NewRunner(WithTrace(nil)).Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Calls != 1 {
		t.Errorf("Calls = %d, want 1", res.Calls)
	}
}
